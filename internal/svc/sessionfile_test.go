package svc_test

import (
	"bytes"
	"context"
	"strings"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/svc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const sessionYAML = `
method: polynomial1
destination_crs: "epsg:32631"
invert_y_axis: true
auto_fit: true
raster_metadata:
  geotransform: [1000, 2, 0, 500, 0, -2]
  crs: "epsg:32631"
  width: 100
  height: 50
gcps:
  - id: a
    source: [1000, 500]
    destination: [10, 20]
  - id: b
    source: [1020, 500]
    destination: [30, 20]
  - id: c
    source: [1000, 480]
    destination: [10, 0]
  - id: d
    source: [1020, 480]
    destination: [99, 99]
    enabled: false
`

var _ = Describe("SessionFile", func() {
	var (
		ctx           = context.Background()
		content       string
		sf            *svc.SessionFile
		returnedError error
	)

	BeforeEach(func() {
		content = sessionYAML
	})

	JustBeforeEach(func() {
		sf, returnedError = svc.ReadSessionFile(strings.NewReader(content))
	})

	It("it should decode the file", func() {
		Expect(returnedError).To(BeNil())
		Expect(sf.Method).To(Equal(georef.Polynomial1))
		Expect(sf.InvertYAxis).To(BeTrue())
		Expect(sf.RasterMetadata).NotTo(BeNil())
		Expect(sf.RasterMetadata.GeoTransform).To(Equal([6]float64{1000, 2, 0, 500, 0, -2}))
		Expect(sf.GCPs).To(HaveLen(4))
		Expect(sf.GCPs[0].Enabled).To(BeNil())
		Expect(*sf.GCPs[3].Enabled).To(BeFalse())
	})

	It("it should create a fitted session", func() {
		s, err := sf.NewSession(ctx)
		Expect(err).To(BeNil())
		Expect(s.Ready()).To(BeTrue())
		Expect(s.GCPs()).To(HaveLen(4))
		Expect(s.GCPs()[3].Enabled).To(BeFalse())
		Expect(s.Snapshot().HasCRS()).To(BeTrue())
		crs, err := s.DestinationCRS()
		Expect(err).To(BeNil())
		Expect(crs).NotTo(BeNil())
		crs.Close()

		// pixel (5, 5) is at raster map coordinates (1010, 490)
		w, err := s.Snapshot().TransformRasterToWorld(georef.Point{X: 1010, Y: 490})
		Expect(err).To(BeNil())
		Expect(w.Equal(georef.Point{X: 20, Y: 10}, 1e-9)).To(BeTrue())
	})

	It("it should write the session back", func() {
		s, err := sf.NewSession(ctx)
		Expect(err).To(BeNil())
		var buf bytes.Buffer
		Expect(s.File().Write(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("method: Polynomial1"))

		back, err := svc.ReadSessionFile(&buf)
		Expect(err).To(BeNil())
		Expect(back.RasterMetadata.CRS).To(Equal("epsg:32631"))
		Expect(back.DestinationCRS).To(Equal("epsg:32631"))
		Expect(back.GCPs).To(HaveLen(4))
		Expect(back.GCPs[1].ID).To(Equal("b"))
		Expect(back.GCPs[1].Enabled).To(BeNil())
		Expect(*back.GCPs[3].Enabled).To(BeFalse())
	})

	Context("unknown method", func() {
		BeforeEach(func() {
			content = "method: bilinear\n"
		})
		It("it should fail", func() {
			Expect(returnedError).NotTo(BeNil())
		})
	})

	Context("unknown field", func() {
		BeforeEach(func() {
			content = "method: Linear\ntolerance: 2\n"
		})
		It("it should fail", func() {
			Expect(returnedError).NotTo(BeNil())
		})
	})

	Context("duplicate control points", func() {
		BeforeEach(func() {
			content = "method: Linear\ngcps:\n  - {id: a, source: [0, 0], destination: [0, 0]}\n  - {id: a, source: [1, 1], destination: [1, 1]}\n"
		})
		It("it should not create the session", func() {
			Expect(returnedError).To(BeNil())
			_, err := sf.NewSession(ctx)
			Expect(georef.IsError(err, georef.InvalidControlPoint)).To(BeTrue())
		})
	})

	Context("raster and metadata", func() {
		BeforeEach(func() {
			content = sessionYAML + "raster: scan.tif\n"
		})
		It("it should fail", func() {
			Expect(returnedError).NotTo(BeNil())
		})
	})
})
