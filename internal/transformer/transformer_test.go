package transformer_test

import (
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/transformer"
	"github.com/airbusgeo/georef/internal/utils/affine"
	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

func withAffine(a *affine.Affine) func(georef.Point) georef.Point {
	return func(p georef.Point) georef.Point {
		x, y := a.Transform(p.X, p.Y)
		return georef.Point{X: x, Y: y}
	}
}

var (
	linearTruth  = withAffine(affine.Translation(300000, 5000000).Multiply(affine.Scale(10, 20)))
	helmertTruth = withAffine(affine.Similarity(300000, 5000000, 10, 0.2))
	affineTruth  = withAffine(affine.NewAffine(1000, 2, 0.5, 2000, -0.3, -1.5))
	quadTruth    = func(p georef.Point) georef.Point {
		return georef.Point{X: 1000 + 2*p.X + 0.001*p.X*p.X, Y: 2000 - 1.5*p.Y + 0.0005*p.X*p.Y}
	}
	cubicTruth = func(p georef.Point) georef.Point {
		return georef.Point{X: 10 + p.X + 1e-6*p.X*p.X*p.X, Y: 20 + p.Y + 1e-6*p.X*p.Y*p.Y}
	}
	homographyTruth = func(p georef.Point) georef.Point {
		w := 1 + 1e-4*p.X + 2e-4*p.Y
		return georef.Point{X: (1.2*p.X + 0.1*p.Y + 500) / w, Y: (0.05*p.X + 0.9*p.Y + 300) / w}
	}
	warpTruth = func(p georef.Point) georef.Point {
		return georef.Point{X: 2*p.X + 5*math.Sin(p.Y/100), Y: 2*p.Y + 5*math.Cos(p.X/100)}
	}
	// folded along x = 150: not invertible by an affine transform
	foldTruth = func(p georef.Point) georef.Point {
		return georef.Point{X: (p.X - 150) * (p.X - 150), Y: p.Y}
	}
)

func fitted(method georef.TransformMethod, src []georef.Point, truth func(georef.Point) georef.Point) transformer.GCPTransformer {
	t := transformer.NewGCPTransformer(method)
	ExpectWithOffset(1, t.UpdateParametersFromGCPs(src, mapPoints(src, truth), false)).To(Succeed())
	return t
}

var _ = Describe("GCPTransformer", func() {

	Describe("fitting", func() {
		table.DescribeTable("it should reproduce the control points",
			func(method georef.TransformMethod, src []georef.Point, truth func(georef.Point) georef.Point, tol float64) {
				dst := mapPoints(src, truth)
				t := transformer.NewGCPTransformer(method)
				Expect(t.Method()).To(Equal(method))
				Expect(t.UpdateParametersFromGCPs(src, dst, false)).To(Succeed())
				for i := range src {
					got, err := t.Forward(src[i])
					Expect(err).To(BeNil())
					expectClose(got, dst[i], tol)
				}
			},
			table.Entry("Linear (minimum)", georef.Linear, []georef.Point{{X: 0, Y: 0}, {X: 3, Y: 7}}, linearTruth, 1e-6),
			table.Entry("Linear", georef.Linear, grid(3, 50), linearTruth, 1e-6),
			table.Entry("Helmert (minimum)", georef.Helmert, []georef.Point{{X: 0, Y: 0}, {X: 3, Y: 7}}, helmertTruth, 1e-6),
			table.Entry("Helmert", georef.Helmert, grid(3, 50), helmertTruth, 1e-6),
			table.Entry("Polynomial1 (minimum)", georef.Polynomial1, []georef.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}}, affineTruth, 1e-6),
			table.Entry("Polynomial1", georef.Polynomial1, grid(4, 100), affineTruth, 1e-6),
			table.Entry("Polynomial2", georef.Polynomial2, grid(4, 100), quadTruth, 1e-6),
			table.Entry("Polynomial3", georef.Polynomial3, grid(4, 100), cubicTruth, 1e-6),
			table.Entry("ThinPlateSpline", georef.ThinPlateSpline, grid(4, 100), warpTruth, 1e-6),
			table.Entry("Projective", georef.Projective, grid(4, 100), homographyTruth, 1e-6),
		)

		table.DescribeTable("it should fail with too few points",
			func(method georef.TransformMethod) {
				n := method.MinimumGCPCount() - 1
				src := grid(4, 100)[:n]
				t := transformer.NewGCPTransformer(method)
				err := t.UpdateParametersFromGCPs(src, src, false)
				Expect(georef.IsError(err, georef.InsufficientPoints)).To(BeTrue(), "%v", err)
				_, err = t.Forward(georef.Point{})
				Expect(georef.IsError(err, georef.NotInitialized)).To(BeTrue())
			},
			table.Entry("Linear", georef.Linear),
			table.Entry("Helmert", georef.Helmert),
			table.Entry("Polynomial1", georef.Polynomial1),
			table.Entry("Polynomial2", georef.Polynomial2),
			table.Entry("Polynomial3", georef.Polynomial3),
			table.Entry("ThinPlateSpline", georef.ThinPlateSpline),
			table.Entry("Projective", georef.Projective),
		)

		table.DescribeTable("it should detect degenerate geometries",
			func(method georef.TransformMethod, src []georef.Point) {
				t := transformer.NewGCPTransformer(method)
				err := t.UpdateParametersFromGCPs(src, mapPoints(src, affineTruth), false)
				Expect(georef.IsError(err, georef.DegenerateGeometry)).To(BeTrue(), "%v", err)
			},
			table.Entry("Linear: aligned on X", georef.Linear, []georef.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: 20}}),
			table.Entry("Helmert: coincident", georef.Helmert, []georef.Point{{X: 5, Y: 5}, {X: 5, Y: 5}}),
			table.Entry("Polynomial1: collinear", georef.Polynomial1, []georef.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}),
			table.Entry("ThinPlateSpline: collinear", georef.ThinPlateSpline, []georef.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}),
			table.Entry("Projective: collinear", georef.Projective, []georef.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}),
		)

		It("it should fail on mismatched lengths", func() {
			t := transformer.NewGCPTransformer(georef.Helmert)
			err := t.UpdateParametersFromGCPs(grid(2, 1)[:3], grid(2, 1)[:2], false)
			Expect(georef.IsError(err, georef.MismatchedLengths)).To(BeTrue())
		})

		It("it should refuse to fit an invalid method", func() {
			t := transformer.NewGCPTransformer(georef.InvalidTransform)
			err := t.UpdateParametersFromGCPs(grid(3, 1), grid(3, 1), false)
			Expect(georef.IsError(err, georef.InvalidMethod)).To(BeTrue())
		})

		It("it should keep the previous parameters when a fit fails", func() {
			src := grid(3, 50)
			t := transformer.NewGCPTransformer(georef.Polynomial1)
			Expect(t.UpdateParametersFromGCPs(src, mapPoints(src, affineTruth), false)).To(Succeed())
			collinear := []georef.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}
			Expect(t.UpdateParametersFromGCPs(collinear, collinear, false)).NotTo(Succeed())
			got, err := t.Forward(georef.Point{X: 10, Y: 10})
			Expect(err).To(BeNil())
			expectClose(got, affineTruth(georef.Point{X: 10, Y: 10}), 1e-6)
		})
	})

	Describe("inverse", func() {
		table.DescribeTable("it should invert the forward transform",
			func(method georef.TransformMethod, src []georef.Point, truth func(georef.Point) georef.Point, accurate bool, tol float64) {
				t := transformer.NewGCPTransformer(method)
				Expect(t.ProvidesAccurateInverse()).To(Equal(accurate))
				Expect(t.UpdateParametersFromGCPs(src, mapPoints(src, truth), false)).To(Succeed())
				for _, p := range []georef.Point{{X: 123.4, Y: 56.7}, {X: 10, Y: 290}, {X: 0, Y: 0}} {
					w, err := t.Forward(p)
					Expect(err).To(BeNil())
					back, err := t.Inverse(w)
					Expect(err).To(BeNil())
					expectClose(back, p, tol)
				}
			},
			table.Entry("Linear", georef.Linear, grid(3, 150), linearTruth, true, 1e-6),
			table.Entry("Helmert", georef.Helmert, grid(3, 150), helmertTruth, true, 1e-6),
			table.Entry("Polynomial1", georef.Polynomial1, grid(3, 150), affineTruth, true, 1e-6),
			table.Entry("Polynomial2", georef.Polynomial2, grid(4, 100), quadTruth, false, 1e-5),
			table.Entry("Polynomial3", georef.Polynomial3, grid(4, 100), cubicTruth, false, 1e-5),
			table.Entry("ThinPlateSpline", georef.ThinPlateSpline, grid(4, 100), warpTruth, false, 1e-5),
			table.Entry("Projective", georef.Projective, grid(4, 100), homographyTruth, false, 1e-6),
		)

		It("it should handle an inverted Y axis", func() {
			src := []georef.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
			dst := []georef.Point{{X: 1000, Y: 2000}, {X: 1100, Y: 2000}, {X: 1000, Y: 1900}}
			t := &transformer.LinearTransform{}
			Expect(t.UpdateParametersFromGCPs(src, dst, true)).To(Succeed())
			origin, sx, sy, ok := t.OriginScale()
			Expect(ok).To(BeTrue())
			expectClose(origin, georef.Point{X: 1000, Y: 2000}, 1e-9)
			Expect(sx).To(BeNumerically("~", 10, 1e-9))
			Expect(sy).To(BeNumerically("~", 10, 1e-9))
			w, err := t.Forward(georef.Point{X: 5, Y: 5})
			Expect(err).To(BeNil())
			expectClose(w, georef.Point{X: 1050, Y: 1950}, 1e-9)
			p, err := t.Inverse(w)
			Expect(err).To(BeNil())
			expectClose(p, georef.Point{X: 5, Y: 5}, 1e-9)
		})
	})

	Describe("approximation failures", func() {
		table.DescribeTable("it should fail with ApproximationFailed",
			func(apply func() error) {
				err := apply()
				Expect(georef.IsError(err, georef.ApproximationFailed)).To(BeTrue(), "%v", err)
			},
			table.Entry("Polynomial2: no preimage", func() error {
				_, err := fitted(georef.Polynomial2, grid(4, 100), foldTruth).Inverse(georef.Point{X: -1000, Y: 150})
				return err
			}),
			table.Entry("Polynomial2: singular jacobian", func() error {
				diagonal := func(p georef.Point) georef.Point {
					f := foldTruth(p)
					return georef.Point{X: f.X, Y: f.X}
				}
				_, err := fitted(georef.Polynomial2, grid(4, 100), diagonal).Inverse(georef.Point{X: 10000, Y: 10000})
				return err
			}),
			table.Entry("Projective: line at infinity", func() error {
				_, err := fitted(georef.Projective, grid(4, 100), homographyTruth).Forward(georef.Point{X: -10000, Y: 0})
				return err
			}),
			table.Entry("ThinPlateSpline: coincident destinations", func() error {
				sum := func(p georef.Point) georef.Point { return georef.Point{X: p.X + p.Y, Y: p.X + p.Y} }
				_, err := fitted(georef.ThinPlateSpline, grid(3, 100), sum).Inverse(georef.Point{X: 100, Y: 100})
				return err
			}),
		)

		It("it should fit a polynomial without affine approximation of its inverse", func() {
			t := fitted(georef.Polynomial2, grid(4, 100), foldTruth)
			Expect(t.ProvidesAccurateInverse()).To(BeFalse())
			for _, p := range []georef.Point{{X: 50, Y: 150}, {X: 280, Y: 20}, {X: 0, Y: 0}} {
				w, err := t.Forward(p)
				Expect(err).To(BeNil())
				expectClose(w, foldTruth(p), 1e-6)
				back, err := t.Inverse(w)
				Expect(err).To(BeNil())
				w2, err := t.Forward(back)
				Expect(err).To(BeNil())
				expectClose(w2, w, 1e-3)
			}
			c := t.Clone()
			back, err := c.Inverse(georef.Point{X: 10000, Y: 150})
			Expect(err).To(BeNil())
			// either branch of the fold
			Expect(math.Abs(back.X - 150)).To(BeNumerically("~", 100, 1e-4))
			Expect(back.Y).To(BeNumerically("~", 150, 1e-4))
		})
	})

	Describe("decomposition", func() {
		It("it should return the Helmert parameters", func() {
			src := grid(3, 50)
			t := &transformer.HelmertTransform{}
			_, _, _, ok := t.OriginScaleRotation()
			Expect(ok).To(BeFalse())
			Expect(t.UpdateParametersFromGCPs(src, mapPoints(src, helmertTruth), false)).To(Succeed())
			origin, scale, rotation, ok := t.OriginScaleRotation()
			Expect(ok).To(BeTrue())
			expectClose(origin, georef.Point{X: 300000, Y: 5000000}, 1e-6)
			Expect(scale).To(BeNumerically("~", 10, 1e-9))
			Expect(rotation).To(BeNumerically("~", 0.2, 1e-9))
			a, ok := t.Affine()
			Expect(ok).To(BeTrue())
			want := affine.Similarity(300000, 5000000, 10, 0.2)
			for i := range a {
				Expect(a[i]).To(BeNumerically("~", want[i], 1e-6))
			}
		})

		It("it should return the polynomial coefficients", func() {
			src := grid(4, 100)
			t := transformer.NewGCPTransformer(georef.Polynomial2).(*transformer.PolynomialTransform)
			Expect(t.UpdateParametersFromGCPs(src, mapPoints(src, quadTruth), false)).To(Succeed())
			center, scale, cx, cy, ok := t.Coefficients()
			Expect(ok).To(BeTrue())
			expectClose(center, georef.Point{X: 150, Y: 150}, 1e-9)
			Expect(scale).To(BeNumerically("~", 150, 1e-9))
			Expect(cx).To(HaveLen(6))
			Expect(cy).To(HaveLen(6))
			// X = 1000 + 2x + 0.001x²: the u² coefficient is 0.001*scale²
			Expect(cx[3]).To(BeNumerically("~", 0.001*150*150, 1e-6))
			Expect(cx[5]).To(BeNumerically("~", 0, 1e-6))
		})

		It("it should return the homography", func() {
			src := grid(4, 100)
			t := &transformer.ProjectiveTransform{}
			Expect(t.UpdateParametersFromGCPs(src, mapPoints(src, homographyTruth), false)).To(Succeed())
			h, ok := t.Homography()
			Expect(ok).To(BeTrue())
			Expect(h[8]).To(Equal(1.0))
			Expect(h[2]).To(BeNumerically("~", 500, 1e-4))
			Expect(h[5]).To(BeNumerically("~", 300, 1e-4))
		})
	})

	Describe("cloning", func() {
		table.DescribeTable("it should not share the fitted parameters",
			func(method georef.TransformMethod) {
				src := grid(4, 100)
				t := transformer.NewGCPTransformer(method)
				Expect(t.UpdateParametersFromGCPs(src, mapPoints(src, affineTruth), false)).To(Succeed())
				c := t.Clone()
				Expect(c.Method()).To(Equal(method))
				Expect(t.UpdateParametersFromGCPs(src, mapPoints(src, helmertTruth), false)).To(Succeed())
				p := georef.Point{X: 42, Y: 24}
				got, err := c.Forward(p)
				Expect(err).To(BeNil())
				expectClose(got, affineTruth(p), 1e-6)
			},
			table.Entry("Polynomial1", georef.Polynomial1),
			table.Entry("Polynomial2", georef.Polynomial2),
			table.Entry("Polynomial3", georef.Polynomial3),
			table.Entry("ThinPlateSpline", georef.ThinPlateSpline),
			table.Entry("Projective", georef.Projective),
		)
	})
})
