package svc_test

import (
	"context"
	"math"

	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/log"
	"github.com/airbusgeo/georef/internal/rastercoords"
	"github.com/airbusgeo/georef/internal/svc"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("Session", func() {
	var (
		ctx      = context.Background()
		session  *svc.Session
		logs     *observer.ObservedLogs
		restore  func()
		method   georef.TransformMethod
		opts     []svc.Option
		gcps     []georef.ControlPoint
		sources  = []georef.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
		toWorld  = func(p georef.Point) georef.Point { return georef.Point{X: 10 + 2*p.X, Y: 20 + 3*p.Y} }
		addedErr error
	)

	BeforeEach(func() {
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)
		restore = log.Replace(zap.New(core))
		method = georef.Linear
		opts = nil
	})

	AfterEach(func() {
		restore()
	})

	JustBeforeEach(func() {
		session = svc.NewSession(ctx, method, opts...)
		gcps = nil
		addedErr = nil
		for _, p := range sources {
			cp, err := session.AddGCP(ctx, p, toWorld(p))
			if err != nil {
				addedErr = err
			}
			gcps = append(gcps, cp)
		}
	})

	It("it should log with the session id", func() {
		entries := logs.FilterMessage("new session").All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].ContextMap()).To(HaveKeyWithValue("session", session.ID()))
		Expect(entries[0].ContextMap()).To(HaveKeyWithValue("method", "Linear"))
	})

	Context("without auto-fit", func() {
		It("it should not fit until asked", func() {
			Expect(addedErr).To(BeNil())
			Expect(session.Ready()).To(BeFalse())
			Expect(session.Fit(ctx)).To(Succeed())
			Expect(session.Ready()).To(BeTrue())
			Expect(logs.FilterMessage("fitted").Len()).To(Equal(1))
		})

		It("it should reset the transform when the control points change", func() {
			Expect(session.Fit(ctx)).To(Succeed())
			_, err := session.UpdateGCP(ctx, gcps[0].ID, georef.Point{X: 0.1, Y: 0}, toWorld(georef.Point{X: 0.1, Y: 0}))
			Expect(err).To(BeNil())
			Expect(session.Ready()).To(BeFalse())
		})

		It("it should warn when the fit fails", func() {
			session.SelectMethod(ctx, georef.Polynomial2)
			err := session.Fit(ctx)
			Expect(georef.IsError(err, georef.InsufficientPoints)).To(BeTrue())
			warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
			Expect(warnings).To(HaveLen(1))
			Expect(warnings[0].ContextMap()).To(HaveKeyWithValue("method", "Polynomial2"))
		})
	})

	Context("with auto-fit", func() {
		BeforeEach(func() {
			opts = []svc.Option{svc.WithAutoFit(true)}
		})

		It("it should fit as soon as there are enough points", func() {
			Expect(session.Ready()).To(BeTrue())
			res, err := session.Residuals()
			Expect(err).To(BeNil())
			Expect(res.Unit).To(Equal(georef.ResidualPixels))
			Expect(res.Points).To(HaveLen(4))
			Expect(res.RMSError()).To(BeNumerically("<", 1e-9))
		})

		It("it should refit after each edit", func() {
			// moving a point off the model produces residuals
			_, err := session.UpdateGCP(ctx, gcps[3].ID, sources[3], georef.Point{X: 13, Y: 24})
			Expect(err).To(BeNil())
			Expect(session.Ready()).To(BeTrue())
			res, err := session.Residuals()
			Expect(err).To(BeNil())
			Expect(res.RMSError()).To(BeNumerically(">", 0.1))
			worst, ok := res.Max()
			Expect(ok).To(BeTrue())
			Expect(worst.ID).To(Equal(gcps[3].ID))

			// disabling it restores a perfect fit
			Expect(session.EnableGCP(ctx, gcps[3].ID, false)).To(Succeed())
			Expect(session.Ready()).To(BeTrue())
			res, err = session.Residuals()
			Expect(err).To(BeNil())
			Expect(res.Points).To(HaveLen(3))
			Expect(res.RMSError()).To(BeNumerically("<", 1e-9))
		})

		It("it should stay uninitialized below the minimum", func() {
			Expect(session.RemoveGCP(ctx, gcps[0].ID)).To(Succeed())
			Expect(session.RemoveGCP(ctx, gcps[1].ID)).To(Succeed())
			Expect(session.RemoveGCP(ctx, gcps[2].ID)).To(Succeed())
			Expect(session.Ready()).To(BeFalse())
			Expect(session.GCPs()).To(HaveLen(1))
			_, err := session.Residuals()
			Expect(georef.IsError(err, georef.NotInitialized)).To(BeTrue())
		})

		It("it should refit when the method changes", func() {
			session.SelectMethod(ctx, georef.Polynomial1)
			Expect(session.Method()).To(Equal(georef.Polynomial1))
			Expect(session.Ready()).To(BeTrue())
			session.SelectMethod(ctx, georef.Polynomial2)
			Expect(session.Ready()).To(BeFalse())
		})

		It("it should be emptied", func() {
			session.ClearGCPs(ctx)
			Expect(session.GCPs()).To(BeEmpty())
			Expect(session.Ready()).To(BeFalse())
		})

		It("it should reject unknown control points", func() {
			err := session.RemoveGCP(ctx, "unknown")
			Expect(georef.IsError(err, georef.InvalidControlPoint)).To(BeTrue())
			Expect(session.Ready()).To(BeTrue())
		})

		It("it should give independent snapshots", func() {
			snap := session.Snapshot()
			session.ClearGCPs(ctx)
			Expect(snap.ParametersInitialized()).To(BeTrue())
			w, err := snap.TransformRasterToWorld(georef.Point{X: 2, Y: 2})
			Expect(err).To(BeNil())
			Expect(w.Equal(georef.Point{X: 14, Y: 26}, 1e-9)).To(BeTrue())
		})

		Describe("TransformBatch", func() {
			var points []georef.Point

			BeforeEach(func() {
				points = nil
				for i := 0; i < 100; i++ {
					points = append(points, georef.Point{X: float64(i), Y: float64(2 * i)})
				}
			})

			It("it should transform in both directions", func() {
				world, err := session.TransformBatch(ctx, points, true, 4)
				Expect(err).To(BeNil())
				Expect(world).To(HaveLen(100))
				for i := range points {
					Expect(world[i].Equal(toWorld(points[i]), 1e-9)).To(BeTrue())
				}
				back, err := session.TransformBatch(ctx, world, false, 3)
				Expect(err).To(BeNil())
				for i := range points {
					Expect(back[i].Equal(points[i], 1e-9)).To(BeTrue())
				}
			})

			It("it should handle more workers than points", func() {
				res, err := session.TransformBatch(ctx, points[:2], true, 16)
				Expect(err).To(BeNil())
				Expect(res).To(HaveLen(2))
				res, err = session.TransformBatch(ctx, nil, true, 0)
				Expect(err).To(BeNil())
				Expect(res).To(BeEmpty())
			})

			It("it should stop on the first error", func() {
				points[50] = georef.Point{X: math.Inf(1), Y: 0}
				_, err := session.TransformBatch(ctx, points, true, 4)
				Expect(georef.IsError(err, georef.ApproximationFailed)).To(BeTrue(), "%v", err)
			})

			It("it should fail if the transform is not fitted", func() {
				session.ClearGCPs(ctx)
				_, err := session.TransformBatch(ctx, points, true, 4)
				Expect(georef.IsError(err, georef.NotInitialized)).To(BeTrue())
			})

			It("it should honor the cancellation", func() {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				_, err := session.TransformBatch(cctx, points, true, 2)
				Expect(err).To(MatchError(context.Canceled))
			})
		})
	})

	Context("raster with a CRS", func() {
		BeforeEach(func() {
			rc, err := rastercoords.New(rastercoords.NorthUpMetadata(0, 100, 1, 1, true))
			Expect(err).To(BeNil())
			opts = []svc.Option{svc.WithAutoFit(true), svc.WithRasterCoords(rc)}
		})

		It("it should fit from the raster map coordinates", func() {
			Expect(session.Ready()).To(BeTrue())
			snap := session.Snapshot()
			Expect(snap.HasCRS()).To(BeTrue())
			w, err := snap.TransformRasterToWorld(sources[3])
			Expect(err).To(BeNil())
			Expect(w.Equal(toWorld(sources[3]), 1e-9)).To(BeTrue())
			session.SetRasterCoords(ctx, nil)
			Expect(session.Snapshot().HasCRS()).To(BeFalse())
			Expect(session.Ready()).To(BeTrue())
		})
	})
})
