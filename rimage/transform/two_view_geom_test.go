package transform

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/vslam/spatialmath"
)

// syntheticMatches projects random points in front of the origin camera into both views.
func syntheticMatches(t *testing.T, intrinsics *PinholeCameraIntrinsics, pose spatialmath.Pose, n int) ([]r2.Point, []r2.Point) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	var pts1, pts2 []r2.Point
	for len(pts1) < n {
		pt := r3.Vector{X: rng.Float64()*4 - 2, Y: rng.Float64()*3 - 1.5, Z: 4 + rng.Float64()*6}
		px1, ok1 := intrinsics.PointToPixel(pt)
		px2, ok2 := intrinsics.PointToPixel(pose.Transform(pt))
		if !ok1 || !ok2 {
			continue
		}
		pts1 = append(pts1, px1)
		pts2 = append(pts2, px2)
	}
	return pts1, pts2
}

func TestFundamentalMatrix(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}
	pose := spatialmath.NewPose(spatialmath.NewRotationMatrixFromAxisAngle(r3.Vector{Y: 1}, 0.1), r3.Vector{X: -1, Z: 0.2})
	pts1, pts2 := syntheticMatches(t, intrinsics, pose, 30)

	f, err := ComputeFundamentalMatrixAllPoints(pts1, pts2, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Norm(f, 2), test.ShouldAlmostEqual, 1.)
	for i := range pts1 {
		test.That(t, SampsonDistance(f, pts1[i], pts2[i]), test.ShouldBeLessThan, 1e-6)
	}
	test.That(t, SampsonDistance(f, pts1[0], r2.Point{X: 10, Y: 470}), test.ShouldBeGreaterThan, 1.)

	_, err = ComputeFundamentalMatrixAllPoints(pts1[:7], pts2[:7], true)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ComputeFundamentalMatrixAllPoints(pts1, pts2[:9], true)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEstimateNewPose(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}
	k := intrinsics.GetCameraMatrix()
	trans := r3.Vector{X: -1, Y: 0.1, Z: 0.3}
	pose := spatialmath.NewPose(spatialmath.NewRotationMatrixFromAxisAngle(r3.Vector{X: 0.2, Y: 1}, 0.15), trans)
	pts1, pts2 := syntheticMatches(t, intrinsics, pose, 40)

	estimated, err := EstimateNewPose(pts1, pts2, k, k)
	test.That(t, err, test.ShouldBeNil)

	rot, expected := estimated.Rotation(), pose.Rotation()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			test.That(t, rot.At(r, c), test.ShouldAlmostEqual, expected.At(r, c), 1e-6)
		}
	}
	// translation is only known up to scale
	got := estimated.Translation()
	test.That(t, got.Norm(), test.ShouldAlmostEqual, 1., 1e-9)
	test.That(t, got.Dot(trans.Normalize()), test.ShouldAlmostEqual, 1., 1e-6)

	_, err = EstimateNewPose(pts1, pts2[:10], k, k)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTriangulateDLT(t *testing.T) {
	pose := spatialmath.NewPose(nil, r3.Vector{X: -1})
	p1 := ProjectionMatrix(spatialmath.NewZeroPose())
	p2 := ProjectionMatrix(pose)

	truth := r3.Vector{X: 0.3, Y: -0.2, Z: 5}
	b1 := truth.Normalize()
	b2 := pose.Transform(truth).Normalize()
	pt, ok := TriangulateDLT(p1, p2, b1, b2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt.Sub(truth).Norm(), test.ShouldBeLessThan, 1e-9)

	pts, err := GetLinearTriangulatedPoints(pose, []r3.Vector{b1}, []r3.Vector{b2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pts[0].Sub(truth).Norm(), test.ShouldBeLessThan, 1e-9)
	test.That(t, GetNumberPositiveDepth(pose, []r3.Vector{b1}, []r3.Vector{b2}), test.ShouldEqual, 1)

	// parallel rays meet at infinity
	_, ok = TriangulateDLT(p1, p2, r3.Vector{Z: 1}, r3.Vector{Z: 1})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTriangulateRays(t *testing.T) {
	rot := spatialmath.NewRotationMatrixFromAxisAngle(r3.Vector{X: 0.2, Y: 1}, -0.15)
	pose := spatialmath.NewPose(rot, r3.Vector{X: -0.8, Y: 0.1, Z: 0.05})
	zero := spatialmath.NewZeroPose()

	truth := r3.Vector{X: 0.3, Y: -0.2, Z: 5}
	b1 := truth.Normalize()
	b2 := pose.Transform(truth).Normalize()
	pt, ok := TriangulateRays(zero.Rotation(), zero.Translation(), pose.Rotation(), pose.Translation(), b1, b2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt.Sub(truth).Norm(), test.ShouldBeLessThan, 1e-9)

	// with noisy rays both solvers land close together
	noisy := b2.Add(r3.Vector{X: 1e-3}).Normalize()
	dlt, ok := TriangulateDLT(ProjectionMatrix(zero), ProjectionMatrix(pose), b1, noisy)
	test.That(t, ok, test.ShouldBeTrue)
	pt, ok = TriangulateRays(zero.Rotation(), zero.Translation(), pose.Rotation(), pose.Translation(), b1, noisy)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt.Sub(dlt).Norm(), test.ShouldBeLessThan, 0.05)

	ident := spatialmath.NewIdentityRotation()
	_, ok = TriangulateRays(ident, r3.Vector{}, ident, r3.Vector{X: -1}, r3.Vector{Z: 1}, r3.Vector{Z: 1})
	test.That(t, ok, test.ShouldBeFalse)

	allocs := testing.AllocsPerRun(100, func() {
		TriangulateRays(ident, r3.Vector{}, ident, r3.Vector{X: -1}, b1, b2)
	})
	test.That(t, allocs, test.ShouldEqual, 0.)
}

func TestGetPossibleCameraPoses(t *testing.T) {
	// E = [t]x R with R identity and t along x.
	e := mat.NewDense(3, 3, []float64{0, 0, 0, 0, 0, -1, 0, 1, 0})
	poses, err := GetPossibleCameraPoses(e)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(poses), test.ShouldEqual, 4)
	for _, p := range poses {
		rot := p.Rotation()
		test.That(t, rot.CheckValid(), test.ShouldBeNil)
		test.That(t, math.Abs(p.Translation().X), test.ShouldAlmostEqual, 1.)
	}

	_, _, err = GetCorrectCameraPose(poses, nil, nil)
	test.That(t, err, test.ShouldBeError, ErrNoValidPose)
}
