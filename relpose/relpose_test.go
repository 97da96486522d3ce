package relpose

import (
	"context"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/vslam/camera"
	"go.viam.com/vslam/keyframe"
	"go.viam.com/vslam/logging"
	"go.viam.com/vslam/rimage/transform"
	"go.viam.com/vslam/spatialmath"
	"go.viam.com/vslam/triangulation"
)

var testIntrinsics = &transform.PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}

type scene struct {
	points []r3.Vector
	corrs  []Correspondence
	pose   spatialmath.Pose
}

func newScene(t *testing.T, n int) scene {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	s := scene{pose: spatialmath.NewPose(
		spatialmath.NewRotationMatrixFromAxisAngle(r3.Vector{X: 0.1, Y: 1}, 0.08),
		r3.Vector{X: -0.6, Y: 0.05, Z: 0.1},
	)}
	for len(s.points) < n {
		pt := r3.Vector{X: rng.Float64()*4 - 2, Y: rng.Float64()*3 - 1.5, Z: 4 + rng.Float64()*4}
		px1, ok1 := testIntrinsics.PointToPixel(pt)
		px2, ok2 := testIntrinsics.PointToPixel(s.pose.Transform(pt))
		if !ok1 || !ok2 || !testIntrinsics.InImage(px1) || !testIntrinsics.InImage(px2) {
			continue
		}
		s.points = append(s.points, pt)
		s.corrs = append(s.corrs, Correspondence{Pt1: px1, Pt2: px2})
	}
	return s
}

func TestMinimalSampleSize(t *testing.T) {
	test.That(t, MinimalSampleSize(Fundamental), test.ShouldEqual, 7)
	test.That(t, MinimalSampleSize(Essential), test.ShouldEqual, 5)
	test.That(t, MinimalSampleSize(Homography), test.ShouldEqual, 4)
	test.That(t, MinimalSampleSize(Plane), test.ShouldEqual, 3)
	test.That(t, MinimalSampleSize("pnp"), test.ShouldEqual, 0)
}

func TestDegenerateSamples(t *testing.T) {
	good := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 7, Y: 6}}
	test.That(t, IsDegenerate(good), test.ShouldBeFalse)
	test.That(t, IsDegenerate([]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: 1e-9}}), test.ShouldBeTrue)
	test.That(t, IsDegenerate([]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 5, Y: 5}}), test.ShouldBeTrue)

	test.That(t, IsCollinear(good), test.ShouldBeFalse)
	test.That(t, IsCollinear([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: 4}, {X: 3, Y: 6}}), test.ShouldBeTrue)
	test.That(t, IsCollinear([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 2}}), test.ShouldBeTrue)
	test.That(t, IsCollinear([]r2.Point{{X: 4, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 4}}), test.ShouldBeTrue)
}

func TestEightPointProvider(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := NewEightPointProvider(&EightPointConfig{}, logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "intrinsics1")

	provider, err := NewEightPointProvider(&EightPointConfig{Intrinsics1: testIntrinsics}, logger)
	test.That(t, err, test.ShouldBeNil)

	s := newScene(t, 30)
	est, err := provider.Estimate(context.Background(), s.corrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.Type, test.ShouldEqual, Fundamental)
	test.That(t, est.HasPose(), test.ShouldBeTrue)
	test.That(t, est.NumInliers(), test.ShouldEqual, len(s.corrs))

	expected := spatialmath.NewPose(s.pose.Rotation(), s.pose.Translation().Normalize())
	test.That(t, spatialmath.PoseAlmostEqual(est.Pose, expected, 1e-5), test.ShouldBeTrue)

	_, err = provider.Estimate(context.Background(), s.corrs[:7])
	test.That(t, errors.Is(err, ErrNotEnoughCorrespondences), test.ShouldBeTrue)

	line := make([]Correspondence, 10)
	for i := range line {
		line[i] = Correspondence{Pt1: r2.Point{X: float64(10 * i), Y: 100}, Pt2: r2.Point{X: float64(10*i + 5), Y: 120}}
	}
	_, err = provider.Estimate(context.Background(), line)
	test.That(t, errors.Is(err, ErrDegenerateSample), test.ShouldBeTrue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = provider.Estimate(ctx, s.corrs)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestInitializeMapFromEstimate(t *testing.T) {
	s := newScene(t, 20)
	provider, err := NewEightPointProvider(&EightPointConfig{Intrinsics1: testIntrinsics, Intrinsics2: testIntrinsics}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	est, err := provider.Estimate(context.Background(), s.corrs)
	test.That(t, err, test.ShouldBeNil)

	cam, err := camera.NewPerspectiveCamera("cam", testIntrinsics, nil, 0)
	test.That(t, err, test.ShouldBeNil)
	pyramid, err := keyframe.NewScalePyramid(keyframe.PyramidConfig{NumLevels: 1, ScaleFactor: 1.2})
	test.That(t, err, test.ShouldBeNil)
	kps1 := make([]keyframe.Keypoint, len(s.corrs))
	kps2 := make([]keyframe.Keypoint, len(s.corrs))
	for i, c := range s.corrs {
		kps1[i] = keyframe.NewMonoKeypoint(c.Pt1, 0)
		kps2[i] = keyframe.NewMonoKeypoint(c.Pt2, 0)
	}
	// start from arbitrary poses to show they are replaced
	kf1, err := keyframe.NewKeyframe(0, spatialmath.NewPose(nil, r3.Vector{X: 9}), cam, pyramid, kps1)
	test.That(t, err, test.ShouldBeNil)
	kf2, err := keyframe.NewKeyframe(1, spatialmath.NewZeroPose(), cam, pyramid, kps2)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, ApplyToKeyframes(est, kf1, kf2), test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(kf1.Pose(), spatialmath.NewZeroPose(), 1e-12), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqual(kf2.Pose(), est.Pose, 1e-12), test.ShouldBeTrue)

	tri, err := triangulation.NewTwoViewTriangulator(kf1, kf2, nil)
	test.That(t, err, test.ShouldBeNil)
	scale := 1 / s.pose.Translation().Norm()
	accepted := 0
	for i, truth := range s.points {
		p, ok := tri.Triangulate(i, i)
		if !ok {
			continue
		}
		accepted++
		test.That(t, p.Sub(truth.Mul(scale)).Norm(), test.ShouldBeLessThan, 1e-4)
	}
	test.That(t, accepted, test.ShouldBeGreaterThan, len(s.points)/2)

	test.That(t, ApplyToKeyframes(&Estimate{Type: Homography}, kf1, kf2), test.ShouldNotBeNil)
	test.That(t, ApplyToKeyframes(est, kf1, nil), test.ShouldNotBeNil)
}
