package triangulation

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/vslam/camera"
	"go.viam.com/vslam/keyframe"
	"go.viam.com/vslam/spatialmath"
)

func newPinhole(t *testing.T, focalXBaseline float64) camera.Model {
	t.Helper()
	cam, err := camera.NewModel(&camera.Config{
		Name: "pinhole", Type: camera.Perspective,
		Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240,
		FocalXBaseline: focalXBaseline,
	})
	test.That(t, err, test.ShouldBeNil)
	return cam
}

func newPanorama(t *testing.T) camera.Model {
	t.Helper()
	cam, err := camera.NewModel(&camera.Config{Name: "pano", Type: camera.Equirectangular, Width: 2000, Height: 1000})
	test.That(t, err, test.ShouldBeNil)
	return cam
}

func newPyramid(t *testing.T) *keyframe.ScalePyramid {
	t.Helper()
	sp, err := keyframe.NewScalePyramid(keyframe.PyramidConfig{NumLevels: 8, ScaleFactor: 1.2})
	test.That(t, err, test.ShouldBeNil)
	return sp
}

// poseAt returns the world to camera pose of a camera with the given rotation (camera to world)
// whose center sits at center.
func poseAt(rotWC *spatialmath.RotationMatrix, center r3.Vector) spatialmath.Pose {
	if rotWC == nil {
		rotWC = spatialmath.NewIdentityRotation()
	}
	rotCW := rotWC.Transpose()
	return spatialmath.NewPose(rotCW, rotCW.Mul(center).Mul(-1))
}

// observe projects world points into a keyframe at pose with mono keypoints on the given octaves.
func observe(t *testing.T, id uint64, cam camera.Model, pose spatialmath.Pose, pts []r3.Vector, octaves []int) *keyframe.Keyframe {
	t.Helper()
	kps := make([]keyframe.Keypoint, len(pts))
	for i, pt := range pts {
		px, _, ok := cam.Project(pose.Transform(pt))
		test.That(t, ok, test.ShouldBeTrue)
		octave := 0
		if octaves != nil {
			octave = octaves[i]
		}
		kps[i] = keyframe.NewMonoKeypoint(px, octave)
	}
	kf, err := keyframe.NewKeyframe(id, pose, cam, newPyramid(t), kps)
	test.That(t, err, test.ShouldBeNil)
	return kf
}

func newKeyframe(t *testing.T, id uint64, cam camera.Model, pose spatialmath.Pose, kps ...keyframe.Keypoint) *keyframe.Keyframe {
	t.Helper()
	kf, err := keyframe.NewKeyframe(id, pose, cam, newPyramid(t), kps)
	test.That(t, err, test.ShouldBeNil)
	return kf
}

func mono(x, y float64) keyframe.Keypoint {
	return keyframe.NewMonoKeypoint(r2.Point{X: x, Y: y}, 0)
}

func newTriangulator(t *testing.T, kf1, kf2 *keyframe.Keyframe, cfg *Config) *TwoViewTriangulator {
	t.Helper()
	tri, err := NewTwoViewTriangulator(kf1, kf2, cfg)
	test.That(t, err, test.ShouldBeNil)
	return tri
}

func parallaxDeg(deg float64) *float64 {
	return &deg
}
