package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestRotationMatrix(t *testing.T) {
	_, err := NewRotationMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)

	rot := NewRotationMatrixFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2)
	test.That(t, rot.CheckValid(), test.ShouldBeNil)
	test.That(t, rot.Det(), test.ShouldAlmostEqual, 1.)

	v := rot.Mul(r3.Vector{X: 1})
	test.That(t, v.X, test.ShouldAlmostEqual, 0.)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1.)
	test.That(t, v.Z, test.ShouldAlmostEqual, 0.)

	back := rot.Transpose().Mul(v)
	test.That(t, back.X, test.ShouldAlmostEqual, 1.)
	test.That(t, back.Y, test.ShouldAlmostEqual, 0.)

	identity := rot.MatMul(rot.Transpose())
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			expected := 0.
			if r == c {
				expected = 1.
			}
			test.That(t, identity.At(r, c), test.ShouldAlmostEqual, expected)
		}
	}
	test.That(t, rot.Row(0).Dot(rot.Col(0)), test.ShouldAlmostEqual, rot.At(0, 0)*rot.At(0, 0)+rot.At(0, 1)*rot.At(1, 0)+rot.At(0, 2)*rot.At(2, 0))

	notRot, err := NewRotationMatrix([]float64{2, 0, 0, 0, 1, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, notRot.CheckValid(), test.ShouldNotBeNil)

	reflection, err := NewRotationMatrix([]float64{-1, 0, 0, 0, 1, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reflection.CheckValid().Error(), test.ShouldContainSubstring, "determinant")

	test.That(t, NewRotationMatrixFromAxisAngle(r3.Vector{}, 1).CheckValid(), test.ShouldBeNil)
}

func TestPoseCenterAndInverse(t *testing.T) {
	// A camera sitting at world (1, 0, 0) looking down +Z has t = -R c = (-1, 0, 0).
	p := NewPose(nil, r3.Vector{X: -1})
	c := p.Center()
	test.That(t, c.X, test.ShouldAlmostEqual, 1.)
	test.That(t, c.Y, test.ShouldAlmostEqual, 0.)
	test.That(t, c.Z, test.ShouldAlmostEqual, 0.)

	rot := NewRotationMatrixFromAxisAngle(r3.Vector{X: 1, Y: 2, Z: 3}, 0.7)
	q := NewPose(rot, r3.Vector{X: 0.3, Y: -2, Z: 5})
	pt := r3.Vector{X: 4, Y: 5, Z: 6}
	roundTrip := q.Inverse().Transform(q.Transform(pt))
	test.That(t, roundTrip.Sub(pt).Norm(), test.ShouldBeLessThan, 1e-9)

	// The camera center maps to the camera origin.
	test.That(t, q.Transform(q.Center()).Norm(), test.ShouldBeLessThan, 1e-9)
	test.That(t, PoseAlmostEqual(q.Compose(q.Inverse()), NewZeroPose(), 1e-9), test.ShouldBeTrue)
}

func TestPoseMatrix(t *testing.T) {
	rot := NewRotationMatrixFromAxisAngle(r3.Vector{Y: 1}, 0.25)
	p := NewPose(rot, r3.Vector{X: 1, Y: 2, Z: 3})
	m := p.Matrix()
	r, c := m.Dims()
	test.That(t, r, test.ShouldEqual, 4)
	test.That(t, c, test.ShouldEqual, 4)
	test.That(t, m.At(3, 3), test.ShouldEqual, 1.)
	test.That(t, m.At(2, 3), test.ShouldEqual, 3.)

	fromMat, err := NewPoseFromMatrix(m)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, PoseAlmostEqual(fromMat, p, 1e-12), test.ShouldBeTrue)

	_, err = NewPoseFromMatrix(rot.Dense())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPoseConfig(t *testing.T) {
	cfg := &PoseConfig{AxisAngle: &AxisAngleConfig{Axis: r3.Vector{Z: 1}, ThetaDeg: 90}, Translation: r3.Vector{X: 1}}
	p, err := cfg.ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Rotation().At(1, 0), test.ShouldAlmostEqual, 1.)

	back, err := PoseToConfig(p).ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, PoseAlmostEqual(back, p, 1e-12), test.ShouldBeTrue)

	bad := &PoseConfig{Rotation: []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, AxisAngle: &AxisAngleConfig{}}
	test.That(t, bad.Validate("kf1.pose"), test.ShouldNotBeNil)

	scaled := &PoseConfig{Rotation: []float64{2, 0, 0, 0, 2, 0, 0, 0, 2}}
	_, err = scaled.ParseConfig()
	test.That(t, err, test.ShouldNotBeNil)

	var missing *PoseConfig
	test.That(t, missing.Validate("kf1").Error(), test.ShouldContainSubstring, "pose")

	identity, err := (&PoseConfig{}).ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, PoseAlmostEqual(identity, NewZeroPose(), 1e-12), test.ShouldBeTrue)
}
