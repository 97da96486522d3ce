package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose is a rigid transform p' = R p + t. Keyframe poses are world to camera, so Transform maps a
// world point into the camera frame and Center is the camera position in the world.
// A Pose is an immutable value.
type Pose struct {
	rotation    RotationMatrix
	translation r3.Vector
}

// NewPose builds a pose from a rotation and a translation. A nil rotation is the identity.
func NewPose(rot *RotationMatrix, trans r3.Vector) Pose {
	if rot == nil {
		rot = NewIdentityRotation()
	}
	return Pose{rotation: *rot, translation: trans}
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return NewPose(nil, r3.Vector{})
}

// NewPoseFromMatrix builds a pose from a 3x4 [R|t] or 4x4 homogeneous matrix.
func NewPoseFromMatrix(m mat.Matrix) (Pose, error) {
	rows, cols := m.Dims()
	if (rows != 3 && rows != 4) || cols != 4 {
		return Pose{}, errors.Errorf("pose matrix must be 3x4 or 4x4, got %dx%d", rows, cols)
	}
	var rot RotationMatrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			rot.mat[r*3+c] = m.At(r, c)
		}
	}
	return Pose{rotation: rot, translation: r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}}, nil
}

// Rotation returns a copy of the rotation part of the pose.
func (p Pose) Rotation() *RotationMatrix {
	rot := p.rotation
	return &rot
}

// Translation returns the translation part of the pose.
func (p Pose) Translation() r3.Vector {
	return p.translation
}

// Transform applies the pose to a point.
func (p Pose) Transform(pt r3.Vector) r3.Vector {
	return p.rotation.Mul(pt).Add(p.translation)
}

// Center returns -Rᵀt, the origin of the target frame expressed in the source frame.
func (p Pose) Center() r3.Vector {
	return p.rotation.Transpose().Mul(p.translation).Mul(-1)
}

// Inverse returns the pose mapping the target frame back to the source frame.
func (p Pose) Inverse() Pose {
	rotT := p.rotation.Transpose()
	return Pose{rotation: *rotT, translation: rotT.Mul(p.translation).Mul(-1)}
}

// Compose returns p ∘ other, the pose that applies other first and then p.
func (p Pose) Compose(other Pose) Pose {
	return Pose{
		rotation:    *p.rotation.MatMul(&other.rotation),
		translation: p.rotation.Mul(other.translation).Add(p.translation),
	}
}

// Matrix returns the 4x4 homogeneous matrix of the pose.
func (p Pose) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.Set(r, c, p.rotation.At(r, c))
		}
	}
	m.Set(0, 3, p.translation.X)
	m.Set(1, 3, p.translation.Y)
	m.Set(2, 3, p.translation.Z)
	m.Set(3, 3, 1)
	return m
}

// PoseAlmostEqual returns whether two poses differ by less than epsilon in every matrix element.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	for i := range a.rotation.mat {
		if d := a.rotation.mat[i] - b.rotation.mat[i]; d > epsilon || d < -epsilon {
			return false
		}
	}
	return a.translation.Sub(b.translation).Norm() < epsilon
}
