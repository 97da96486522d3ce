package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/vslam/spatialmath"
)

// minHomogeneousScale is the smallest last coordinate of a unit homogeneous solution treated as finite.
const minHomogeneousScale = 1e-12

// ErrNoValidPose is returned when no candidate pose puts any point in front of both cameras.
var ErrNoValidPose = errors.New("no candidate pose has points in front of both cameras")

// ProjectionMatrix returns the 3x4 [R|t] matrix of a world to camera pose.
func ProjectionMatrix(pose spatialmath.Pose) *mat.Dense {
	return mat.DenseCopyOf(pose.Matrix().Slice(0, 3, 0, 4))
}

// GetPossibleCameraPoses computes all 4 possible poses from the essential matrix.
func GetPossibleCameraPoses(essMat *mat.Dense) ([]spatialmath.Pose, error) {
	R1, R2, t, err := DecomposeEssentialMatrix(essMat)
	if err != nil {
		return nil, err
	}
	poses := make([]spatialmath.Pose, 0, 4)
	for _, rot := range []*mat.Dense{R1, R2} {
		for _, trans := range []r3.Vector{t, t.Mul(-1)} {
			var pm mat.Dense
			pm.Augment(rot, mat.NewDense(3, 1, []float64{trans.X, trans.Y, trans.Z}))
			pose, err := spatialmath.NewPoseFromMatrix(&pm)
			if err != nil {
				return nil, err
			}
			poses = append(poses, pose)
		}
	}
	return poses, nil
}

// TriangulateDLT solves for the point seen along ray b1 by the camera with projection p1 and along b2 by
// the camera with projection p2. Each view contributes two rows of the linear system and the solution is
// the right singular vector of the smallest singular value. ok is false when the system cannot be factorized
// or the solution lies at infinity.
func TriangulateDLT(p1, p2 mat.Matrix, b1, b2 r3.Vector) (r3.Vector, bool) {
	a := mat.NewDense(4, 4, nil)
	setDLTRows(a, 0, p1, b1)
	setDLTRows(a, 2, p2, b2)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return r3.Vector{}, false
	}
	var v mat.Dense
	svd.VTo(&v)
	w := v.At(3, 3)
	if math.Abs(w) < minHomogeneousScale || math.IsNaN(w) {
		return r3.Vector{}, false
	}
	pt := r3.Vector{X: v.At(0, 3) / w, Y: v.At(1, 3) / w, Z: v.At(2, 3) / w}
	if math.IsInf(pt.Norm(), 0) || math.IsNaN(pt.Norm()) {
		return r3.Vector{}, false
	}
	return pt, true
}

func setDLTRows(a *mat.Dense, row int, p mat.Matrix, b r3.Vector) {
	for c := 0; c < 4; c++ {
		a.Set(row, c, b.X*p.At(2, c)-b.Z*p.At(0, c))
		a.Set(row+1, c, b.Y*p.At(2, c)-b.Z*p.At(1, c))
	}
}

// minNormalDeterminant is the smallest determinant of the normal matrix, relative to the product of its
// row norms, that TriangulateRays solves.
const minNormalDeterminant = 1e-12

// normalEquations accumulates rows a·X = -c into the 3x3 system AᵀA X = -Aᵀc.
type normalEquations struct {
	m   [3]r3.Vector
	rhs r3.Vector
}

func (ne *normalEquations) addRow(a r3.Vector, c float64) {
	ne.m[0] = ne.m[0].Add(a.Mul(a.X))
	ne.m[1] = ne.m[1].Add(a.Mul(a.Y))
	ne.m[2] = ne.m[2].Add(a.Mul(a.Z))
	ne.rhs = ne.rhs.Sub(a.Mul(c))
}

// addView adds the two rows that ray b contributes in the camera with world to camera rotation rot and
// translation trans. They are the rows setDLTRows builds, split into the point part and the constant.
func (ne *normalEquations) addView(rot *spatialmath.RotationMatrix, trans, b r3.Vector) {
	r0, r1, r2 := rot.Row(0), rot.Row(1), rot.Row(2)
	ne.addRow(r2.Mul(b.X).Sub(r0.Mul(b.Z)), b.X*trans.Z-b.Z*trans.X)
	ne.addRow(r2.Mul(b.Y).Sub(r1.Mul(b.Z)), b.Y*trans.Z-b.Z*trans.Y)
}

// solve applies Cramer's rule. The normal matrix is symmetric so its rows are also its columns.
func (ne *normalEquations) solve() (r3.Vector, bool) {
	m0, m1, m2 := ne.m[0], ne.m[1], ne.m[2]
	det := m0.Dot(m1.Cross(m2))
	scale := m0.Norm() * m1.Norm() * m2.Norm()
	if !(math.Abs(det) > minNormalDeterminant*scale) {
		return r3.Vector{}, false
	}
	pt := r3.Vector{
		X: ne.rhs.Dot(m1.Cross(m2)) / det,
		Y: m0.Dot(ne.rhs.Cross(m2)) / det,
		Z: m0.Dot(m1.Cross(ne.rhs)) / det,
	}
	if math.IsInf(pt.Norm(), 0) || math.IsNaN(pt.Norm()) {
		return r3.Vector{}, false
	}
	return pt, true
}

// TriangulateRays solves the rows of TriangulateDLT with the last homogeneous coordinate of the point
// fixed to one, in the least squares sense. It works on the stack and does not allocate. rot and trans
// are the world to camera rotation and translation of each view. ok is false when the rays are parallel
// or the system is otherwise singular.
func TriangulateRays(
	rot1 *spatialmath.RotationMatrix, trans1 r3.Vector,
	rot2 *spatialmath.RotationMatrix, trans2 r3.Vector,
	b1, b2 r3.Vector,
) (r3.Vector, bool) {
	var ne normalEquations
	ne.addView(rot1, trans1, b1)
	ne.addView(rot2, trans2, b2)
	return ne.solve()
}

// GetLinearTriangulatedPoints triangulates normalized image points of the first camera, sitting at the origin,
// and of the second camera at pose.
func GetLinearTriangulatedPoints(pose spatialmath.Pose, pts1, pts2 []r3.Vector) ([]r3.Vector, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("the 2 sets of points don't have the same number of elements")
	}
	p1 := ProjectionMatrix(spatialmath.NewZeroPose())
	p2 := ProjectionMatrix(pose)
	pts3d := make([]r3.Vector, len(pts1))
	for i := range pts1 {
		pt, ok := TriangulateDLT(p1, p2, pts1[i], pts2[i])
		if !ok {
			return nil, errors.Errorf("failed to triangulate point %d", i)
		}
		pts3d[i] = pt
	}
	return pts3d, nil
}

// GetNumberPositiveDepth counts the triangulated points that lie in front of both cameras.
func GetNumberPositiveDepth(pose spatialmath.Pose, pts1, pts2 []r3.Vector) int {
	pts3D, err := GetLinearTriangulatedPoints(pose, pts1, pts2)
	if err != nil {
		return 0
	}
	nPositiveDepth := 0
	for _, pt := range pts3D {
		if pt.Z > 0 && pose.Transform(pt).Z > 0 {
			nPositiveDepth++
		}
	}
	return nPositiveDepth
}

// GetCorrectCameraPose returns the pose with the most points in front of both cameras and that count.
func GetCorrectCameraPose(poses []spatialmath.Pose, pts1, pts2 []r3.Vector) (spatialmath.Pose, int, error) {
	best, maxNumPosDepth := -1, 0
	for i, pose := range poses {
		if n := GetNumberPositiveDepth(pose, pts1, pts2); n > maxNumPosDepth {
			best, maxNumPosDepth = i, n
		}
	}
	if best < 0 {
		return spatialmath.Pose{}, 0, ErrNoValidPose
	}
	return poses[best], maxNumPosDepth, nil
}

// EstimateNewPose estimates the pose of the second camera relative to the first from pixel matches.
// k1 and k2 are the camera matrices of the two views. The translation of the result has unit norm.
func EstimateNewPose(pts1, pts2 []r2.Point, k1, k2 *mat.Dense) (spatialmath.Pose, error) {
	if len(pts1) != len(pts2) {
		return spatialmath.Pose{}, errors.New("the 2 sets of points don't have the same number of elements")
	}
	fundamentalMatrix, err := ComputeFundamentalMatrixAllPoints(pts1, pts2, true)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return PoseFromFundamental(fundamentalMatrix, pts1, pts2, k1, k2)
}

// PoseFromFundamental upgrades f to an essential matrix and picks the decomposition that passes cheirality.
func PoseFromFundamental(f *mat.Dense, pts1, pts2 []r2.Point, k1, k2 *mat.Dense) (spatialmath.Pose, error) {
	essentialMatrix, err := GetEssentialMatrixFromFundamental(k1, k2, f)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	poses, err := GetPossibleCameraPoses(essentialMatrix)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	n1, err := NormalizeImagePoints(pts1, k1)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	n2, err := NormalizeImagePoints(pts2, k2)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	pose, _, err := GetCorrectCameraPose(poses, n1, n2)
	return pose, err
}
