// Package triangulation turns a keypoint correspondence between two posed keyframes into a
// world point, gated by parallax, depth, reprojection error and scale consistency.
package triangulation

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/vslam/camera"
	"go.viam.com/vslam/keyframe"
	"go.viam.com/vslam/rimage/transform"
	"go.viam.com/vslam/spatialmath"
	rutils "go.viam.com/vslam/utils"
)

// noStereoCos is larger than any cosine so a mono keypoint never wins the stereo comparison.
const noStereoCos = 2.

// viewSnapshot is everything the gates need about one keyframe, captured once.
type viewSnapshot struct {
	kf       *keyframe.Keyframe
	cam      camera.Model
	omni     bool
	rotCW    spatialmath.RotationMatrix
	rotWC    spatialmath.RotationMatrix
	transCW  r3.Vector
	center   r3.Vector
	baseline float64
	pyramid  *keyframe.ScalePyramid
}

func newViewSnapshot(kf *keyframe.Keyframe) viewSnapshot {
	pose := kf.Pose()
	return viewSnapshot{
		kf:       kf,
		cam:      kf.Camera(),
		omni:     camera.IsOmnidirectional(kf.Camera()),
		rotCW:    *pose.Rotation(),
		rotWC:    *pose.Rotation().Transpose(),
		transCW:  pose.Translation(),
		center:   pose.Center(),
		baseline: kf.Baseline(),
		pyramid:  kf.ScalePyramid(),
	}
}

// stereoCos is the cosine of the parallax a stereo keypoint sees across its own baseline.
func (v *viewSnapshot) stereoCos(kp keyframe.Keypoint) float64 {
	if !kp.IsStereo() {
		return noStereoCos
	}
	return math.Cos(2 * math.Atan2(v.baseline/2, kp.Depth))
}

func (v *viewSnapshot) toCamera(p r3.Vector) r3.Vector {
	return v.rotCW.Mul(p).Add(v.transCW)
}

func (v *viewSnapshot) depthIsPositive(p r3.Vector) bool {
	if v.omni {
		return true
	}
	return v.rotCW.Row(2).Dot(p)+v.transCW.Z > 0
}

// reprojectionIsConsistent checks the squared pixel error, plus the right image error for stereo
// keypoints, against chiSq times the octave variance. An error equal to the bound passes.
func (v *viewSnapshot) reprojectionIsConsistent(p r3.Vector, kp keyframe.Keypoint, isStereo bool, chiSq float64) bool {
	px, xRight, ok := v.cam.Project(v.toCamera(p))
	if !ok {
		return false
	}
	diff := px.Sub(kp.Pt)
	errSq := diff.Dot(diff)
	if isStereo {
		errSq += rutils.Square(xRight - kp.XRight)
	}
	return errSq <= chiSq*v.pyramid.LevelSigmaSq[kp.Octave]
}

// TwoViewTriangulator triangulates correspondences between a fixed pair of keyframes.
// The poses are captured at construction; build a new triangulator after either pose changes.
// The keyframes and their cameras are borrowed and must stay alive while the triangulator is used.
// A TwoViewTriangulator is immutable and safe for concurrent use.
type TwoViewTriangulator struct {
	view1, view2   viewSnapshot
	cosParallaxThr float64
	ratioFactor    float64
	chiSq2D        float64
	chiSq3D        float64
}

// NewTwoViewTriangulator snapshots the two keyframes. cfg may be nil for the defaults.
func NewTwoViewTriangulator(kf1, kf2 *keyframe.Keyframe, cfg *Config) (*TwoViewTriangulator, error) {
	if kf1 == nil || kf2 == nil {
		return nil, errors.New("both keyframes are required")
	}
	if kf1.Camera() == nil || kf2.Camera() == nil {
		return nil, errors.New("both keyframes need a camera")
	}
	if err := cfg.Validate("triangulation"); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	view1, view2 := newViewSnapshot(kf1), newViewSnapshot(kf2)
	maxScale := math.Max(view1.pyramid.ScaleFactor, view2.pyramid.ScaleFactor)
	return &TwoViewTriangulator{
		view1:          view1,
		view2:          view2,
		cosParallaxThr: rutils.CosFromDeg(*cfg.ParallaxDegThreshold),
		ratioFactor:    cfg.RatioFactorMultiplier * maxScale * maxScale,
		chiSq2D:        cfg.ChiSq2D,
		chiSq3D:        cfg.ChiSq3D,
	}, nil
}

// CosParallax returns the cosine of the angle between the world rays of the two keypoints.
func (tri *TwoViewTriangulator) CosParallax(idx1, idx2 int) float64 {
	ray1 := tri.view1.rotWC.Mul(tri.view1.kf.Bearing(idx1))
	ray2 := tri.view2.rotWC.Mul(tri.view2.kf.Bearing(idx2))
	return ray1.Dot(ray2)
}

// Triangulate returns the world point observed by keypoint idx1 of the first keyframe and keypoint
// idx2 of the second, and whether every gate passed. It panics if an index is out of range.
func (tri *TwoViewTriangulator) Triangulate(idx1, idx2 int) (r3.Vector, bool) {
	p, reason := tri.TriangulateWithReason(idx1, idx2)
	return p, reason == Accepted
}

// TriangulateWithReason is Triangulate but reports the first gate that rejected the correspondence.
// The point is only meaningful when the reason is Accepted.
func (tri *TwoViewTriangulator) TriangulateWithReason(idx1, idx2 int) (r3.Vector, Rejection) {
	v1, v2 := &tri.view1, &tri.view2
	kp1, kp2 := v1.kf.Keypoint(idx1), v2.kf.Keypoint(idx2)
	bearing1, bearing2 := v1.kf.Bearing(idx1), v2.kf.Bearing(idx2)
	stereo1, stereo2 := kp1.IsStereo(), kp2.IsStereo()

	cosRays := v1.rotWC.Mul(bearing1).Dot(v2.rotWC.Mul(bearing2))
	cosStereo1, cosStereo2 := v1.stereoCos(kp1), v2.stereoCos(kp2)
	cosStereo := math.Min(cosStereo1, cosStereo2)

	var p r3.Vector
	switch {
	case 0 < cosRays && cosRays < cosStereo && (stereo1 || stereo2 || cosRays < tri.cosParallaxThr):
		var ok bool
		if p, ok = tri.solve(bearing1, bearing2); !ok {
			return r3.Vector{}, RejectDegenerate
		}
	case stereo1 && cosStereo1 < cosStereo2:
		pc, ok := v1.kf.StereoPointInCamera(idx1)
		if !ok {
			return r3.Vector{}, RejectDegenerate
		}
		p = v1.rotWC.Mul(pc).Add(v1.center)
	case stereo2 && cosStereo2 < cosStereo1:
		pc, ok := v2.kf.StereoPointInCamera(idx2)
		if !ok {
			return r3.Vector{}, RejectDegenerate
		}
		p = v2.rotWC.Mul(pc).Add(v2.center)
	default:
		return r3.Vector{}, RejectParallax
	}

	if !v1.depthIsPositive(p) || !v2.depthIsPositive(p) {
		return p, RejectDepth
	}

	chiSq1, chiSq2 := tri.chiSq2D, tri.chiSq2D
	if stereo1 {
		chiSq1 = tri.chiSq3D
	}
	if stereo2 {
		chiSq2 = tri.chiSq3D
	}
	if !v1.reprojectionIsConsistent(p, kp1, stereo1, chiSq1) || !v2.reprojectionIsConsistent(p, kp2, stereo2, chiSq2) {
		return p, RejectReprojection
	}

	if !tri.scaleIsConsistent(p, v1.pyramid.ScaleFactors[kp1.Octave], v2.pyramid.ScaleFactors[kp2.Octave]) {
		return p, RejectScale
	}
	return p, Accepted
}

// solve runs the linear triangulation and falls back to the midpoint of the closest points of the
// two rays when the linear system has no finite solution.
func (tri *TwoViewTriangulator) solve(bearing1, bearing2 r3.Vector) (r3.Vector, bool) {
	v1, v2 := &tri.view1, &tri.view2
	if p, ok := transform.TriangulateRays(&v1.rotCW, v1.transCW, &v2.rotCW, v2.transCW, bearing1, bearing2); ok {
		return p, true
	}
	return closestRayMidpoint(v1.center, v1.rotWC.Mul(bearing1), v2.center, v2.rotWC.Mul(bearing2))
}

// closestRayMidpoint returns the point halfway between the closest points of the rays o1 + s d1 and o2 + u d2.
func closestRayMidpoint(o1, d1, o2, d2 r3.Vector) (r3.Vector, bool) {
	w := o1.Sub(o2)
	a, b, c := d1.Dot(d1), d1.Dot(d2), d2.Dot(d2)
	d, e := d1.Dot(w), d2.Dot(w)
	denom := a*c - b*b
	if denom <= 1e-12*a*c {
		return r3.Vector{}, false
	}
	s := (b*e - c*d) / denom
	u := (a*e - b*d) / denom
	return o1.Add(d1.Mul(s)).Add(o2.Add(d2.Mul(u))).Mul(0.5), true
}

// scaleIsConsistent checks that the distance ratio to the two camera centers agrees with the ratio of
// the octave scales, within ratioFactor in both directions.
func (tri *TwoViewTriangulator) scaleIsConsistent(p r3.Vector, scale1, scale2 float64) bool {
	dist1 := p.Sub(tri.view1.center).Norm()
	dist2 := p.Sub(tri.view2.center).Norm()
	if dist1 == 0 || dist2 == 0 {
		return false
	}
	ratioDists := dist2 / dist1
	ratioOctave := scale1 / scale2
	return ratioOctave/ratioDists < tri.ratioFactor && ratioDists/ratioOctave < tri.ratioFactor
}
