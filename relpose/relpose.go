// Package relpose defines what a relative pose estimator hands to map initialization: a fitted two view
// model, the correspondences that agree with it and, for epipolar models, the motion between the views.
package relpose

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/vslam/keyframe"
	"go.viam.com/vslam/spatialmath"
)

// ModelType names the geometric model an Estimate holds.
type ModelType string

// The model types a Provider may fit.
const (
	Fundamental = ModelType("fundamental")
	Essential   = ModelType("essential")
	Homography  = ModelType("homography")
	Plane       = ModelType("plane")
)

var (
	// ErrNotEnoughCorrespondences is returned when there are fewer correspondences than the model needs.
	ErrNotEnoughCorrespondences = errors.New("not enough correspondences")
	// ErrDegenerateSample is returned when the correspondences cannot constrain the model.
	ErrDegenerateSample = errors.New("degenerate sample")
)

const (
	coincidentEpsilon = 1e-6
	collinearSine     = 1e-6
	flatnessRatio     = 1e-9
)

// Correspondence is a keypoint in the first view matched to a keypoint in the second.
type Correspondence struct {
	Pt1 r2.Point
	Pt2 r2.Point
}

// Estimate is a fitted model and its inlier mask over the input correspondences.
type Estimate struct {
	Type ModelType
	// Model is 3x3 for fundamental, essential and homography models and 1x4 for a plane.
	Model   *mat.Dense
	Inliers []bool
	// Pose maps the first camera frame into the second. It is only set for fundamental and essential
	// models, and its translation has unit norm.
	Pose spatialmath.Pose
}

// NumInliers returns the number of correspondences that agree with the model.
func (e *Estimate) NumInliers() int {
	return lo.Count(e.Inliers, true)
}

// HasPose returns whether the model carries a relative pose.
func (e *Estimate) HasPose() bool {
	return e != nil && (e.Type == Fundamental || e.Type == Essential)
}

// A Provider fits a two view model to correspondences.
type Provider interface {
	Estimate(ctx context.Context, corrs []Correspondence) (*Estimate, error)
}

// MinimalSampleSize returns the fewest correspondences that determine a model of type t, or 0 when t is unknown.
func MinimalSampleSize(t ModelType) int {
	switch t {
	case Fundamental:
		return 7
	case Essential:
		return 5
	case Homography:
		return 4
	case Plane:
		return 3
	default:
		return 0
	}
}

// IsDegenerate returns whether a sample has two coincident points or three collinear ones.
// It looks at every triple and is meant for minimal samples.
func IsDegenerate(points []r2.Point) bool {
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			ab := points[j].Sub(points[i])
			if ab.Norm() < coincidentEpsilon {
				return true
			}
			for k := j + 1; k < len(points); k++ {
				ac := points[k].Sub(points[i])
				if math.Abs(ab.Cross(ac)) <= collinearSine*ab.Norm()*ac.Norm() {
					return true
				}
			}
		}
	}
	return false
}

// IsCollinear returns whether all points lie close to a single line, judged by the ratio of the
// principal variances of the point set.
func IsCollinear(points []r2.Point) bool {
	if len(points) < 3 {
		return true
	}
	var mean r2.Point
	for _, p := range points {
		mean = mean.Add(p)
	}
	mean = mean.Mul(1 / float64(len(points)))
	var sxx, sxy, syy float64
	for _, p := range points {
		d := p.Sub(mean)
		sxx += d.X * d.X
		sxy += d.X * d.Y
		syy += d.Y * d.Y
	}
	cov := mat.NewSymDense(2, []float64{sxx, sxy, sxy, syy})
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, false); !ok {
		return true
	}
	vals := eig.Values(nil)
	minVar, maxVar := math.Min(vals[0], vals[1]), math.Max(vals[0], vals[1])
	return maxVar == 0 || minVar <= flatnessRatio*maxVar
}

// ApplyToKeyframes anchors the first keyframe at the world origin and places the second at the
// estimated relative pose. Callers must make sure nothing else is using the keyframes' poses.
func ApplyToKeyframes(est *Estimate, kf1, kf2 *keyframe.Keyframe) error {
	if !est.HasPose() {
		return errors.New("estimate does not carry a relative pose")
	}
	if kf1 == nil || kf2 == nil {
		return errors.New("both keyframes are required")
	}
	kf1.SetPose(spatialmath.NewZeroPose())
	kf2.SetPose(est.Pose)
	return nil
}

func splitCorrespondences(corrs []Correspondence) ([]r2.Point, []r2.Point) {
	pts1 := lo.Map(corrs, func(c Correspondence, _ int) r2.Point { return c.Pt1 })
	pts2 := lo.Map(corrs, func(c Correspondence, _ int) r2.Point { return c.Pt2 })
	return pts1, pts2
}
