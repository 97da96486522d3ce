package relpose

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/vslam/logging"
	"go.viam.com/vslam/rimage/transform"
)

// DefaultSampsonThreshold is the 95% chi-square bound for one degree of freedom, in squared pixels.
const DefaultSampsonThreshold = 3.84146

// EightPointConfig configures an EightPointProvider.
type EightPointConfig struct {
	Intrinsics1 *transform.PinholeCameraIntrinsics `json:"intrinsics1" yaml:"intrinsics1"`
	Intrinsics2 *transform.PinholeCameraIntrinsics `json:"intrinsics2,omitempty" yaml:"intrinsics2,omitempty"`
	// SampsonThreshold is the largest Sampson error, in squared pixels, of an inlier.
	SampsonThreshold float64 `json:"sampson_threshold,omitempty" yaml:"sampson_threshold,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *EightPointConfig) Validate(path string) error {
	if cfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "relpose")
	}
	if cfg.Intrinsics1 == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "intrinsics1")
	}
	var err error
	if ierr := cfg.Intrinsics1.CheckValid(); ierr != nil {
		err = multierr.Append(err, utils.NewConfigValidationError(path+".intrinsics1", ierr))
	}
	if cfg.Intrinsics2 != nil {
		if ierr := cfg.Intrinsics2.CheckValid(); ierr != nil {
			err = multierr.Append(err, utils.NewConfigValidationError(path+".intrinsics2", ierr))
		}
	}
	if cfg.SampsonThreshold < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("sampson_threshold cannot be negative")))
	}
	return err
}

// EightPointProvider fits a fundamental matrix to all correspondences with the normalized eight point
// algorithm and recovers the relative pose from it. It does not sample, so it is only as robust as its
// input; it suits matches that were already filtered.
type EightPointProvider struct {
	k1, k2    *mat.Dense
	threshold float64
	logger    logging.Logger
}

// NewEightPointProvider returns a provider for cameras with the configured intrinsics.
// When Intrinsics2 is unset both views share Intrinsics1. A nil logger logs to logging.Global().
func NewEightPointProvider(cfg *EightPointConfig, logger logging.Logger) (*EightPointProvider, error) {
	if err := cfg.Validate("relpose"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Global()
	}
	intrinsics2 := cfg.Intrinsics2
	if intrinsics2 == nil {
		intrinsics2 = cfg.Intrinsics1
	}
	threshold := cfg.SampsonThreshold
	if threshold == 0 {
		threshold = DefaultSampsonThreshold
	}
	return &EightPointProvider{
		k1:        cfg.Intrinsics1.GetCameraMatrix(),
		k2:        intrinsics2.GetCameraMatrix(),
		threshold: threshold,
		logger:    logger,
	}, nil
}

// Estimate fits a fundamental matrix and returns it with the relative pose of the second camera.
func (p *EightPointProvider) Estimate(ctx context.Context, corrs []Correspondence) (*Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(corrs) < 8 {
		return nil, errors.Wrapf(ErrNotEnoughCorrespondences, "eight point needs 8, got %d", len(corrs))
	}
	pts1, pts2 := splitCorrespondences(corrs)
	if IsCollinear(pts1) || IsCollinear(pts2) {
		return nil, errors.Wrap(ErrDegenerateSample, "correspondences are collinear")
	}

	f, err := transform.ComputeFundamentalMatrixAllPoints(pts1, pts2, true)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fit fundamental matrix")
	}
	inliers := make([]bool, len(corrs))
	var in1, in2 []r2.Point
	for i := range corrs {
		if transform.SampsonDistance(f, pts1[i], pts2[i]) <= p.threshold {
			inliers[i] = true
			in1 = append(in1, pts1[i])
			in2 = append(in2, pts2[i])
		}
	}
	if len(in1) == 0 {
		return nil, errors.Wrap(ErrDegenerateSample, "no correspondence agrees with the fitted model")
	}

	pose, err := transform.PoseFromFundamental(f, in1, in2, p.k1, p.k2)
	if err != nil {
		return nil, errors.Wrap(err, "cannot recover relative pose")
	}
	est := &Estimate{Type: Fundamental, Model: f, Inliers: inliers, Pose: pose}
	p.logger.Debugw("estimated relative pose", "correspondences", len(corrs), "inliers", est.NumInliers())
	return est, nil
}
