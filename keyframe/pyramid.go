package keyframe

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// PyramidConfig describes the image pyramid keypoints were extracted from.
type PyramidConfig struct {
	NumLevels   int     `json:"num_levels" yaml:"num_levels"`
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`
}

// Validate ensures all parts of the config are valid.
func (cfg *PyramidConfig) Validate(path string) error {
	if cfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "pyramid")
	}
	if cfg.NumLevels < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("num_levels must be at least 1, got %d", cfg.NumLevels))
	}
	if cfg.ScaleFactor < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("scale_factor must be at least 1, got %v", cfg.ScaleFactor))
	}
	return nil
}

// ScalePyramid holds the per octave scale and measurement uncertainty of keypoints.
// Level i is ScaleFactor^i times coarser than level 0 and its pixel variance grows with the square.
type ScalePyramid struct {
	ScaleFactor  float64
	ScaleFactors []float64
	LevelSigmaSq []float64
}

// NewScalePyramid builds the pyramid tables for cfg.
func NewScalePyramid(cfg PyramidConfig) (*ScalePyramid, error) {
	if err := cfg.Validate("pyramid"); err != nil {
		return nil, err
	}
	sp := &ScalePyramid{
		ScaleFactor:  cfg.ScaleFactor,
		ScaleFactors: make([]float64, cfg.NumLevels),
		LevelSigmaSq: make([]float64, cfg.NumLevels),
	}
	for i := range sp.ScaleFactors {
		sp.ScaleFactors[i] = math.Pow(cfg.ScaleFactor, float64(i))
		sp.LevelSigmaSq[i] = sp.ScaleFactors[i] * sp.ScaleFactors[i]
	}
	return sp, nil
}

// NumLevels returns the number of octaves.
func (sp *ScalePyramid) NumLevels() int {
	return len(sp.ScaleFactors)
}
