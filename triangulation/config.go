package triangulation

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	rutils "go.viam.com/vslam/utils"
)

// Defaults for Config. The chi-square values are the 95% quantiles for 2 and 3 degrees of freedom.
const (
	DefaultParallaxDegThreshold  = 1.0
	DefaultChiSq2D               = 5.99146
	DefaultChiSq3D               = 7.81473
	DefaultRatioFactorMultiplier = 1.5
)

// Config tunes the gates of a TwoViewTriangulator. Zero fields take their defaults, except for an
// explicitly set parallax threshold of zero which turns the parallax gate off.
type Config struct {
	// ParallaxDegThreshold is the smallest angle between the two rays, in degrees, that is triangulated.
	ParallaxDegThreshold *float64 `json:"parallax_deg_threshold,omitempty" yaml:"parallax_deg_threshold,omitempty"`
	// ChiSq2D scales the per octave pixel variance into the mono reprojection bound.
	ChiSq2D float64 `json:"chi_sq_2d,omitempty" yaml:"chi_sq_2d,omitempty"`
	// ChiSq3D scales the per octave pixel variance into the stereo reprojection bound.
	ChiSq3D float64 `json:"chi_sq_3d,omitempty" yaml:"chi_sq_3d,omitempty"`
	// RatioFactorMultiplier times the squared pyramid scale factor bounds the scale consistency ratio.
	RatioFactorMultiplier float64 `json:"ratio_factor_multiplier,omitempty" yaml:"ratio_factor_multiplier,omitempty"`
}

// DefaultConfig returns a config with every default filled in.
func DefaultConfig() *Config {
	parallax := DefaultParallaxDegThreshold
	return &Config{
		ParallaxDegThreshold:  &parallax,
		ChiSq2D:               DefaultChiSq2D,
		ChiSq3D:               DefaultChiSq3D,
		RatioFactorMultiplier: DefaultRatioFactorMultiplier,
	}
}

// NewConfigFromAttributes decodes a config from a free form attribute map and fills in defaults.
func NewConfigFromAttributes(attrs rutils.AttributeMap) (*Config, error) {
	cfg, err := rutils.TransformAttributeMap[*Config](attrs)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode triangulation config")
	}
	return cfg.withDefaults(), nil
}

// withDefaults returns a copy of cfg with zero fields replaced by defaults. A nil cfg yields DefaultConfig.
func (cfg *Config) withDefaults() *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	if cfg.ParallaxDegThreshold != nil {
		parallax := *cfg.ParallaxDegThreshold
		out.ParallaxDegThreshold = &parallax
	}
	if cfg.ChiSq2D != 0 {
		out.ChiSq2D = cfg.ChiSq2D
	}
	if cfg.ChiSq3D != 0 {
		out.ChiSq3D = cfg.ChiSq3D
	}
	if cfg.RatioFactorMultiplier != 0 {
		out.RatioFactorMultiplier = cfg.RatioFactorMultiplier
	}
	return out
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg == nil {
		return nil
	}
	var err error
	if deg := cfg.ParallaxDegThreshold; deg != nil && (*deg < 0 || *deg >= 90) {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("parallax_deg_threshold must be in [0, 90), got %v", *deg)))
	}
	if cfg.ChiSq2D < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("chi_sq_2d cannot be negative")))
	}
	if cfg.ChiSq3D < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("chi_sq_3d cannot be negative")))
	}
	if cfg.RatioFactorMultiplier < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("ratio_factor_multiplier cannot be negative")))
	}
	return err
}
