package camera

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/vslam/rimage/transform"
	rutils "go.viam.com/vslam/utils"
)

// Config describes a camera. Perspective and fisheye cameras use the pinhole intrinsics, given inline
// or read from the JSON file at IntrinsicsPath. Equirectangular cameras only use the image size.
type Config struct {
	Name                 string                   `json:"name" yaml:"name"`
	Type                 ModelType                `json:"type" yaml:"type"`
	IntrinsicsPath       string                   `json:"intrinsics_path,omitempty" yaml:"intrinsics_path,omitempty"`
	Width                int                      `json:"width_px" yaml:"width_px"`
	Height               int                      `json:"height_px" yaml:"height_px"`
	Fx                   float64                  `json:"fx,omitempty" yaml:"fx,omitempty"`
	Fy                   float64                  `json:"fy,omitempty" yaml:"fy,omitempty"`
	Ppx                  float64                  `json:"ppx,omitempty" yaml:"ppx,omitempty"`
	Ppy                  float64                  `json:"ppy,omitempty" yaml:"ppy,omitempty"`
	FocalXBaseline       float64                  `json:"focal_x_baseline,omitempty" yaml:"focal_x_baseline,omitempty"`
	DistortionType       transform.DistortionType `json:"distortion_type,omitempty" yaml:"distortion_type,omitempty"`
	DistortionParameters []float64                `json:"distortion_parameters,omitempty" yaml:"distortion_parameters,omitempty"`
}

// NewConfigFromAttributes decodes a camera config from a free form attribute map.
func NewConfigFromAttributes(attrs rutils.AttributeMap) (*Config, error) {
	cfg, err := rutils.TransformAttributeMap[*Config](attrs)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode camera config")
	}
	return cfg, nil
}

func (cfg *Config) inlineIntrinsics() *transform.PinholeCameraIntrinsics {
	return &transform.PinholeCameraIntrinsics{
		Width:  cfg.Width,
		Height: cfg.Height,
		Fx:     cfg.Fx,
		Fy:     cfg.Fy,
		Ppx:    cfg.Ppx,
		Ppy:    cfg.Ppy,
	}
}

// intrinsics returns the pinhole intrinsics, reading IntrinsicsPath when it is set.
func (cfg *Config) intrinsics() (*transform.PinholeCameraIntrinsics, error) {
	if cfg.IntrinsicsPath == "" {
		return cfg.inlineIntrinsics(), nil
	}
	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(cfg.IntrinsicsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "camera %q intrinsics_path", cfg.Name)
	}
	return intrinsics, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "camera")
	}
	if cfg.Type == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	}
	var err error
	switch cfg.Type {
	case Perspective, Fisheye:
		if cfg.IntrinsicsPath != "" && *cfg.inlineIntrinsics() != (transform.PinholeCameraIntrinsics{}) {
			err = multierr.Append(err, utils.NewConfigValidationError(path,
				errors.New("intrinsics_path cannot be combined with inline intrinsics")))
		}
		if cfg.IntrinsicsPath == "" {
			if ierr := cfg.inlineIntrinsics().CheckValid(); ierr != nil {
				err = multierr.Append(err, utils.NewConfigValidationError(path, ierr))
			}
		}
		if cfg.FocalXBaseline < 0 {
			err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("focal_x_baseline cannot be negative")))
		}
	case Equirectangular:
		if cfg.Width <= 0 || cfg.Height <= 0 {
			err = multierr.Append(err, utils.NewConfigValidationError(path,
				errors.Errorf("invalid panorama size (%d, %d)", cfg.Width, cfg.Height)))
		}
		if cfg.DistortionType != "" || len(cfg.DistortionParameters) != 0 {
			err = multierr.Append(err, utils.NewConfigValidationError(path,
				errors.New("equirectangular cameras do not take distortion parameters")))
		}
		if cfg.IntrinsicsPath != "" {
			err = multierr.Append(err, utils.NewConfigValidationError(path,
				errors.New("equirectangular cameras do not take intrinsics_path")))
		}
	default:
		return utils.NewConfigValidationError(path, errors.Wrapf(ErrInvalidModel, "unknown camera type %q", cfg.Type))
	}
	if cfg.Type == Fisheye && cfg.DistortionType != "" {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.New("fisheye cameras take distortion_parameters without a distortion_type")))
	}
	if cfg.Type == Fisheye && len(cfg.DistortionParameters) > 4 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("fisheye takes at most 4 distortion parameters, got %d", len(cfg.DistortionParameters))))
	}
	if cfg.Type == Perspective && cfg.DistortionType == "" && len(cfg.DistortionParameters) != 0 {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "distortion_type"))
	}
	return err
}

// NewModel builds the camera model named by cfg.Type.
func NewModel(cfg *Config) (Model, error) {
	if err := cfg.Validate("camera"); err != nil {
		return nil, err
	}
	var (
		m          Model
		intrinsics *transform.PinholeCameraIntrinsics
		err        error
	)
	if cfg.Type != Equirectangular {
		if intrinsics, err = cfg.intrinsics(); err != nil {
			return nil, err
		}
	}
	switch cfg.Type {
	case Perspective:
		var distortion transform.Distorter
		if cfg.DistortionType != "" {
			distortion, err = transform.NewDistorter(cfg.DistortionType, cfg.DistortionParameters)
			if err != nil {
				return nil, NewInvalidModelError(err.Error())
			}
		}
		m, err = NewPerspectiveCamera(cfg.Name, intrinsics, distortion, cfg.FocalXBaseline)
	case Fisheye:
		m, err = NewFisheyeCamera(cfg.Name, intrinsics, cfg.DistortionParameters, cfg.FocalXBaseline)
	case Equirectangular:
		m, err = NewEquirectangularCamera(cfg.Name, cfg.Width, cfg.Height)
	default:
		return nil, errors.Wrapf(ErrInvalidModel, "unknown camera type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
