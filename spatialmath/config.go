package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	rutils "go.viam.com/vslam/utils"
)

// AxisAngleConfig describes a rotation of ThetaDeg degrees about Axis.
type AxisAngleConfig struct {
	Axis     r3.Vector `json:"axis" yaml:"axis"`
	ThetaDeg float64   `json:"theta_deg" yaml:"theta_deg"`
}

// PoseConfig is the serialized form of a Pose. Exactly one of Rotation (9 values, row major) or
// AxisAngle may be set; when neither is set the rotation is the identity.
type PoseConfig struct {
	Rotation    []float64        `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	AxisAngle   *AxisAngleConfig `json:"axis_angle,omitempty" yaml:"axis_angle,omitempty"`
	Translation r3.Vector        `json:"translation" yaml:"translation"`
}

// Validate ensures all parts of the config are valid.
func (cfg *PoseConfig) Validate(path string) error {
	if cfg == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "pose")
	}
	if cfg.Rotation != nil && cfg.AxisAngle != nil {
		return utils.NewConfigValidationError(path, errors.New("only one of rotation and axis_angle may be set"))
	}
	if cfg.Rotation != nil {
		rot, err := NewRotationMatrix(cfg.Rotation)
		if err != nil {
			return utils.NewConfigValidationError(path, err)
		}
		if err := rot.CheckValid(); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

// ParseConfig converts the config into a Pose.
func (cfg *PoseConfig) ParseConfig() (Pose, error) {
	if err := cfg.Validate("pose"); err != nil {
		return Pose{}, err
	}
	switch {
	case cfg.Rotation != nil:
		rot, err := NewRotationMatrix(cfg.Rotation)
		if err != nil {
			return Pose{}, err
		}
		return NewPose(rot, cfg.Translation), nil
	case cfg.AxisAngle != nil:
		rot := NewRotationMatrixFromAxisAngle(cfg.AxisAngle.Axis, rutils.DegToRad(cfg.AxisAngle.ThetaDeg))
		return NewPose(rot, cfg.Translation), nil
	default:
		return NewPose(nil, cfg.Translation), nil
	}
}

// PoseToConfig converts a Pose into its serialized form.
func PoseToConfig(p Pose) *PoseConfig {
	rot := p.rotation.mat
	return &PoseConfig{Rotation: rot[:], Translation: p.translation}
}
