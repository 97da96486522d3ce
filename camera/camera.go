// Package camera implements the projection models a keyframe can be observed through.
// The set of models is closed: perspective, fisheye and equirectangular, selected by ModelType.
package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ModelType names a projection model.
type ModelType string

// The supported projection models.
const (
	Perspective     = ModelType("perspective")
	Fisheye         = ModelType("fisheye")
	Equirectangular = ModelType("equirectangular")
)

// ErrInvalidModel is wrapped by every error describing an unusable camera model.
var ErrInvalidModel = errors.New("invalid camera model")

// NewInvalidModelError wraps ErrInvalidModel with a description.
func NewInvalidModelError(msg string) error {
	return errors.Wrap(ErrInvalidModel, msg)
}

// Model converts between pixels and rays in the camera frame.
type Model interface {
	// Name identifies the camera in logs and scene files.
	Name() string
	ModelType() ModelType
	// Unproject returns the unit bearing of a pixel.
	Unproject(pt r2.Point) r3.Vector
	// Project maps a point in the camera frame to a pixel. xRight is the predicted right image
	// x coordinate for stereo rigs and is negative when the model has no stereo baseline.
	// ok is false when the point has no pixel, such as behind a perspective camera. A pixel outside
	// the image bounds is still returned with ok set.
	Project(pt r3.Vector) (px r2.Point, xRight float64, ok bool)
	CheckValid() error
}

// Stereo is implemented by models that can describe a rectified stereo rig.
type Stereo interface {
	// Baseline returns the distance between the two optical centers, or zero for a monocular camera.
	Baseline() float64
}

// Baseline returns the stereo baseline of m, or zero when m has none.
func Baseline(m Model) float64 {
	if s, ok := m.(Stereo); ok {
		return s.Baseline()
	}
	return 0
}

// IsOmnidirectional returns whether the model sees in every direction, so that a point behind the
// optical axis is still in view.
func IsOmnidirectional(m Model) bool {
	return m != nil && m.ModelType() == Equirectangular
}
