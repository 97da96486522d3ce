package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/vslam/rimage/transform"
)

// PerspectiveCamera is a pinhole camera with optional Brown-Conrady lens distortion.
// A positive FocalXBaseline (fx times the stereo baseline) enables right image projection.
type PerspectiveCamera struct {
	name           string
	model          transform.PinholeCameraModel
	undistort      transform.Distorter
	focalXBaseline float64
}

// NewPerspectiveCamera returns a pinhole camera. distortion may be nil.
func NewPerspectiveCamera(
	name string,
	intrinsics *transform.PinholeCameraIntrinsics,
	distortion transform.Distorter,
	focalXBaseline float64,
) (*PerspectiveCamera, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, NewInvalidModelError(err.Error())
	}
	if focalXBaseline < 0 {
		return nil, NewInvalidModelError("focal_x_baseline cannot be negative")
	}
	inv, err := transform.InvertDistorter(distortion)
	if err != nil {
		return nil, NewInvalidModelError(err.Error())
	}
	return &PerspectiveCamera{
		name:           name,
		model:          transform.PinholeCameraModel{PinholeCameraIntrinsics: intrinsics, Distortion: distortion},
		undistort:      inv,
		focalXBaseline: focalXBaseline,
	}, nil
}

// Name returns the camera name.
func (c *PerspectiveCamera) Name() string {
	return c.name
}

// ModelType returns Perspective.
func (c *PerspectiveCamera) ModelType() ModelType {
	return Perspective
}

// Intrinsics returns the pinhole parameters.
func (c *PerspectiveCamera) Intrinsics() *transform.PinholeCameraIntrinsics {
	return c.model.PinholeCameraIntrinsics
}

// Unproject returns the unit bearing of a distorted pixel.
func (c *PerspectiveCamera) Unproject(pt r2.Point) r3.Vector {
	k := c.model.PinholeCameraIntrinsics
	x := (pt.X - k.Ppx) / k.Fx
	y := (pt.Y - k.Ppy) / k.Fy
	if c.undistort != nil {
		x, y = c.undistort.Transform(x, y)
	}
	return r3.Vector{X: x, Y: y, Z: 1}.Normalize()
}

// Project maps a point in front of the camera to its distorted pixel. The pixel may fall outside the image.
func (c *PerspectiveCamera) Project(pt r3.Vector) (r2.Point, float64, bool) {
	if pt.Z <= 0 {
		return r2.Point{}, -1, false
	}
	k := c.model.PinholeCameraIntrinsics
	x, y := pt.X/pt.Z, pt.Y/pt.Z
	if c.model.Distortion != nil {
		x, y = c.model.Distortion.Transform(x, y)
	}
	px := r2.Point{X: x*k.Fx + k.Ppx, Y: y*k.Fy + k.Ppy}
	xRight := -1.
	if c.focalXBaseline > 0 {
		xRight = px.X - c.focalXBaseline/pt.Z
	}
	return px, xRight, true
}

// FocalXBaseline returns fx times the stereo baseline, or zero for a monocular camera.
func (c *PerspectiveCamera) FocalXBaseline() float64 {
	return c.focalXBaseline
}

// Baseline returns the stereo baseline in world units.
func (c *PerspectiveCamera) Baseline() float64 {
	return c.focalXBaseline / c.model.PinholeCameraIntrinsics.Fx
}

// CheckValid checks the intrinsics and distortion.
func (c *PerspectiveCamera) CheckValid() error {
	if c == nil {
		return NewInvalidModelError("perspective camera is nil")
	}
	if err := c.model.CheckValid(); err != nil {
		return NewInvalidModelError(err.Error())
	}
	if c.model.Distortion != nil {
		if err := c.model.Distortion.CheckValid(); err != nil {
			return NewInvalidModelError(err.Error())
		}
	}
	return nil
}
