package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/vslam/rimage/transform"
)

const (
	fisheyeMaxIterations = 10
	fisheyeTolerance     = 1e-12
)

// FisheyeCamera is an equidistant fisheye camera with Kannala-Brandt polynomial distortion
// θd = θ(1 + k1θ² + k2θ⁴ + k3θ⁶ + k4θ⁸), where θ is the angle between the ray and the optical axis.
type FisheyeCamera struct {
	name           string
	intrinsics     *transform.PinholeCameraIntrinsics
	k              [4]float64
	focalXBaseline float64
}

// NewFisheyeCamera returns a fisheye camera. distortion holds up to four coefficients k1..k4.
func NewFisheyeCamera(
	name string,
	intrinsics *transform.PinholeCameraIntrinsics,
	distortion []float64,
	focalXBaseline float64,
) (*FisheyeCamera, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, NewInvalidModelError(err.Error())
	}
	if len(distortion) > 4 {
		return nil, NewInvalidModelError(errors.Errorf("fisheye takes at most 4 distortion parameters, got %d", len(distortion)).Error())
	}
	if focalXBaseline < 0 {
		return nil, NewInvalidModelError("focal_x_baseline cannot be negative")
	}
	c := &FisheyeCamera{name: name, intrinsics: intrinsics, focalXBaseline: focalXBaseline}
	copy(c.k[:], distortion)
	return c, nil
}

// Name returns the camera name.
func (c *FisheyeCamera) Name() string {
	return c.name
}

// ModelType returns Fisheye.
func (c *FisheyeCamera) ModelType() ModelType {
	return Fisheye
}

func (c *FisheyeCamera) distortTheta(theta float64) float64 {
	t2 := theta * theta
	return theta * (1 + t2*(c.k[0]+t2*(c.k[1]+t2*(c.k[2]+t2*c.k[3]))))
}

// undistortTheta inverts distortTheta with Newton's method.
func (c *FisheyeCamera) undistortTheta(thetaD float64) float64 {
	theta := thetaD
	for i := 0; i < fisheyeMaxIterations; i++ {
		t2 := theta * theta
		f := c.distortTheta(theta) - thetaD
		df := 1 + t2*(3*c.k[0]+t2*(5*c.k[1]+t2*(7*c.k[2]+t2*9*c.k[3])))
		if df == 0 {
			break
		}
		step := f / df
		theta -= step
		if math.Abs(step) < fisheyeTolerance {
			break
		}
	}
	return theta
}

// Unproject returns the unit bearing of a pixel.
func (c *FisheyeCamera) Unproject(pt r2.Point) r3.Vector {
	x := (pt.X - c.intrinsics.Ppx) / c.intrinsics.Fx
	y := (pt.Y - c.intrinsics.Ppy) / c.intrinsics.Fy
	thetaD := math.Hypot(x, y)
	if thetaD == 0 {
		return r3.Vector{Z: 1}
	}
	theta := c.undistortTheta(math.Min(thetaD, math.Pi/2))
	s := math.Sin(theta) / thetaD
	return r3.Vector{X: x * s, Y: y * s, Z: math.Cos(theta)}.Normalize()
}

// Project maps a point in front of the camera to its pixel.
func (c *FisheyeCamera) Project(pt r3.Vector) (r2.Point, float64, bool) {
	if pt.Z <= 0 {
		return r2.Point{}, -1, false
	}
	r := math.Hypot(pt.X, pt.Y)
	var x, y float64
	if r > 0 {
		thetaD := c.distortTheta(math.Atan2(r, pt.Z))
		x, y = thetaD*pt.X/r, thetaD*pt.Y/r
	}
	px := r2.Point{X: x*c.intrinsics.Fx + c.intrinsics.Ppx, Y: y*c.intrinsics.Fy + c.intrinsics.Ppy}
	xRight := -1.
	if c.focalXBaseline > 0 {
		xRight = px.X - c.focalXBaseline/pt.Z
	}
	return px, xRight, true
}

// Baseline returns the stereo baseline in world units.
func (c *FisheyeCamera) Baseline() float64 {
	return c.focalXBaseline / c.intrinsics.Fx
}

// CheckValid checks the intrinsics.
func (c *FisheyeCamera) CheckValid() error {
	if c == nil {
		return NewInvalidModelError("fisheye camera is nil")
	}
	if err := c.intrinsics.CheckValid(); err != nil {
		return NewInvalidModelError(err.Error())
	}
	return nil
}
