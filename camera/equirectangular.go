package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// EquirectangularCamera maps longitude to columns and latitude to rows of a panorama.
// Every direction is visible, so projection never fails.
type EquirectangularCamera struct {
	name string
	cols float64
	rows float64
}

// NewEquirectangularCamera returns a camera for a cols by rows panorama.
func NewEquirectangularCamera(name string, cols, rows int) (*EquirectangularCamera, error) {
	c := &EquirectangularCamera{name: name, cols: float64(cols), rows: float64(rows)}
	if err := c.CheckValid(); err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the camera name.
func (c *EquirectangularCamera) Name() string {
	return c.name
}

// ModelType returns Equirectangular.
func (c *EquirectangularCamera) ModelType() ModelType {
	return Equirectangular
}

// Unproject returns the unit bearing of a pixel.
func (c *EquirectangularCamera) Unproject(pt r2.Point) r3.Vector {
	lon := (pt.X/c.cols - 0.5) * 2 * math.Pi
	lat := -(pt.Y/c.rows - 0.5) * math.Pi
	return r3.Vector{
		X: math.Cos(lat) * math.Sin(lon),
		Y: -math.Sin(lat),
		Z: math.Cos(lat) * math.Cos(lon),
	}
}

// Project maps any non zero point to its pixel. There is no stereo prediction.
func (c *EquirectangularCamera) Project(pt r3.Vector) (r2.Point, float64, bool) {
	norm := pt.Norm()
	if norm == 0 {
		return r2.Point{}, -1, false
	}
	lat := -math.Asin(pt.Y / norm)
	lon := math.Atan2(pt.X, pt.Z)
	return r2.Point{X: c.cols * (0.5 + lon/(2*math.Pi)), Y: c.rows * (0.5 - lat/math.Pi)}, -1, true
}

// CheckValid checks the panorama size.
func (c *EquirectangularCamera) CheckValid() error {
	if c == nil {
		return NewInvalidModelError("equirectangular camera is nil")
	}
	if c.cols <= 0 || c.rows <= 0 {
		return NewInvalidModelError(fmt.Sprintf("invalid panorama size (%v, %v)", c.cols, c.rows))
	}
	return nil
}
