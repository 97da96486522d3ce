package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(BrownConradyDistortionType, []float64{0.1, -0.05})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, BrownConradyDistortionType)
	test.That(t, d.Parameters(), test.ShouldResemble, []float64{0.1, -0.05, 0, 0, 0})

	_, err = NewDistorter(BrownConradyDistortionType, make([]float64, 6))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewDistorter("kannala_brandt", nil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "kannala_brandt")

	var missing *BrownConrady
	test.That(t, missing.CheckValid(), test.ShouldNotBeNil)
	x, y := missing.Transform(0.2, 0.3)
	test.That(t, x, test.ShouldEqual, 0.2)
	test.That(t, y, test.ShouldEqual, 0.3)
}

func TestInverseBrownConradyUndoesForward(t *testing.T) {
	params := []float64{-0.12, 0.03, -0.002, 0.001, -0.0015}
	fwd, err := NewBrownConrady(params)
	test.That(t, err, test.ShouldBeNil)
	inv, err := InvertDistorter(fwd)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inv.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)

	back, err := InvertDistorter(inv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Parameters(), test.ShouldResemble, params)

	for _, pt := range []r2.Point{{X: 0, Y: 0}, {X: 0.1, Y: -0.2}, {X: -0.35, Y: 0.25}, {X: 0.4, Y: 0.4}} {
		xd, yd := fwd.Transform(pt.X, pt.Y)
		xu, yu := inv.Transform(xd, yd)
		test.That(t, xu, test.ShouldAlmostEqual, pt.X, 1e-8)
		test.That(t, yu, test.ShouldAlmostEqual, pt.Y, 1e-8)
	}

	none, err := InvertDistorter(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none, test.ShouldBeNil)
}

func TestUndistortPoint(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}
	test.That(t, intrinsics.CheckValid(), test.ShouldBeNil)

	bc, err := NewBrownConrady([]float64{-0.2, 0.05})
	test.That(t, err, test.ShouldBeNil)
	model := &PinholeCameraModel{PinholeCameraIntrinsics: intrinsics, Distortion: bc}

	ideal := r2.Point{X: 500, Y: 100}
	dx, dy := model.DistortionMap()(ideal.X, ideal.Y)
	test.That(t, dx, test.ShouldNotAlmostEqual, ideal.X)

	undistorted, err := model.UndistortPoint(r2.Point{X: dx, Y: dy})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, undistorted.X, test.ShouldAlmostEqual, ideal.X, 1e-6)
	test.That(t, undistorted.Y, test.ShouldAlmostEqual, ideal.Y, 1e-6)

	plain := &PinholeCameraModel{PinholeCameraIntrinsics: intrinsics}
	same, err := plain.UndistortPoint(ideal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldResemble, ideal)
}

func TestPinholeIntrinsics(t *testing.T) {
	var missing *PinholeCameraIntrinsics
	test.That(t, missing.CheckValid(), test.ShouldBeError)

	bad := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 0, Fy: 500}
	test.That(t, bad.CheckValid().Error(), test.ShouldContainSubstring, "Fx")

	intrinsics := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 400, Ppx: 320, Ppy: 240}
	pt := intrinsics.PixelToPoint(420, 140, 2)
	test.That(t, pt.X, test.ShouldAlmostEqual, 0.4)
	test.That(t, pt.Y, test.ShouldAlmostEqual, -0.5)

	px, ok := intrinsics.PointToPixel(pt)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, px.X, test.ShouldAlmostEqual, 420.)
	test.That(t, px.Y, test.ShouldAlmostEqual, 140.)
	test.That(t, intrinsics.InImage(px), test.ShouldBeTrue)

	_, ok = intrinsics.PointToPixel(pt.Mul(-1))
	test.That(t, ok, test.ShouldBeFalse)

	k := intrinsics.GetCameraMatrix()
	test.That(t, k.At(0, 0), test.ShouldEqual, 500.)
	test.That(t, k.At(1, 2), test.ShouldEqual, 240.)
}
