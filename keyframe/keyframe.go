// Package keyframe holds the posed views that landmarks are triangulated from.
package keyframe

import (
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/vslam/camera"
	"go.viam.com/vslam/spatialmath"
)

// Keypoint is a feature observed in a keyframe.
type Keypoint struct {
	Pt     r2.Point
	Octave int
	// XRight is the x coordinate of the match in the right image of a stereo rig, negative for mono.
	XRight float64
	// Depth is the measured depth along the optical axis, zero for mono.
	Depth float64
}

// NewMonoKeypoint returns a keypoint without a stereo measurement.
func NewMonoKeypoint(pt r2.Point, octave int) Keypoint {
	return Keypoint{Pt: pt, Octave: octave, XRight: -1}
}

// IsStereo returns whether the keypoint carries a usable right image x coordinate and depth.
func (kp Keypoint) IsStereo() bool {
	return kp.XRight >= 0 && kp.Depth > 0
}

// Keyframe is a view with a world to camera pose, a camera model and the keypoints seen in it.
// The camera is borrowed and must outlive the keyframe. Keypoints and their bearings are fixed
// at construction. The pose may be updated by an optimizer and is guarded by a lock.
type Keyframe struct {
	id        uint64
	camera    camera.Model
	pyramid   *ScalePyramid
	baseline  float64
	keypoints []Keypoint
	bearings  []r3.Vector

	mu   sync.RWMutex
	pose spatialmath.Pose
}

// NewKeyframe builds a keyframe and caches the bearing of every keypoint.
func NewKeyframe(
	id uint64,
	pose spatialmath.Pose,
	cam camera.Model,
	pyramid *ScalePyramid,
	keypoints []Keypoint,
) (*Keyframe, error) {
	if cam == nil {
		return nil, errors.Errorf("keyframe %d has no camera", id)
	}
	if err := cam.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "keyframe %d", id)
	}
	if pyramid == nil || pyramid.NumLevels() == 0 {
		return nil, errors.Errorf("keyframe %d has no scale pyramid", id)
	}
	if err := pose.Rotation().CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "keyframe %d pose", id)
	}
	baseline := camera.Baseline(cam)
	kf := &Keyframe{
		id:        id,
		camera:    cam,
		pyramid:   pyramid,
		baseline:  baseline,
		keypoints: make([]Keypoint, len(keypoints)),
		bearings:  make([]r3.Vector, len(keypoints)),
		pose:      pose,
	}
	copy(kf.keypoints, keypoints)
	for i, kp := range kf.keypoints {
		if kp.Octave < 0 || kp.Octave >= pyramid.NumLevels() {
			return nil, errors.Errorf("keyframe %d keypoint %d has octave %d outside the %d level pyramid",
				id, i, kp.Octave, pyramid.NumLevels())
		}
		if kp.IsStereo() && baseline <= 0 {
			return nil, errors.Errorf("keyframe %d keypoint %d is stereo but camera %q has no baseline", id, i, cam.Name())
		}
		kf.bearings[i] = cam.Unproject(kp.Pt)
	}
	return kf, nil
}

// ID returns the keyframe id.
func (kf *Keyframe) ID() uint64 {
	return kf.id
}

// Camera returns the camera the keyframe was observed through.
func (kf *Keyframe) Camera() camera.Model {
	return kf.camera
}

// ScalePyramid returns the pyramid the keypoints were extracted from.
func (kf *Keyframe) ScalePyramid() *ScalePyramid {
	return kf.pyramid
}

// Baseline returns the stereo baseline of the camera, zero for mono.
func (kf *Keyframe) Baseline() float64 {
	return kf.baseline
}

// NumKeypoints returns the number of keypoints.
func (kf *Keyframe) NumKeypoints() int {
	return len(kf.keypoints)
}

// Keypoint returns the idx'th keypoint. It panics if idx is out of range.
func (kf *Keyframe) Keypoint(idx int) Keypoint {
	return kf.keypoints[idx]
}

// Bearing returns the unit bearing of the idx'th keypoint in the camera frame. It panics if idx is out of range.
func (kf *Keyframe) Bearing(idx int) r3.Vector {
	return kf.bearings[idx]
}

// Pose returns a snapshot of the world to camera pose.
func (kf *Keyframe) Pose() spatialmath.Pose {
	kf.mu.RLock()
	defer kf.mu.RUnlock()
	return kf.pose
}

// SetPose replaces the world to camera pose.
func (kf *Keyframe) SetPose(pose spatialmath.Pose) {
	kf.mu.Lock()
	kf.pose = pose
	kf.mu.Unlock()
}

// StereoPointInCamera back-projects a stereo keypoint with its measured depth into the camera frame.
// ok is false for mono keypoints or bearings that do not face the optical axis.
func (kf *Keyframe) StereoPointInCamera(idx int) (r3.Vector, bool) {
	kp := kf.keypoints[idx]
	if !kp.IsStereo() {
		return r3.Vector{}, false
	}
	b := kf.bearings[idx]
	if b.Z <= 0 {
		return r3.Vector{}, false
	}
	return b.Mul(kp.Depth / b.Z), true
}
