package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"go.viam.com/vslam/camera"
	"go.viam.com/vslam/keyframe"
	"go.viam.com/vslam/logging"
	"go.viam.com/vslam/relpose"
	"go.viam.com/vslam/spatialmath"
	"go.viam.com/vslam/triangulation"
)

// KeypointConfig is a keypoint as stored in a scene file. A stereo keypoint sets both x_right and depth.
type KeypointConfig struct {
	X      float64  `json:"x" yaml:"x"`
	Y      float64  `json:"y" yaml:"y"`
	Octave int      `json:"octave,omitempty" yaml:"octave,omitempty"`
	XRight *float64 `json:"x_right,omitempty" yaml:"x_right,omitempty"`
	Depth  float64  `json:"depth,omitempty" yaml:"depth,omitempty"`
}

func (cfg KeypointConfig) keypoint() keyframe.Keypoint {
	kp := keyframe.NewMonoKeypoint(r2.Point{X: cfg.X, Y: cfg.Y}, cfg.Octave)
	if cfg.XRight != nil {
		kp.XRight = *cfg.XRight
		kp.Depth = cfg.Depth
	}
	return kp
}

// KeyframeConfig is a keyframe as stored in a scene file. Camera names an entry of Scene.Cameras.
type KeyframeConfig struct {
	ID        uint64                  `json:"id" yaml:"id"`
	Camera    string                  `json:"camera" yaml:"camera"`
	Pose      *spatialmath.PoseConfig `json:"pose,omitempty" yaml:"pose,omitempty"`
	Keypoints []KeypointConfig        `json:"keypoints" yaml:"keypoints"`
}

// Scene is a pair of keyframes and the matches between them.
type Scene struct {
	Cameras       []*camera.Config              `json:"cameras" yaml:"cameras"`
	Pyramid       *keyframe.PyramidConfig       `json:"pyramid" yaml:"pyramid"`
	Triangulation *triangulation.Config         `json:"triangulation,omitempty" yaml:"triangulation,omitempty"`
	RelativePose  *relpose.EightPointConfig     `json:"relative_pose,omitempty" yaml:"relative_pose,omitempty"`
	Keyframes     []KeyframeConfig              `json:"keyframes" yaml:"keyframes"`
	Matches       []triangulation.Match         `json:"matches" yaml:"matches"`
	Log           []logging.LoggerPatternConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// LoadScene reads a scene from a .json, .yaml or .yml file. A relative camera intrinsics_path is
// resolved against the directory of the scene file.
func LoadScene(path string) (*Scene, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read scene file")
	}
	var scene Scene
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &scene)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &scene)
	default:
		return nil, errors.Errorf("unsupported scene file extension %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse scene file %q", path)
	}
	// intrinsics files are relative to the scene file
	for _, camCfg := range scene.Cameras {
		if camCfg != nil && camCfg.IntrinsicsPath != "" && !filepath.IsAbs(camCfg.IntrinsicsPath) {
			camCfg.IntrinsicsPath = filepath.Join(filepath.Dir(path), camCfg.IntrinsicsPath)
		}
	}
	return &scene, nil
}

// Validate ensures all parts of the scene are valid. Keyframe poses are only required when
// requirePoses is set.
func (s *Scene) Validate(requirePoses bool) error {
	var err error
	names := map[string]bool{}
	for i, camCfg := range s.Cameras {
		path := fmt.Sprintf("cameras.%d", i)
		if verr := camCfg.Validate(path); verr != nil {
			err = multierr.Append(err, verr)
			continue
		}
		if names[camCfg.Name] {
			err = multierr.Append(err, utils.NewConfigValidationError(path, errors.Errorf("duplicate camera name %q", camCfg.Name)))
		}
		names[camCfg.Name] = true
	}
	if verr := s.Pyramid.Validate("pyramid"); verr != nil {
		err = multierr.Append(err, verr)
	}
	if verr := s.Triangulation.Validate("triangulation"); verr != nil {
		err = multierr.Append(err, verr)
	}
	if s.RelativePose != nil {
		if verr := s.RelativePose.Validate("relative_pose"); verr != nil {
			err = multierr.Append(err, verr)
		}
	}
	for _, lpc := range s.Log {
		if verr := lpc.Validate(); verr != nil {
			err = multierr.Append(err, utils.NewConfigValidationError("log", verr))
		}
	}
	if len(s.Keyframes) != 2 {
		return multierr.Append(err, errors.Errorf("a scene needs exactly 2 keyframes, got %d", len(s.Keyframes)))
	}
	for i, kfCfg := range s.Keyframes {
		path := fmt.Sprintf("keyframes.%d", i)
		if !names[kfCfg.Camera] {
			err = multierr.Append(err, utils.NewConfigValidationError(path, errors.Errorf("unknown camera %q", kfCfg.Camera)))
		}
		if requirePoses {
			if verr := kfCfg.Pose.Validate(path); verr != nil {
				err = multierr.Append(err, verr)
			}
		}
	}
	return err
}

// Build constructs the cameras and the two keyframes of the scene. Keyframes without a pose are
// placed at the origin.
func (s *Scene) Build() (*keyframe.Keyframe, *keyframe.Keyframe, error) {
	models := make(map[string]camera.Model, len(s.Cameras))
	for _, camCfg := range s.Cameras {
		m, err := camera.NewModel(camCfg)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "camera %q", camCfg.Name)
		}
		models[camCfg.Name] = m
	}
	pyramid, err := keyframe.NewScalePyramid(*s.Pyramid)
	if err != nil {
		return nil, nil, err
	}

	kfs := make([]*keyframe.Keyframe, 0, len(s.Keyframes))
	for _, kfCfg := range s.Keyframes {
		pose := spatialmath.NewZeroPose()
		if kfCfg.Pose != nil {
			if pose, err = kfCfg.Pose.ParseConfig(); err != nil {
				return nil, nil, errors.Wrapf(err, "keyframe %d", kfCfg.ID)
			}
		}
		kps := make([]keyframe.Keypoint, len(kfCfg.Keypoints))
		for i, kpCfg := range kfCfg.Keypoints {
			kps[i] = kpCfg.keypoint()
		}
		kf, err := keyframe.NewKeyframe(kfCfg.ID, pose, models[kfCfg.Camera], pyramid, kps)
		if err != nil {
			return nil, nil, err
		}
		kfs = append(kfs, kf)
	}
	if len(kfs) != 2 {
		return nil, nil, errors.Errorf("a scene needs exactly 2 keyframes, got %d", len(kfs))
	}
	return kfs[0], kfs[1], nil
}

// eightPointConfig returns the relative pose config for the scene, taking the intrinsics from the
// keyframes' cameras when the scene does not set them.
func (s *Scene) eightPointConfig(kf1, kf2 *keyframe.Keyframe) (*relpose.EightPointConfig, error) {
	cfg := &relpose.EightPointConfig{}
	if s.RelativePose != nil {
		*cfg = *s.RelativePose
	}
	if cfg.Intrinsics1 != nil {
		return cfg, nil
	}
	cam1, ok1 := kf1.Camera().(*camera.PerspectiveCamera)
	cam2, ok2 := kf2.Camera().(*camera.PerspectiveCamera)
	if !ok1 || !ok2 {
		return nil, errors.New("estimating the relative pose needs perspective cameras or relative_pose intrinsics")
	}
	cfg.Intrinsics1 = cam1.Intrinsics()
	cfg.Intrinsics2 = cam2.Intrinsics()
	return cfg, nil
}

// correspondences returns the pixel pairs of the scene's matches.
func (s *Scene) correspondences() []relpose.Correspondence {
	corrs := make([]relpose.Correspondence, 0, len(s.Matches))
	kps1, kps2 := s.Keyframes[0].Keypoints, s.Keyframes[1].Keypoints
	for _, m := range s.Matches {
		if m.Idx1 < 0 || m.Idx1 >= len(kps1) || m.Idx2 < 0 || m.Idx2 >= len(kps2) {
			continue
		}
		corrs = append(corrs, relpose.Correspondence{
			Pt1: r2.Point{X: kps1[m.Idx1].X, Y: kps1[m.Idx1].Y},
			Pt2: r2.Point{X: kps2[m.Idx2].X, Y: kps2[m.Idx2].Y},
		})
	}
	return corrs
}
