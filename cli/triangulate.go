package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/vslam/logging"
	"go.viam.com/vslam/relpose"
	"go.viam.com/vslam/triangulation"
)

// TriangulateAction is the corresponding Action for 'triangulate'.
func TriangulateAction(c *cli.Context) error {
	logger := newLogger(c)
	scene, err := LoadScene(c.Path(triangulateFlagScene))
	if err != nil {
		return err
	}
	estimatePose := c.Bool(triangulateFlagEstimatePose)
	if err := scene.Validate(!estimatePose); err != nil {
		return errors.Wrap(err, "invalid scene")
	}

	registry := logging.NewRegistry()
	registry.GetOrRegister("twoview", logger)
	batchLogger := registry.GetOrRegister("twoview.triangulation", logger.Sublogger("triangulation"))
	poseLogger := registry.GetOrRegister("twoview.relpose", logger.Sublogger("relpose"))
	if len(scene.Log) > 0 {
		if err := registry.UpdateConfig(scene.Log, logger); err != nil {
			return err
		}
	}

	kf1, kf2, err := scene.Build()
	if err != nil {
		return err
	}
	if estimatePose {
		cfg, err := scene.eightPointConfig(kf1, kf2)
		if err != nil {
			return err
		}
		provider, err := relpose.NewEightPointProvider(cfg, poseLogger)
		if err != nil {
			return err
		}
		est, err := provider.Estimate(c.Context, scene.correspondences())
		if err != nil {
			return errors.Wrap(err, "cannot estimate relative pose")
		}
		if err := relpose.ApplyToKeyframes(est, kf1, kf2); err != nil {
			return err
		}
		t := est.Pose.Translation()
		printf(c.App.Writer, "relative pose: %d/%d inliers, translation direction (%.4f, %.4f, %.4f)",
			est.NumInliers(), len(est.Inliers), t.X, t.Y, t.Z)
	}

	triCfg := scene.Triangulation
	if c.IsSet(triangulateFlagParallaxDeg) {
		override := triangulation.Config{}
		if triCfg != nil {
			override = *triCfg
		}
		parallax := c.Float64(triangulateFlagParallaxDeg)
		override.ParallaxDegThreshold = &parallax
		if err := override.Validate(triangulateFlagParallaxDeg); err != nil {
			return err
		}
		triCfg = &override
	}
	tri, err := triangulation.NewTwoViewTriangulator(kf1, kf2, triCfg)
	if err != nil {
		return err
	}
	res, err := triangulation.TriangulateMatches(c.Context, tri, scene.Matches, batchLogger)
	if err != nil {
		return err
	}

	if !c.Bool(triangulateFlagQuiet) {
		for _, r := range res.Accepted {
			printf(c.App.Writer, "%d %d %.6f %.6f %.6f", r.Idx1, r.Idx2, r.Point.X, r.Point.Y, r.Point.Z)
		}
	}
	printf(c.App.Writer, "accepted %d of %d matches", len(res.Accepted), len(res.Results))
	printf(c.App.Writer, "%s", summaryTable(res))
	if len(res.Accepted) > 0 {
		printf(c.App.Writer, "median parallax %.3f deg, mean depth %.4f", res.MedianParallaxDeg, res.MeanDepth)
	}
	return nil
}

// summaryTable renders the number of matches per outcome, in gate order.
func summaryTable(res *triangulation.BatchResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Outcome", "Matches"})
	for _, reason := range triangulation.Rejections {
		if n := res.Counts[reason]; n > 0 {
			t.AppendRow(table.Row{reason.String(), fmt.Sprintf("%d", n)})
		}
	}
	return t.Render()
}
