package triangulation

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/vslam/logging"
	rutils "go.viam.com/vslam/utils"
)

// Match pairs keypoint Idx1 of the first keyframe with keypoint Idx2 of the second.
type Match struct {
	Idx1 int `json:"idx1" yaml:"idx1"`
	Idx2 int `json:"idx2" yaml:"idx2"`
}

// Result is the outcome of triangulating one Match.
type Result struct {
	Match
	Point          r3.Vector
	Reason         Rejection
	ParallaxDeg    float64
	DepthInCamera1 float64
}

// BatchResult summarizes a batch of matches. Results are in the order of the input matches.
type BatchResult struct {
	Results  []Result
	Accepted []Result
	Counts   map[Rejection]int
	// MedianParallaxDeg and MeanDepth are computed over accepted results and are zero when none were accepted.
	MedianParallaxDeg float64
	MeanDepth         float64
}

// TriangulateMatches triangulates every match in parallel. Matches with out of range indices are an error.
// When ctx is canceled part way the results gathered so far are discarded and ctx.Err() is returned.
// A nil logger logs to logging.Global().
func TriangulateMatches(ctx context.Context, tri *TwoViewTriangulator, matches []Match, logger logging.Logger) (*BatchResult, error) {
	if logger == nil {
		logger = logging.Global()
	}
	n1, n2 := tri.view1.kf.NumKeypoints(), tri.view2.kf.NumKeypoints()
	for i, m := range matches {
		if m.Idx1 < 0 || m.Idx1 >= n1 || m.Idx2 < 0 || m.Idx2 >= n2 {
			return nil, errors.Errorf("match %d (%d, %d) is out of range for keyframes with %d and %d keypoints",
				i, m.Idx1, m.Idx2, n1, n2)
		}
	}

	results := make([]Result, len(matches))
	if err := rutils.GroupWorkParallel(
		ctx,
		len(matches),
		func(numGroups int) {
			logger.Debugw("triangulating matches", "matches", len(matches), "groups", numGroups)
		},
		func(groupNum, groupSize, from, to int) (rutils.MemberWorkFunc, rutils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				results[workNum] = tri.triangulateMatch(matches[workNum])
			}, nil
		},
	); err != nil {
		return nil, err
	}

	accepted := lo.Filter(results, func(r Result, _ int) bool { return r.Reason == Accepted })
	out := &BatchResult{
		Results:  results,
		Accepted: accepted,
		Counts:   lo.CountValuesBy(results, func(r Result) Rejection { return r.Reason }),
	}
	if len(accepted) > 0 {
		var err error
		out.MedianParallaxDeg, err = stats.Median(lo.Map(accepted, func(r Result, _ int) float64 { return r.ParallaxDeg }))
		if err != nil {
			return nil, errors.Wrap(err, "cannot compute median parallax")
		}
		out.MeanDepth, err = stats.Mean(lo.Map(accepted, func(r Result, _ int) float64 { return r.DepthInCamera1 }))
		if err != nil {
			return nil, errors.Wrap(err, "cannot compute mean depth")
		}
	}

	fields := []interface{}{"matches", len(matches), "accepted", len(accepted)}
	for _, r := range Rejections[1:] {
		if c := out.Counts[r]; c > 0 {
			fields = append(fields, r.String(), c)
		}
	}
	logger.Debugw("triangulated matches", fields...)
	return out, nil
}

func (tri *TwoViewTriangulator) triangulateMatch(m Match) Result {
	p, reason := tri.TriangulateWithReason(m.Idx1, m.Idx2)
	res := Result{
		Match:       m,
		Reason:      reason,
		ParallaxDeg: rutils.RadToDeg(math.Acos(math.Max(-1, math.Min(1, tri.CosParallax(m.Idx1, m.Idx2))))),
	}
	if reason == Accepted {
		res.Point = p
		res.DepthInCamera1 = tri.view1.toCamera(p).Z
	}
	return res
}
