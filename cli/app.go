// Package cli contains the twoview command line application.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/vslam/logging"
)

const (
	// Flags.
	generalFlagDebug = "debug"

	triangulateFlagScene        = "scene"
	triangulateFlagParallaxDeg  = "parallax-deg"
	triangulateFlagEstimatePose = "estimate-pose"
	triangulateFlagQuiet        = "quiet"
)

var app = &cli.App{
	Name:            "twoview",
	Usage:           "triangulate landmarks between two keyframes",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "triangulate",
			Usage:     "triangulate the matches of a two keyframe scene",
			UsageText: "twoview triangulate --scene <scene.json|scene.yaml> [options]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     triangulateFlagScene,
					Aliases:  []string{"s"},
					Usage:    "scene file describing cameras, keyframes and matches, as JSON or YAML",
					Required: true,
				},
				&cli.Float64Flag{
					Name:  triangulateFlagParallaxDeg,
					Usage: "smallest parallax in degrees to triangulate, overrides the scene",
				},
				&cli.BoolFlag{
					Name: triangulateFlagEstimatePose,
					Usage: "ignore the keyframe poses and estimate the relative pose from the matches " +
						"with the eight point algorithm; both cameras must be perspective",
				},
				&cli.BoolFlag{
					Name:  triangulateFlagQuiet,
					Usage: "only print the summary",
				},
			},
			Action: TriangulateAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// newLogger returns a logger writing to the app's error writer and installs it as the global
// logger. Logs are at INFO unless the debug flag is set.
func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("twoview")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.INFO)
	}
	logging.ReplaceGlobal(logger)
	return logger
}
