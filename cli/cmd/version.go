package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crier/cli/render"
)

// VersionResponse is the version command payload.
type VersionResponse struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command. Values are injected at
// build time via ldflags.
func VersionCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(version, commit),
	}
}

func versionAction(version, commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version", exitFailure)
		}

		return r.Render(VersionResponse{Version: version, Commit: commit})
	}
}
