package cmd

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crier/cli/render"
	"github.com/pithecene-io/crier/registry"
	"github.com/pithecene-io/crier/runner"
)

// runnerEntry is the list command's view of one registered runner.
type runnerEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	RequiredEnv string `json:"required_env" yaml:"required_env"`
}

// ListCommand returns the list command: the rich counterpart to the
// --list-runners flag.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List registered runners",
		Flags:  ReadOnlyFlags(),
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list", exitFailure)
	}

	return r.Render(listRunners(registry.Default))
}

func listRunners(reg *registry.Registry) []runnerEntry {
	all := reg.All()
	entries := make([]runnerEntry, 0, len(all))
	for _, rn := range all {
		e := runnerEntry{
			Name:        rn.Name(),
			RequiredEnv: strings.Join(rn.RequiredEnv(), ","),
		}
		if d, ok := rn.(runner.Describer); ok {
			e.Description = d.Description()
		}
		entries = append(entries, e)
	}
	return entries
}
