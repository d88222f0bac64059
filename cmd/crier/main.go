// Package main provides the crier CLI entrypoint.
//
// Running crier with no subcommand executes the harness: every
// selected runner builds its daily update, and live mode posts the
// result to the configured webhook. All other commands are read-only.
//
// Usage:
//
//	crier [options]
//	crier <command> [subcommand] [options]
//
// Exit codes for the root run:
//   - 0: run completed
//   - 1: fatal error (config, storage, build, archive read)
//   - 2: required environment variables missing
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crier/cli/cmd"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	app := &cli.App{
		Name:           "crier",
		Usage:          "Scheduled scrape-and-announce harness",
		Version:        fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags:          cmd.RunFlags(),
		Action:         cmd.RunAction,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.ListCommand(),
			cmd.HistoryCommand(),
			cmd.VersionCommand(version, commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder
		// errors. This branch covers unexpected errors that were not
		// wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit so cron wrappers
// can tell a misconfigured deployment (2) from a failed run (1).
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	// Unexpected error, print and exit with code 1.
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
