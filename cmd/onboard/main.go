// Package main is the entry point for the onboard CLI.
package main

import (
	"os"

	"github.com/mrz1836/onboard/internal/cli"
)

// Set by the linker: -X main.version=... -X main.commit=... -X main.date=...
//
//nolint:gochecknoglobals // Build metadata injected by ldflags
var (
	version string
	commit  string
	date    string
)

func main() {
	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
