package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo is the version information stamped at build time.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // Set once from main via SetBuildInfo
var buildInfo BuildInfo

// SetBuildInfo records the build metadata shown by the version command.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

func (b BuildInfo) version() string {
	if b.Version == "" {
		return "dev"
	}
	return b.Version
}

// formatVersion renders build info on one line.
func formatVersion(b BuildInfo) string {
	commit, date := b.Commit, b.Date
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", b.version(), commit, date)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		type versionJSON struct {
			BuildInfo
			Go       string `json:"go"`
			Platform string `json:"platform"`
		}
		resp := versionJSON{
			BuildInfo: BuildInfo{Version: buildInfo.version(), Commit: buildInfo.Commit, Date: buildInfo.Date},
			Go:        runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
		return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
			out(w, "onboard %s\n", formatVersion(buildInfo))
			out(w, "%s %s\n", resp.Go, resp.Platform)
			return nil
		})
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
