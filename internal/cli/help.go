package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // guards one-time help enrichment
var enrichOnce sync.Once

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends the subcommand list to a parent command's Long
// description so parent help stays current.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() || cmd == cmd.Root() {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			sb.WriteString(fmt.Sprintf("  %-16s %s\n", sub.Name(), sub.Short))
		}
	}
	cmd.Long = sb.String()
}

func enrichHelp() {
	enrichOnce.Do(func() {
		walkCommands(rootCmd, enrichParentLong)
	})
}
