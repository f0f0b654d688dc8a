package commands

import (
	"fmt"

	"github.com/dyluth/swimlane/internal/config"
	"github.com/spf13/cobra"
)

var versionString = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	namespace  string
}

// NewRootCmd builds the full command tree. Each call returns fresh commands with
// their own flag state.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "swimlane",
		Short: "Swimlane - real-time Kanban boards backed by Redis",
		Long: `Swimlane manages Kanban boards whose columns and tasks live in Redis.

Every change is published as it is written, so any number of clients
watching the same board converge on the same ordering. Tasks are ranked
with a full renumber on every move; the last write wins.`,
		Version: versionString,
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to swimlane.yml")
	root.PersistentFlags().StringVarP(&opts.namespace, "namespace", "n", "", "Key namespace (overrides config)")

	root.AddCommand(
		newInitCmd(),
		newBoardCmd(opts),
		newColumnCmd(opts),
		newTaskCmd(opts),
		newWatchCmd(opts),
		newDragCmd(opts),
	)
	return root
}

// Execute builds the root command and runs it against os.Args.
// This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
