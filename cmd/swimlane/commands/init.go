package commands

import (
	"fmt"
	"os"

	"github.com/dyluth/swimlane/internal/printer"
	"github.com/dyluth/swimlane/internal/scaffold"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default swimlane.yml in the current directory",
		Long: `Write a commented swimlane.yml holding the default configuration.

Use --force to overwrite an existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to determine working directory: %w", err)
			}

			path, err := scaffold.Initialize(dir, force)
			if err != nil {
				return printer.Error("initialization failed", err.Error(), nil)
			}

			scaffold.PrintSuccess(path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing swimlane.yml")
	return cmd
}
