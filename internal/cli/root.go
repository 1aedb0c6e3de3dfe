// Package cli holds the servicedesk command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/servicedesk/internal/persistence"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	MigrationsDir string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "servicedesk",
		Short:         "Helpdesk ticketing with SLA tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.MigrationsDir, "migrations", persistence.DefaultMigrationsDir, "directory holding SQL migrations")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewCreateUserCommand(opts))
	cmd.AddCommand(NewCreateCategoryCommand(opts))

	return cmd
}
