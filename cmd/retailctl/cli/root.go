// Package cli implements the retailctl operator commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Env supplies lazily built dependencies so commands only connect to the
// backends they use.
type Env struct {
	Reports func(ctx context.Context) (ReportService, func(), error)
	Jobs    func() (*JobsCLI, error)
}

// NewRootCmd assembles the command tree.
func NewRootCmd(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "retailctl",
		Short:         "Operate the retail analytics service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCmd(env), newJobsCmd(env))
	return root
}
