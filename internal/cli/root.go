// Package cli implements the rpcserver command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// NewRootCommand returns the rpcserver command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "rpcserver",
		Short:         "JSON-RPC 2.0 server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newRunCommand(), newConfigCommand(), newVersionCommand())
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
