package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fqlrun",
		Short:         "Run FQL queries against a Fauna endpoint",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newRolesCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newConfigCommand())
	return cmd
}
