package main

import (
	"fmt"
	"fqlrun/internal/render"

	"github.com/spf13/cobra"
)

func newRolesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List the roles a query can be run as",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cliOptions(render.NewBuffer(), render.NewNotifier(cmd.ErrOrStderr()), false))
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			roles, err := a.orch.Roles(ctx)
			if err != nil {
				return err
			}
			for _, r := range roles {
				if r.Description != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Name, r.Description)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), r.Name)
				}
			}
			return nil
		},
	}
	return cmd
}
