package main

import (
	"fmt"
	"fqlrun/internal/render"
	"fqlrun/internal/types"

	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the Fauna settings",
	}
	cmd.AddCommand(newConfigGetCommand())
	cmd.AddCommand(newConfigSetCommand())
	return cmd
}

func newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cliOptions(render.NewBuffer(), render.NewNotifier(cmd.ErrOrStderr()), false))
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			cfg := a.store.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", types.EndpointKey, cfg.Endpoint)
			if cfg.Secret == types.EmptySecret {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not set\n", types.SecretKey)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s fingerprint = %s\n", types.SecretKey, types.Fingerprint(cfg.Secret))
			}
			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting such as " + types.SecretKey,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cliOptions(render.NewBuffer(), render.NewNotifier(cmd.ErrOrStderr()), false))
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.settings.Set(ctx, args[0], args[1]); err != nil {
				return err
			}
			// Validates the new value the same way a running instance would.
			a.store.OnExternalChange(ctx, []string{args[0]})
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}
}
