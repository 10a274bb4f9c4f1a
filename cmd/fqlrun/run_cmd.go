package main

import (
	"fmt"
	"fqlrun/internal/ports"
	"fqlrun/internal/render"
	"fqlrun/internal/types"
	"io"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var role, doc, secret string
	cmd := &cobra.Command{
		Use:   "run [file.fql | -]",
		Short: "Run a query document and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cliOptions(render.NewWriter(cmd.OutOrStdout()), render.NewNotifier(cmd.ErrOrStderr()), true))
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			var src ports.DocumentSource = render.FileDocument{Path: args[0]}
			if args[0] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				src = render.TextDocument{Language: render.LanguageID, Body: string(b)}
			}

			var outcome types.Outcome
			switch {
			case cmd.Flags().Changed("secret"):
				outcome = a.orch.RunQueryWithSecret(ctx, src, secret)
			case cmd.Flags().Changed("role"):
				outcome = a.orch.RunQueryAsRole(ctx, src, role)
			case cmd.Flags().Changed("doc"):
				outcome = a.orch.RunQueryAsDoc(ctx, src, doc)
			default:
				outcome = a.orch.RunQuery(ctx, src)
			}
			if !outcome.OK() {
				return fmt.Errorf("%s", types.OutcomeText[outcome.Kind])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "run the query as this role")
	cmd.Flags().StringVar(&doc, "doc", "", "run the query as this document, e.g. Users/1234")
	cmd.Flags().StringVar(&secret, "secret", "", "run the query with this secret instead of the configured one")
	return cmd
}
