package main

import (
	"context"
	"fqlrun/internal/api"
	"fqlrun/internal/render"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over a local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out := render.NewBuffer()
			a, err := newApp(ctx, serveOptions(out, render.NewNotifier(cmd.ErrOrStderr())))
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			go a.store.Watch(ctx)

			stop, done := api.RunServerInterruptible(host, port, api.NewHandler(a.orch, a.store, out))
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				log.Info("shutting down")
				close(stop)
				return <-done
			}
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to listen on")
	cmd.Flags().IntVar(&port, "port", 8089, "port to listen on")
	return cmd
}
