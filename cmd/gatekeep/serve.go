package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/gatekeep/internal/app"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gatekeep HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(appOptions())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runErr := application.Run(ctx)
		if err := application.Shutdown(context.WithoutCancel(ctx)); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	},
}
