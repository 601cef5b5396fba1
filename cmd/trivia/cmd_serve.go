package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugs-network/trivia_layer/internal/app/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		return runtime.NewServer(a).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
