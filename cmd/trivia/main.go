// Command trivia runs the HUGS trivia server and exposes its operations
// as one-shot commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "github.com/hugs-network/trivia_layer/internal/app"
	"github.com/hugs-network/trivia_layer/internal/config"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "trivia",
	Short:         "HUGS trivia rounds and reward settlement",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file read before the environment is decoded")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadApp builds the application from the environment. The caller closes it.
func loadApp(ctx context.Context) (*app.Application, error) {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New("trivia", cfg.LogLevel, cfg.LogFormat)
	return app.New(ctx, cfg, app.Overrides{}, log)
}

// withApp runs fn against a freshly built application.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) (interface{}, error)) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := fn(ctx, a)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
