package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nexsite/internal/config"
	"github.com/nexsite/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "server",
		Short:         "Nex Solutions marketing site",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFiles)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to read before the environment (default .env.local,.env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), envFiles)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Write the demo content into an empty store",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSeed(cmd.Context(), envFiles)
			},
		},
	)
	return root
}

// setup reads configuration and builds the logger shared by every command.
func setup(envFiles []string) (config.AppConfig, *zap.Logger, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return config.AppConfig{}, nil, err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("build logger: %w", err)
	}
	gin.SetMode(cfg.GinMode)
	return cfg, logger, nil
}
