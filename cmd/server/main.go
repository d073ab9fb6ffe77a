package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/supportchat-server/internal/app"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/log"
)

type rootFlags struct {
	configPath string
	overrides  config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "supportchat-server",
		Short:         "Customer support chat backend with a real-time conversation relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config.yaml (default: $SUPPORTCHAT_CONFIG_DEFAULT_PATH or ./config.yaml)")
	pf.StringVar(&flags.overrides.Addr, "addr", "", "HTTP listen address")
	pf.StringVar(&flags.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.overrides.DatabasePath, "db", "", "sqlite database path")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return app.Migrate(&cfg, logger)
		},
	})

	return root
}

func loadConfig(flags *rootFlags) (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")

	cfg, path, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, nil, err
	}
	cfg.UpdateFrom(flags.overrides)

	logger := log.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func serve(ctx context.Context, flags *rootFlags) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting supportchat server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
