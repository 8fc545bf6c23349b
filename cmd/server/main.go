package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/groupchat-server/internal/app"
	"github.com/vovakirdan/groupchat-server/internal/config"
	"github.com/vovakirdan/groupchat-server/internal/log"
)

type rootFlags struct {
	configPath string
	overrides  config.Config
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:           "groupchat-server",
	Short:         "Real-time group chat server with a public lobby, private rooms and invitations.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config.yaml")
	pf.StringVar(&flags.overrides.Addr, "addr", "", "HTTP listen address")
	pf.StringVar(&flags.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.overrides.LogFormat, "log-format", "", "log format (console or json)")
	pf.StringVar(&flags.overrides.StorageDriver, "storage", "", "storage driver (json or sqlite)")
	pf.StringVar(&flags.overrides.StaticDir, "static-dir", "", "directory with the web client")

	rootCmd.AddCommand(serveCmd)
}

// loadConfig resolves configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	bootLogger := log.New(flags.overrides.LogLevel, flags.overrides.LogFormat)

	cfg, path, err := config.Load(bootLogger, flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(flags.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Str("storage", cfg.StorageDriver).
		Bool("jwt_required", cfg.JWTRequired).
		Msg("starting groupchat server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
