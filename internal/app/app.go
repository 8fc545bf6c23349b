package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/groupchat-server/internal/auth"
	"github.com/vovakirdan/groupchat-server/internal/config"
	"github.com/vovakirdan/groupchat-server/internal/core"
	"github.com/vovakirdan/groupchat-server/internal/store"
	"github.com/vovakirdan/groupchat-server/internal/store/jsonfile"
	"github.com/vovakirdan/groupchat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/groupchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	opts := core.Options{
		HistoryLimit: cfg.HistoryLimit,
		LobbyName:    cfg.LobbyName,
	}
	if cfg.JWTRequired {
		opts.Verifier = authService
	}

	hubLogger := logger.With().Str("component", "hub").Logger()
	hub := core.NewHub(st, opts, &hubLogger)
	if err := hub.Bootstrap(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("bootstrap hub: %w", err)
	}

	server := transporthttp.NewServer(hub, authService, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// OpenStore opens the storage backend selected by cfg.StorageDriver.
func OpenStore(cfg *config.Config, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
		return st, nil
	default:
		st, err := jsonfile.Open(cfg.DataPath, cfg.FlushInterval, logger)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("data_path", cfg.DataPath).Msg("data file loaded")
		return st, nil
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup(stopHub)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup(stopHub)
			return err
		}

		a.cleanup(stopHub)
		return <-serverErr
	}
}

// cleanup stops the hub, waits for its last command to finish, then flushes and closes the store.
func (a *App) cleanup(stopHub context.CancelFunc) {
	stopHub()
	<-a.hub.Done()
	a.log.Info().Msg("hub stopped")

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
