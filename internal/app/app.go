package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/campushub/campushub-server/internal/auth"
	"github.com/campushub/campushub-server/internal/config"
	"github.com/campushub/campushub-server/internal/realtime"
	"github.com/campushub/campushub-server/internal/store"
	"github.com/campushub/campushub-server/internal/store/sqlite"
	transporthttp "github.com/campushub/campushub-server/internal/transport/http"
)

// App wires together the realtime core, its collaborators, and the
// transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	janitor         *realtime.Janitor
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	// One registry instance for the process; all realtime state lives here.
	registry := realtime.NewRegistry()
	relay := realtime.NewRelay(registry, logger)
	router := realtime.NewRouter(registry, relay, st, logger)
	janitor := realtime.NewJanitor(registry, logger)

	server := transporthttp.NewServer(cfg, authService, st, registry, router, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		janitor:         janitor,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the janitor and the HTTP server, blocking until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.janitor.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
