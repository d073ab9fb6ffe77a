package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/store"
	"github.com/vovakirdan/supportchat-server/internal/store/sqlite"
	"github.com/vovakirdan/supportchat-server/internal/suggest"
	transporthttp "github.com/vovakirdan/supportchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	redis           *redis.Client
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	relay := newRelayStore(st)
	suggester, rdb, err := newSuggester(cfg, relay, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	hub := core.NewHub(
		core.WithLogger(logger),
		core.WithSuggester(suggester),
		core.WithPersister(relay),
		core.WithSuggestionTimeout(cfg.AITimeout),
		core.WithPersistTimeout(cfg.PersistTimeout),
	)
	server := transporthttp.NewServer(hub, authService, st, suggester, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		redis:           rdb,
		log:             logger,
	}, nil
}

// newSuggester picks the placeholder or the AI service client, optionally behind a redis cache.
func newSuggester(cfg *config.Config, history suggest.HistorySource, logger *zerolog.Logger) (core.Suggester, *redis.Client, error) {
	if cfg.AIServiceURL == "" {
		logger.Info().Msg("ai_service_url not set, using placeholder suggestions")
		return suggest.NewStatic(), nil, nil
	}

	var suggester core.Suggester = suggest.NewClient(cfg.AIServiceURL, cfg.AITimeout,
		suggest.WithHistory(history, 0),
		suggest.WithClientLogger(logger),
	)
	logger.Info().Str("url", cfg.AIServiceURL).Msg("using ai service for suggestions")

	if cfg.RedisURL == "" {
		return suggester, nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis_url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// The cache falls through to the service while redis is down.
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("redis unreachable, suggestions uncached until it recovers")
	} else {
		logger.Info().Str("addr", opts.Addr).Dur("ttl", cfg.SuggestionCacheTTL).Msg("suggestion cache enabled")
	}

	return suggest.NewCached(suggester, rdb, cfg.SuggestionCacheTTL, logger), rdb, nil
}

// Run starts the hub and the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

// Migrate applies the database schema and exits.
func Migrate(cfg *config.Config, logger *zerolog.Logger) error {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("schema applied")
	return st.Close()
}
