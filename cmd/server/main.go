// Command server runs the message API.
//
// @title                      go-message-backend API
// @version                    1.0
// @description                Message storage and search with bearer-token authentication.
// @description                Every error response uses the same payload: title, status, instance and details.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-message-backend/docs"
	"github.com/tbourn/go-message-backend/internal/config"
	httpapi "github.com/tbourn/go-message-backend/internal/http"
	"github.com/tbourn/go-message-backend/internal/observability"
	"github.com/tbourn/go-message-backend/internal/repo"
	"github.com/tbourn/go-message-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	redisConnectTimeout = 5 * time.Second
	janitorInterval     = 10 * time.Minute
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return fmt.Errorf("db tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tokens, closeTokens, err := openTokenStore(ctx, db, cfg.Auth)
	if err != nil {
		return err
	}
	defer closeTokens()

	seeded, err := httpapi.NewAuthService(db, tokens, cfg.Auth).SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed credentials: %w", err)
	}
	if seeded {
		log.Warn().Msg("seeded default credentials; replace them outside development")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, tokens, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go janitor(ctx, db, tokens, janitorInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("token_store", cfg.Auth.TokenStore).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openTokenStore selects the token store named by cfg.TokenStore. The
// returned close func releases any connection it opened.
func openTokenStore(ctx context.Context, db *gorm.DB, cfg config.AuthConfig) (repo.TokenStore, func(), error) {
	if cfg.TokenStore != "redis" {
		return repo.NewSQLTokenStore(db), func() {}, nil
	}
	client, err := repo.OpenRedis(ctx, cfg.RedisURL, redisConnectTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("token store: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	return repo.NewRedisTokenStore(client, repo.DefaultTokenKeyPrefix), closeFn, nil
}

// janitor periodically deletes expired idempotency records and, for the SQL
// store, expired tokens. Redis expires tokens on its own.
func janitor(ctx context.Context, db *gorm.DB, tokens repo.TokenStore, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		now := time.Now().UTC()
		if n, err := repo.PurgeIdempotency(ctx, db, now); err != nil {
			log.Warn().Err(err).Msg("purge idempotency")
		} else if n > 0 {
			log.Debug().Int64("rows", n).Msg("purged idempotency records")
		}
		if sqlStore, ok := tokens.(*repo.SQLTokenStore); ok {
			if n, err := sqlStore.PurgeExpired(ctx, now); err != nil {
				log.Warn().Err(err).Msg("purge tokens")
			} else if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged expired tokens")
			}
		}
	}
}
