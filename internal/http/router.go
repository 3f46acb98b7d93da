// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, compression, idempotency, rate limiting, and
// bearer authentication.
//
// Every failure, including unmatched routes and methods, is rendered through
// middleware.AbortWithError so clients see a single error payload shape.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/config"
	"github.com/tbourn/go-message-backend/internal/errcodes"
	"github.com/tbourn/go-message-backend/internal/http/handlers"
	"github.com/tbourn/go-message-backend/internal/http/middleware"
	"github.com/tbourn/go-message-backend/internal/repo"
	"github.com/tbourn/go-message-backend/internal/services"
)

const maxBodyBytes = 1 << 20

// NewAuthService builds the token service from configuration. The same
// construction is used for routing and for seeding credentials at startup.
func NewAuthService(db *gorm.DB, tokens repo.TokenStore, cfg config.AuthConfig) *services.AuthService {
	return &services.AuthService{
		DB:        db,
		Store:     tokens,
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		TTL:       cfg.TokenTTL,
		ClockSkew: cfg.ClockSkew,
	}
}

// bearerVerifier adapts AuthService.Verify to the middleware contract:
// rejected tokens become the InvalidToken code, anything else is internal.
func bearerVerifier(auth *services.AuthService) middleware.BearerVerifier {
	return func(ctx context.Context, token string) (string, error) {
		claims, err := auth.Verify(ctx, token)
		if err != nil {
			if errors.Is(err, services.ErrInvalidToken) {
				return "", apierr.NewCode(errcodes.InvalidToken)
			}
			return "", apierr.NewInternal(err)
		}
		return claims.Subject, nil
	}
}

// idempotencyLookup reports whether a live create-message record exists for
// (subject, key). Lookup failures are treated as a miss by the middleware.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, subject, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, subject, services.ScopeCreateMessage, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return rec != nil, nil
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS, security headers and gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, tokens repo.TokenStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to the internal error payload
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyLookup(db),
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{
		RPS:         cfg.RateRPS,
		Burst:       cfg.RateBurst,
		Key:         middleware.KeyByUserOrIP(),
		ExemptPaths: []string{"/health", "/metrics"},
	})
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	listHeaders := []string{handlers.HeaderTotalCount, handlers.HeaderTotalPages, "ETag", handlers.HeaderIdempotencyReplayed}
	exposeHeaders := append([]string{"X-Request-ID", "Content-Length"}, listHeaders...)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		EnablePolicy:    true,
		NoStorePrefixes: []string{apiPath(cfg.APIBasePath, "/auth/"), apiPath(cfg.APIBasePath, "/protected")},
		ExposeHeaders:   listHeaders,
	}))

	// Response compression; /metrics negotiates its own encoding.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, nil)
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, apierr.NewCode(errcodes.MethodNotAllowed))
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Static assets
	if fi, err := os.Stat(cfg.StaticDir); err == nil && fi.IsDir() {
		r.Static("/static", cfg.StaticDir)
	}

	// Dependency injection: services ← repo/db/token store
	msgSvc := &services.MessageService{DB: db, IdempotencyTTL: cfg.IdempotencyTTL}
	authSvc := NewAuthService(db, tokens, cfg.Auth)
	h := handlers.New(msgSvc, authSvc)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Messages
		api.GET("/messages", h.ListMessages)
		api.POST("/messages", h.PostMessage)
		api.GET("/messages/:query", h.SearchMessages)
		api.GET("/messages/id/:id", h.GetMessage)

		// Auth
		api.POST("/auth/token", h.IssueToken)
		api.GET("/protected", middleware.RequireBearer(bearerVerifier(authSvc)), h.Protected)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// apiPath joins the API base path and a route.
func apiPath(base, route string) string {
	if base == "/" {
		return route
	}
	return base + route
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
