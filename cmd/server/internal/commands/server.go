package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"filippo.io/csrf"
	"github.com/rs/cors"
	"github.com/stockroomhq/stockroom/internal/auth"
	httpmiddleware "github.com/stockroomhq/stockroom/internal/http"
	"github.com/stockroomhq/stockroom/internal/httpapi"
	"github.com/stockroomhq/stockroom/internal/logger"
	"github.com/stockroomhq/stockroom/internal/store"
	postgresstore "github.com/stockroomhq/stockroom/internal/store/postgres"
	"github.com/stockroomhq/stockroom/internal/telemetry"
	"github.com/stockroomhq/stockroom/internal/token"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"STOCKROOM_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"STOCKROOM_CORS_ORIGINS"`

	// Secrets
	TokenSecret  string `help:"secret for signing session JWTs" env:"STOCKROOM_TOKEN_SECRET"`
	CookieSecret string `help:"secret for signing session cookies" env:"STOCKROOM_COOKIE_SECRET"`

	// Operational modes
	Tracing bool `help:"enable tracing" default:"false" env:"STOCKROOM_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"STOCKROOM_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"STOCKROOM_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServerCmd) validateSecrets() error {
	if len(c.TokenSecret) < 32 {
		return errors.New("token secret must be at least 32 bytes (--token-secret or STOCKROOM_TOKEN_SECRET)")
	}
	if len(c.CookieSecret) < 32 {
		return errors.New("cookie secret must be at least 32 bytes (--cookie-secret or STOCKROOM_COOKIE_SECRET)")
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if err := c.validateSecrets(); err != nil {
		return err
	}

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "stockroom-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	stores, authStore, sessionStore, err := c.createStores(ctx)
	if err != nil {
		return err
	}

	codec, err := token.NewCodec(&token.Config{Secret: []byte(c.TokenSecret)})
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	cookies, err := auth.NewCookieManager([]byte(c.CookieSecret))
	if err != nil {
		return fmt.Errorf("failed to create cookie manager: %w", err)
	}

	hasher := auth.NewHasher(0)
	service := auth.NewService(authStore, sessionStore, stores.Users, codec, hasher)
	gate := auth.NewAuthenticator(codec, cookies, service)

	mux := http.NewServeMux()
	httpapi.Routes(mux, stores, service, cookies, hasher, gate)

	// Cross-origin request forgery protection. The configured CORS
	// origins are trusted so the browser frontend can still POST.
	protection := csrf.New()
	for _, origin := range c.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return fmt.Errorf("failed to trust origin %q: %w", origin, err)
		}
	}

	// Request pipeline: client IP capture, request logging, CSRF, CORS.
	handler := httpmiddleware.ClientIPMiddleware()(
		logger.Requests(log)(
			protection.Handler(
				withCORS(c.CORSOrigins, mux))))

	log.Info().Str("addr", c.Listen).Str("store", c.StoreType).Msg("Starting HTTP server")
	return configureHTTPServer(c.Listen, handler).ListenAndServe()
}

// createStores builds the data stores for the configured backend.
func (c *ServerCmd) createStores(ctx context.Context) (httpapi.Stores, store.AuthStore, store.SessionStore, error) {
	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return httpapi.Stores{}, nil, nil, fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		})
		if err != nil {
			return httpapi.Stores{}, nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return httpapi.Stores{}, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		stores := httpapi.Stores{
			Users:    postgresstore.NewUserStore(pool),
			Products: postgresstore.NewProductStore(pool),
		}
		return stores, postgresstore.NewAuthStore(pool), postgresstore.NewSessionStore(pool), nil

	default:
		users := store.NewMemoryUserStore()
		sessions := store.NewMemorySessionStore()
		stores := httpapi.Stores{
			Users:    users,
			Products: store.NewMemoryProductStore(),
		}
		return stores, store.NewMemoryAuthStore(users, sessions), sessions, nil
	}
}

// withCORS adds CORS support for browser clients. Credentials are
// allowed because authentication rides on cookies.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return middleware.Handler(h)
}
