package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"filippo.io/csrf"
	"github.com/rs/cors"
	zlog "github.com/rs/zerolog/log"

	"github.com/oaklinehq/workplace/internal/apps"
	"github.com/oaklinehq/workplace/internal/apps/skillassessment"
	"github.com/oaklinehq/workplace/internal/auth"
	httpmiddleware "github.com/oaklinehq/workplace/internal/http"
	"github.com/oaklinehq/workplace/internal/logger"
	"github.com/oaklinehq/workplace/internal/login"
	"github.com/oaklinehq/workplace/internal/seed"
	"github.com/oaklinehq/workplace/internal/server"
	"github.com/oaklinehq/workplace/internal/session"
	"github.com/oaklinehq/workplace/internal/store"
	memorystore "github.com/oaklinehq/workplace/internal/store/memory"
	postgresstore "github.com/oaklinehq/workplace/internal/store/postgres"
	"github.com/oaklinehq/workplace/internal/telemetry"
	"github.com/oaklinehq/workplace/internal/tenant"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:443" env:"WORKPLACE_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"WORKPLACE_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"WORKPLACE_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"WORKPLACE_CORS_ORIGINS"`

	// Session configuration
	SessionSecret string        `help:"secret key for signing session tokens (min 32 bytes)" env:"WORKPLACE_SESSION_SECRET"`
	SessionTTL    time.Duration `help:"session TTL" default:"168h" env:"WORKPLACE_SESSION_TTL"`

	// Operational modes
	Tracing bool   `help:"enable tracing and metrics export" default:"false" env:"WORKPLACE_TRACING"`
	Seed    string `help:"path to a YAML seed file applied on startup (development only)" default:"" env:"WORKPLACE_SEED"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"WORKPLACE_STORE_TYPE" enum:"memory,postgres"`
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
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"WORKPLACE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, "workplace-server", globals.Version)
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

	// Create stores based on store type
	var (
		userStore       store.UserStore
		enterpriseStore store.EnterpriseStore
		employmentStore store.EmploymentStore
		sessionStore    store.SessionStore
	)

	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
			AutoMigrate:     c.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return fmt.Errorf("failed to create store pool: %w", err)
		}
		defer pool.Close()

		userStore = postgresstore.NewUserStore(pool)
		enterpriseStore = postgresstore.NewEnterpriseStore(pool)
		employmentStore = postgresstore.NewEmploymentStore(pool)
		sessionStore = postgresstore.NewSessionStore(pool)
		log.Info().Msg("Using PostgreSQL stores")

	default:
		enterprises := memorystore.NewEnterpriseStore()
		userStore = memorystore.NewUserStore()
		enterpriseStore = enterprises
		employmentStore = memorystore.NewEmploymentStore(enterprises)
		sessionStore = memorystore.NewSessionStore()
		log.Info().Msg("Using in-memory stores")
	}

	if c.Seed != "" {
		seedFile, err := seed.Load(c.Seed)
		if err != nil {
			return fmt.Errorf("failed to load seed file: %w", err)
		}
		if err := seedFile.Apply(ctx, seed.Stores{
			Users:       userStore,
			Enterprises: enterpriseStore,
			Employments: employmentStore,
		}); err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
	}

	sessions, err := session.NewManager(sessionStore, []byte(c.SessionSecret), c.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	// Reap expired session rows in the background. Expiry is enforced on
	// read regardless; this just keeps the table small.
	go reapSessions(ctx, sessionStore)

	registry := apps.NewBuilder().
		Register(skillassessment.Descriptor(enterpriseStore)).
		Build()

	resolver := tenant.NewResolver(enterpriseStore, employmentStore)
	engine := auth.NewEngine(employmentStore, registry)
	loginSvc := login.NewService(userStore, sessions, resolver)

	srv := server.NewServer(server.Stores{
		Users:       userStore,
		Enterprises: enterpriseStore,
		Employments: employmentStore,
	}, sessions, resolver, engine, registry, loginSvc)

	mux := srv.Handler()

	// CSRF protection for browser routes, CORS for API routes.
	protection := csrf.New()
	routed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isBrowserRoute(r.URL.Path) {
			protection.Handler(mux).ServeHTTP(w, r)
		} else {
			withCORS(c.CORSOrigins, mux).ServeHTTP(w, r)
		}
	})

	handler := logger.NewHTTPRequests(log)(httpmiddleware.ClientIPMiddleware()(routed))

	// Validate TLS certificates
	if c.Cert == "" || c.Key == "" {
		return errors.New("TLS certificate and key are required (--cert and --key)")
	}
	if _, err := os.Stat(c.Cert); err != nil {
		return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
	}
	if _, err := os.Stat(c.Key); err != nil {
		return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
	}

	log.Info().Str("addr", c.Listen).Str("store", c.StoreType).Msg("Starting HTTPS server")
	return configureHTTPServer(c.Listen, handler).ListenAndServeTLS(c.Cert, c.Key)
}

// isBrowserRoute returns true for routes driven by browser navigation and
// form posts, which get CSRF protection instead of CORS.
func isBrowserRoute(path string) bool {
	switch path {
	case "/login", "/logout", "/dashboard", "/enterprises/select", "/enterprises/switch":
		return true
	}
	return false
}

func reapSessions(ctx context.Context, sessions store.SessionStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.DeleteExpired(ctx); err != nil {
				zlog.Warn().Err(err).Msg("Failed to reap expired sessions")
			}
		}
	}
}

// withCORS adds CORS support to the API routes.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}
