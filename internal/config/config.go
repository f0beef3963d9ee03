// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV, default=development"`

	// Port is the HTTP listen port (default: 8080).
	Port int `env:"PORT, default=8080"`

	// BaseURL is the public-facing URL used for magic-link callbacks.
	BaseURL string `env:"BASE_URL, default=http://localhost:8080"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `env:"LOG_LEVEL, default=debug"`

	// TrustedProxies lists the CIDRs whose forwarding headers are trusted
	// when resolving the client IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES, default=127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,fd00::/8"`

	Database DatabaseConfig
	Redis    RedisConfig
	Supabase SupabaseConfig
	Routes   RoutesConfig
	Auth     AuthConfig
	Admin    AdminConfig
}

// DatabaseConfig holds the business store connection settings. Supabase
// Postgres is the default; DB_DRIVER=mysql switches to a self-hosted MariaDB.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Driver is the database/sql driver name: "pgx" or "mysql".
	Driver string `env:"DB_DRIVER, default=pgx"`

	// Host is the database address in host:port format. If no port is
	// specified, the driver's default port is appended.
	Host     string `env:"DB_HOST, default=localhost"`
	User     string `env:"DB_USER, default=postgres"`
	Password string `env:"DB_PASSWORD, default=postgres"`
	Name     string `env:"DB_NAME, default=postgres"`

	// URL bypasses the individual fields when set.
	URL string `env:"DATABASE_URL"`

	// MigrationsPath is the root directory holding one sub-directory of
	// migrations per driver.
	MigrationsPath string `env:"DB_MIGRATIONS_PATH, default=db/migrations"`

	// AutoMigrate applies pending migrations on startup.
	AutoMigrate bool `env:"DB_AUTO_MIGRATE, default=true"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS, default=25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=5m"`
}

// DSN returns the connection string for the configured driver. For MySQL the
// DSN is built with the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "mysql" {
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = ensurePort(d.Host, "3306")
		cfg.DBName = d.Name
		cfg.ParseTime = true
		cfg.MultiStatements = true
		return cfg.FormatDSN()
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     ensurePort(d.Host, "5432"),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=prefer",
	}
	return u.String()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string `env:"REDIS_URL, default=redis://localhost:6379"`
}

// SupabaseConfig holds the identity provider settings.
type SupabaseConfig struct {
	// URL is the project URL, e.g. https://abc.supabase.co.
	URL string `env:"SUPABASE_URL"`

	// AnonKey is the public API key sent as the apikey header.
	AnonKey string `env:"SUPABASE_ANON_KEY"`

	// JWTSecret verifies access tokens locally (HS256).
	JWTSecret string `env:"SUPABASE_JWT_SECRET"`

	// VerifyRemote confirms every access token with GET /auth/v1/user.
	VerifyRemote bool `env:"SUPABASE_VERIFY_REMOTE, default=true"`

	// Timeout bounds every outbound call to the provider.
	Timeout time.Duration `env:"SUPABASE_TIMEOUT, default=10s"`
}

// RoutesConfig holds the route rule sets used by the gate middleware.
type RoutesConfig struct {
	ProtectedPrefixes []string `env:"PROTECTED_PREFIXES, default=/dashboard,/onboarding"`
	AuthOnlyPaths     []string `env:"AUTH_ONLY_PATHS, default=/login,/signup"`
	LoginPath         string   `env:"LOGIN_PATH, default=/login"`
	SignupPath        string   `env:"SIGNUP_PATH, default=/signup"`
	DashboardPath     string   `env:"DASHBOARD_PATH, default=/dashboard"`
	OnboardingPath    string   `env:"ONBOARDING_PATH, default=/onboarding"`
}

// AuthConfig holds authentication flow settings.
type AuthConfig struct {
	// FlowTTL is how long a magic-link attempt stays redeemable on our side.
	FlowTTL time.Duration `env:"AUTH_FLOW_TTL, default=1h"`

	// LookupFailure decides what a failed business lookup means for a
	// signed-in user on an auth-only page: "onboarding" or "error".
	LookupFailure string `env:"AUTH_LOOKUP_FAILURE, default=onboarding"`

	// MagicLinkLimit is the number of magic-link requests allowed per IP
	// per MagicLinkWindow.
	MagicLinkLimit  int           `env:"AUTH_MAGIC_LINK_LIMIT, default=5"`
	MagicLinkWindow time.Duration `env:"AUTH_MAGIC_LINK_WINDOW, default=1m"`
}

// AdminConfig holds settings for the admin reporting endpoints.
type AdminConfig struct {
	// Emails lists the users allowed to read admin reports.
	Emails []string `env:"ADMIN_EMAILS"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

// LoadFrom reads configuration from the given map. Used by tests.
func LoadFrom(env map[string]string) (*Config, error) {
	return load(context.Background(), envconfig.MapLookuper(env))
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	switch cfg.Database.Driver {
	case "pgx", "mysql":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be pgx or mysql, got %q", cfg.Database.Driver)
	}

	switch cfg.Auth.LookupFailure {
	case "onboarding", "error":
	default:
		return nil, fmt.Errorf("AUTH_LOOKUP_FAILURE must be onboarding or error, got %q", cfg.Auth.LookupFailure)
	}

	// The sign-in forms must be gated as auth-only, or signed-in users
	// would see them.
	if !slices.Contains(cfg.Routes.AuthOnlyPaths, cfg.Routes.LoginPath) {
		return nil, fmt.Errorf("LOGIN_PATH %q must be listed in AUTH_ONLY_PATHS", cfg.Routes.LoginPath)
	}
	if !slices.Contains(cfg.Routes.AuthOnlyPaths, cfg.Routes.SignupPath) {
		return nil, fmt.Errorf("SIGNUP_PATH %q must be listed in AUTH_ONLY_PATHS", cfg.Routes.SignupPath)
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	if cfg.IsProduction() {
		if cfg.Supabase.URL == "" {
			return nil, fmt.Errorf("SUPABASE_URL is required in production")
		}
		if cfg.Supabase.AnonKey == "" {
			return nil, fmt.Errorf("SUPABASE_ANON_KEY is required in production")
		}
		if len(cfg.Supabase.JWTSecret) < 32 {
			return nil, fmt.Errorf("SUPABASE_JWT_SECRET must be at least 32 characters in production")
		}
	}

	// Local Supabase (supabase start) defaults so dev works without .env.
	if cfg.Supabase.URL == "" {
		cfg.Supabase.URL = "http://localhost:54321"
	}
	if cfg.Supabase.JWTSecret == "" {
		cfg.Supabase.JWTSecret = "super-secret-jwt-token-with-at-least-32-characters-long"
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Supabase.URL = strings.TrimRight(cfg.Supabase.URL, "/")

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// IsAdmin reports whether the email belongs to a configured admin.
func (a AdminConfig) IsAdmin(email string) bool {
	if email == "" {
		return false
	}
	for _, e := range a.Emails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}
