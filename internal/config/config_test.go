package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, []string{"/dashboard", "/onboarding"}, cfg.Routes.ProtectedPrefixes)
	assert.Equal(t, []string{"/login", "/signup"}, cfg.Routes.AuthOnlyPaths)
	assert.Equal(t, "/login", cfg.Routes.LoginPath)
	assert.Equal(t, "/signup", cfg.Routes.SignupPath)
	assert.Equal(t, time.Hour, cfg.Auth.FlowTTL)
	assert.Equal(t, "onboarding", cfg.Auth.LookupFailure)
	assert.True(t, cfg.Supabase.VerifyRemote)
	assert.Equal(t, "http://localhost:54321", cfg.Supabase.URL)
	assert.Len(t, cfg.TrustedProxies, 5)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORT":               "9090",
		"BASE_URL":           "https://app.smarttext.ai/",
		"PROTECTED_PREFIXES": "/dashboard,/settings",
		"ADMIN_EMAILS":       "ops@smarttext.ai,Founder@SmartText.ai",
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://app.smarttext.ai", cfg.BaseURL)
	assert.Equal(t, []string{"/dashboard", "/settings"}, cfg.Routes.ProtectedPrefixes)
	assert.True(t, cfg.Admin.IsAdmin("founder@smarttext.ai"))
	assert.False(t, cfg.Admin.IsAdmin("someone@example.com"))
	assert.False(t, cfg.Admin.IsAdmin(""))
}

func TestLoad_ProductionRequiresSupabase(t *testing.T) {
	_, err := LoadFrom(map[string]string{"ENV": "production"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")

	cfg, err := LoadFrom(map[string]string{
		"ENV":                 "Production",
		"SUPABASE_URL":        "https://abc.supabase.co",
		"SUPABASE_ANON_KEY":   "anon",
		"SUPABASE_JWT_SECRET": "0123456789abcdef0123456789abcdef",
	})
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_FormPathsFollowAuthOnlyPaths(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"AUTH_ONLY_PATHS": "/sign-in,/join",
		"LOGIN_PATH":      "/sign-in",
		"SIGNUP_PATH":     "/join",
	})
	require.NoError(t, err)
	assert.Equal(t, "/join", cfg.Routes.SignupPath)

	_, err = LoadFrom(map[string]string{"AUTH_ONLY_PATHS": "/login,/join"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIGNUP_PATH")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	_, err := LoadFrom(map[string]string{"DB_DRIVER": "sqlite"})
	require.Error(t, err)
}

func TestLoad_RejectsUnknownLookupFailure(t *testing.T) {
	_, err := LoadFrom(map[string]string{"AUTH_LOOKUP_FAILURE": "dashboard"})
	require.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "pgx", Host: "db", User: "u", Password: "p", Name: "app"}
	assert.Equal(t, "postgres://u:p@db:5432/app?sslmode=prefer", pg.DSN())

	my := DatabaseConfig{Driver: "mysql", Host: "db:3307", User: "u", Password: "p@ss", Name: "app"}
	assert.Contains(t, my.DSN(), "tcp(db:3307)/app")

	override := DatabaseConfig{Driver: "pgx", URL: "postgres://x"}
	assert.Equal(t, "postgres://x", override.DSN())
}
