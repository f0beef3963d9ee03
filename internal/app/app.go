// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// identity provider, Echo instance) and wires the plugins together.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/config"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/templates/pages"
)

// metricsRegisterer receives the HTTP request collectors. A collector can
// only be registered once per registry.
var metricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the business store connection pool.
	DB *sql.DB

	// Redis holds pending sign-in flows and rate-limit counters.
	Redis *redis.Client

	// Provider is the identity provider. Defaults to the Supabase client
	// built from Config.Supabase.
	Provider identity.Provider

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*App, error) {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() must return the client, not the proxy: the magic-link rate
	// limiter keys on it.
	if err := middleware.TrustedProxies(e, cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("configuring trusted proxies: %w", err)
	}

	e.Validator = middleware.NewValidator()

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Provider: identity.NewSupabase(identity.SupabaseConfig{
			URL:          cfg.Supabase.URL,
			AnonKey:      cfg.Supabase.AnonKey,
			JWTSecret:    cfg.Supabase.JWTSecret,
			VerifyRemote: cfg.Supabase.VerifyRemote,
			Timeout:      cfg.Supabase.Timeout,
		}),
		Echo: e,
	}

	app.setupMiddleware()

	e.HTTPErrorHandler = app.errorHandler

	e.Static("/static", "static")

	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs
// last. The auth gate is added in RegisterRoutes, after CSRF.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())

	a.Echo.Use(echomw.RequestID())

	a.Echo.Use(middleware.RequestLogger())

	a.Echo.Use(middleware.SecurityHeaders(a.Config.IsProduction()))

	a.Echo.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "smarttext",
		Registerer: metricsRegisterer,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || p == "/healthz" || strings.HasPrefix(p, "/static")
		},
	}))

	a.Echo.Use(middleware.CSRF(a.Config.IsProduction()))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to HTTP responses: JSON for /api, an error page otherwise.
//
// For HTMX partial requests that hit errors, HX-Retarget and HX-Reswap make
// the error page replace the whole body instead of a fragment target.
//
// 401 on browser requests redirects to the login page.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message

		if appErr.Internal != nil {
			slog.Error("request failed",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
		}

	case errors.As(err, &echoErr):
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}

	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
			slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
	}

	if isAPIRequest(c) {
		_ = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	if code == http.StatusUnauthorized {
		_ = middleware.Redirect(c, a.Config.Routes.LoginPath)
		return
	}

	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	_ = middleware.Render(c, code, pages.ErrorPage(code, message))
}

// defaultErrorMessage returns a user-friendly message for common HTTP status
// codes when the error did not carry one.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "You need to sign in to access this page."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong on our end. Please try again."
	}
}

// isAPIRequest returns true if the request targets the JSON API.
func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting SmartText Connect server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
