package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/admin"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/auth"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/businesses"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/dashboard"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/routing"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/templates/layouts"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/templates/pages"
)

// readinessTimeout bounds the dependency pings behind /readyz.
const readinessTimeout = 2 * time.Second

// RegisterRoutes builds the plugins and registers every route. This is the
// single place where plugins are wired to each other.
func (a *App) RegisterRoutes() error {
	e := a.Echo
	cfg := a.Config

	// --- Plugins ---

	bizRepo := businesses.NewRepository(a.DB, cfg.Database.Driver)
	bizService := businesses.NewBusinessService(bizRepo)

	mode, err := routing.ParseLookupFailureMode(cfg.Auth.LookupFailure)
	if err != nil {
		return err
	}
	rules := routing.Rules{
		ProtectedPrefixes: cfg.Routes.ProtectedPrefixes,
		AuthOnlyPaths:     cfg.Routes.AuthOnlyPaths,
		LoginPath:         cfg.Routes.LoginPath,
		DashboardPath:     cfg.Routes.DashboardPath,
		OnboardingPath:    cfg.Routes.OnboardingPath,
	}
	engine, err := routing.NewEngine(rules, a.Provider, bizService, mode)
	if err != nil {
		return fmt.Errorf("building route policy: %w", err)
	}

	flows := auth.NewFlowStore(a.Redis, cfg.Auth.FlowTTL)
	authService := auth.NewAuthService(a.Provider, flows, engine, cfg.BaseURL+auth.CallbackPath)

	// Every request passes the redirect policy before reaching a handler.
	e.Use(auth.Gate(engine))

	paths := layouts.Paths{
		Login:     cfg.Routes.LoginPath,
		Signup:    cfg.Routes.SignupPath,
		Dashboard: cfg.Routes.DashboardPath,
	}

	// Session, CSRF and flash data reach the templates through the Go context.
	middleware.LayoutInjector = func(c echo.Context, ctx context.Context) context.Context {
		ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
		ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)
		ctx = layouts.SetPaths(ctx, paths)
		if f, ok := middleware.TakeFlash(c); ok {
			switch f.Kind {
			case middleware.FlashSuccess:
				ctx = layouts.SetFlashSuccess(ctx, f.Message)
			case middleware.FlashError:
				ctx = layouts.SetFlashError(ctx, f.Message)
			}
		}
		if session := auth.GetSession(c); session != nil {
			ctx = layouts.SetIsAuthenticated(ctx, true)
			ctx = layouts.SetUserEmail(ctx, session.Email)
			ctx = layouts.SetIsAdmin(ctx, cfg.Admin.IsAdmin(session.Email))
		}
		return ctx
	}

	// --- Public Routes ---

	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Landing())
	})

	// Liveness: the process is up.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Readiness: the business store and the flow store both answer.
	e.GET("/readyz", a.readiness)

	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Plugin Routes ---

	auth.RegisterRoutes(e, auth.NewHandler(authService, cfg.Auth.FlowTTL, cfg.IsProduction(), cfg.Routes.LoginPath, cfg.Routes.SignupPath), auth.RateLimit{
		Redis:  a.Redis,
		Limit:  cfg.Auth.MagicLinkLimit,
		Window: cfg.Auth.MagicLinkWindow,
	})

	businesses.RegisterRoutes(e, businesses.NewHandler(bizService, cfg.Routes.DashboardPath), cfg.Routes.OnboardingPath)

	dashboard.RegisterRoutes(e, dashboard.NewHandler(bizService, cfg.Routes.OnboardingPath), cfg.Routes.DashboardPath)

	admin.RegisterRoutes(e, admin.NewHandler(bizService), a.Provider, cfg.Admin.IsAdmin)

	return nil
}

func (a *App) readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	status := http.StatusOK

	if err := a.DB.PingContext(ctx); err != nil {
		slog.Warn("readiness: database ping failed", slog.Any("error", err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		slog.Warn("readiness: redis ping failed", slog.Any("error", err))
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, checks)
}
