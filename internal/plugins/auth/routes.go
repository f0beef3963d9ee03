package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
)

// CallbackPath is where magic links land.
const CallbackPath = "/auth/callback"

// RateLimit bounds magic-link requests per client IP.
type RateLimit struct {
	Redis  *redis.Client
	Limit  int
	Window time.Duration
}

// RegisterRoutes sets up the sign-in routes. The gate middleware has already
// redirected signed-in users away from the forms. Magic-link POSTs share one
// per-IP budget because every one of them sends an email.
func RegisterRoutes(e *echo.Echo, h *Handler, rl RateLimit) {
	limit := middleware.RateLimit(rl.Redis, "magic_link", rl.Limit, rl.Window)

	e.GET(h.loginPath, h.LoginForm)
	e.POST(h.loginPath, h.Login, limit)
	e.GET(h.signupPath, h.SignupForm)
	e.POST(h.signupPath, h.Signup, limit)

	e.GET(CallbackPath, h.Callback)
	e.POST("/logout", h.Logout)
}
