package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/auth"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/routing"
)

// RegisterRoutes sets up the admin API under /api/admin. Every route
// requires a session whose email is in the admin list.
func RegisterRoutes(e *echo.Echo, h *Handler, sessions routing.SessionSource, isAdmin func(email string) bool) *echo.Group {
	admin := e.Group("/api/admin", auth.RequireAdmin(sessions, isAdmin))

	admin.GET("/businesses", h.Businesses)

	return admin
}
