package dashboard

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the dashboard routes under dashboardPath.
func RegisterRoutes(e *echo.Echo, h *Handler, dashboardPath string) {
	e.GET(dashboardPath, h.Show)
	e.GET(dashboardPath+"/*", h.Show)
}
