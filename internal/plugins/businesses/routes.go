package businesses

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the onboarding routes. The gate middleware already
// guarantees a session on the onboarding prefix, so no extra middleware is
// attached here.
func RegisterRoutes(e *echo.Echo, h *Handler, onboardingPath string) {
	e.GET(onboardingPath, h.OnboardingForm)
	e.POST(onboardingPath, h.Onboard)
}
