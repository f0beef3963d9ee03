// Package dashboard serves the signed-in home page. The gate already
// guarantees a session here; this package adds the one check the gate
// leaves to the page: a user without a business is sent to onboarding.
package dashboard

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/auth"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/businesses"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/templates/pages"
)

// BusinessFinder is the slice of the business service the dashboard needs.
type BusinessFinder interface {
	GetByOwner(ctx context.Context, userID string) (*businesses.Business, error)
}

// Handler renders the dashboard.
type Handler struct {
	businesses     BusinessFinder
	onboardingPath string
}

// NewHandler creates a new dashboard handler.
func NewHandler(businesses BusinessFinder, onboardingPath string) *Handler {
	return &Handler{businesses: businesses, onboardingPath: onboardingPath}
}

// Show renders the dashboard (GET /dashboard and everything below it).
func (h *Handler) Show(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("sign in to view your dashboard")
	}

	b, err := h.businesses.GetByOwner(c.Request().Context(), userID)
	if apperror.IsNotFound(err) {
		return middleware.Redirect(c, h.onboardingPath)
	}
	if err != nil {
		return err
	}

	return middleware.Render(c, http.StatusOK, pages.Dashboard(pages.DashboardData{
		BusinessName: b.Name,
		Phone:        b.Phone,
		Website:      b.Website,
		Industry:     b.Industry,
		Description:  b.Description,
		CreatedAt:    b.CreatedAt,
	}))
}
