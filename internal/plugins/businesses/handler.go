package businesses

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/auth"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/templates/pages"
)

// Handler handles the onboarding wizard. Handlers are thin: they bind the
// request, call the service, and render the response.
type Handler struct {
	service       BusinessService
	dashboardPath string
}

// NewHandler creates a new onboarding handler. dashboardPath is where a
// finished onboarding lands.
func NewHandler(service BusinessService, dashboardPath string) *Handler {
	return &Handler{service: service, dashboardPath: dashboardPath}
}

// OnboardingForm renders the business setup form (GET /onboarding).
// Users who already finished onboarding go straight to the dashboard.
func (h *Handler) OnboardingForm(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("sign in to finish onboarding")
	}

	has, err := h.service.HasBusiness(c.Request().Context(), userID)
	if err == nil && has {
		return c.Redirect(http.StatusSeeOther, h.dashboardPath)
	}

	return middleware.Render(c, http.StatusOK, pages.Onboarding(pages.OnboardingData{
		Action:     c.Request().URL.Path,
		Industries: Industries,
	}))
}

// Onboard processes the onboarding form submission (POST /onboarding).
func (h *Handler) Onboard(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewUnauthorized("sign in to finish onboarding")
	}

	var req OnboardingRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := c.Validate(&req); err != nil {
		return h.renderForm(c, req, err.Error())
	}

	_, err := h.service.Onboard(c.Request().Context(), userID, OnboardInput{
		Name:        req.Name,
		Phone:       req.Phone,
		Website:     req.Website,
		Industry:    req.Industry,
		Description: req.Description,
	})
	if err != nil {
		if apperror.SafeCode(err) >= http.StatusInternalServerError {
			return err
		}
		return h.renderForm(c, req, apperror.SafeMessage(err))
	}

	middleware.SetFlash(c, middleware.FlashSuccess, msgOnboarded)
	return middleware.Redirect(c, h.dashboardPath)
}

// renderForm re-renders the form with the submitted values and an error.
func (h *Handler) renderForm(c echo.Context, req OnboardingRequest, errMsg string) error {
	return middleware.Render(c, http.StatusUnprocessableEntity, pages.Onboarding(pages.OnboardingData{
		Action:      c.Request().URL.Path,
		Industries:  Industries,
		Name:        req.Name,
		Phone:       req.Phone,
		Website:     req.Website,
		Industry:    req.Industry,
		Description: req.Description,
		Error:       errMsg,
	}))
}
