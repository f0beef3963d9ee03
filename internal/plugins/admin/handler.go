// Package admin serves the JSON reports available to the operators listed
// in ADMIN_EMAILS.
package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/businesses"
)

// BusinessLister is the slice of the business service the report needs.
type BusinessLister interface {
	List(ctx context.Context, page, perPage int) (*businesses.Page, error)
}

// Handler handles admin report requests. Depends on other plugins'
// services via interfaces -- no direct repo access.
type Handler struct {
	businesses BusinessLister
}

// NewHandler creates a new admin handler.
func NewHandler(businesses BusinessLister) *Handler {
	return &Handler{businesses: businesses}
}

// Businesses returns one page of onboarded businesses
// (GET /api/admin/businesses?page=1&per_page=25).
func (h *Handler) Businesses(c echo.Context) error {
	page, err := intParam(c, "page", 1)
	if err != nil {
		return err
	}
	perPage, err := intParam(c, "per_page", 25)
	if err != nil {
		return err
	}

	result, err := h.businesses.List(c.Request().Context(), page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// intParam parses an optional positive integer query parameter.
func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.NewBadRequest(name + " must be a positive integer")
	}
	return n, nil
}
