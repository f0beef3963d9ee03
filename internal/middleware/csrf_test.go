package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCSRFEcho() *echo.Echo {
	e := echo.New()
	e.Use(CSRF(false))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, GetCSRFToken(c)) }
	e.GET("/login", ok)
	e.POST("/login", ok)
	e.POST("/api/admin/businesses", ok)
	return e
}

func TestCSRF_IssuesCookieOnGet(t *testing.T) {
	e := newCSRFEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CSRFCookieName, cookies[0].Name)
	assert.Len(t, cookies[0].Value, 64)
	assert.Equal(t, cookies[0].Value, rec.Body.String())
}

func TestCSRF_RejectsMissingToken(t *testing.T) {
	e := newCSRFEcho()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRF_AcceptsFormField(t *testing.T) {
	e := newCSRFEcho()
	form := url.Values{"csrf_token": {"abc"}, "email": {"owner@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_AcceptsHeader(t *testing.T) {
	e := newCSRFEcho()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-CSRF-Token", "abc")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_SkipsAPI(t *testing.T) {
	e := newCSRFEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/businesses", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
