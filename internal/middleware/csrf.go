package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// csrfTokenLength is the number of random bytes in a token (64 hex chars).
	csrfTokenLength = 32

	// CSRFCookieName is the cookie holding the double-submit token.
	CSRFCookieName = "stc_csrf"

	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
	csrfContextKey = "csrf_token"
)

// CSRF returns middleware implementing the double-submit cookie pattern on
// every state-changing request (POST, PUT, PATCH, DELETE).
//
//  1. If no CSRF cookie exists, generate one and set it.
//  2. On mutating requests, compare the cookie with the X-CSRF-Token header
//     (HTMX) or the csrf_token form field (plain forms).
//  3. Reject mismatches with 403.
//
// JSON routes under /api/ are read-only and skipped.
func CSRF(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			cookieToken := ""
			if cookie, err := req.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
				cookieToken = cookie.Value
			} else {
				token, genErr := generateCSRFToken()
				if genErr != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}
				c.SetCookie(&http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // read by htmx
					Secure:   secure || req.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
				cookieToken = token
			}
			c.Set(csrfContextKey, cookieToken)

			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = req.FormValue(csrfFormField)
			}

			// A freshly minted cookie can never match a submission.
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}

			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// generateCSRFToken generates a cryptographically random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken retrieves the CSRF token from the Echo context.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(csrfContextKey).(string); ok {
		return token
	}
	return ""
}
