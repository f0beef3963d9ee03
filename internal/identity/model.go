// Package identity talks to the hosted identity provider (Supabase Auth).
// It resolves sessions from request cookies, exchanges one-time magic-link
// codes for sessions, and asks the provider to send magic links. The web
// tier never mints sessions itself; it only carries the provider's tokens.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Cookie names carrying the provider's tokens between requests.
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

// ErrProviderUnavailable marks failures to reach the provider (transport
// errors, 5xx answers). Callers fail closed on it.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// Session is the web tier's view of a provider session. Only presence and
// the subject are used for routing; the tokens are written back as cookies.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Credentials is the credential material a request carries.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether the request carried no access token at all.
func (c Credentials) Empty() bool {
	return c.AccessToken == ""
}

// CredentialsFromRequest reads the token cookies from an HTTP request.
// Missing cookies yield empty fields.
func CredentialsFromRequest(r *http.Request) Credentials {
	var creds Credentials
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		creds.AccessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		creds.RefreshToken = c.Value
	}
	return creds
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider returned %d: %s", e.Status, e.Message)
}

// UserMessage returns the provider's message when it is suitable to show to
// the user, or a generic one.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Message != "" {
		return apiErr.Message
	}
	return "We couldn't sign you in. Please request a new link."
}
