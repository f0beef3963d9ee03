package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/routing"
)

// Context keys for storing session data in Echo context. Other plugins
// read them through the exported getters below.
const (
	contextKeySession = "auth_session"
	contextKeyUserID  = "auth_user_id"
)

// Gate returns middleware that runs the redirect policy on every request.
// Redirect decisions short-circuit (303, or 204 + HX-Redirect for HTMX);
// Continue decisions pass through with the resolved session, if any, stored
// in the context.
func Gate(engine *routing.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			creds := identity.CredentialsFromRequest(req)

			target := req.URL.Path
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}

			decision, session, err := engine.Decide(req.Context(), target, creds)
			if err != nil {
				return apperror.NewServiceUnavailable("We couldn't check your account right now. Please try again.", err)
			}

			if session != nil {
				c.Set(contextKeySession, session)
				c.Set(contextKeyUserID, session.UserID)
			}

			if !decision.IsRedirect() {
				return next(c)
			}

			// Rejected tokens are dropped. Tokens are kept when the provider
			// could not answer.
			switch decision.Reason() {
			case routing.ReasonNoSession:
				if !creds.Empty() {
					clearSessionCookies(c)
				}
			case routing.ReasonSessionUnavailable:
				middleware.SetFlash(c, middleware.FlashError, msgSessionUnavailable)
			}
			return middleware.Redirect(c, decision.Location())
		}
	}
}

// RequireAdmin returns middleware for the JSON admin API. It resolves the
// session itself because /api routes are not gated pages: no session is a
// 401, a non-admin is a 403, and a provider outage is a 503.
func RequireAdmin(sessions routing.SessionSource, isAdmin func(email string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			creds := identity.CredentialsFromRequest(c.Request())
			if creds.Empty() {
				creds = bearerCredentials(c.Request())
			}

			session, err := sessions.GetSession(c.Request().Context(), creds)
			if err != nil {
				if errors.Is(err, identity.ErrProviderUnavailable) {
					return apperror.NewServiceUnavailable("identity provider unavailable", err)
				}
				return apperror.NewInternal(err)
			}
			if session == nil {
				return apperror.NewUnauthorized("authentication required")
			}
			if !isAdmin(session.Email) {
				return apperror.NewForbidden("admin access required")
			}

			c.Set(contextKeySession, session)
			c.Set(contextKeyUserID, session.UserID)
			return next(c)
		}
	}
}

// bearerCredentials reads an access token from the Authorization header.
func bearerCredentials(req *http.Request) identity.Credentials {
	token, ok := strings.CutPrefix(req.Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return identity.Credentials{}
	}
	return identity.Credentials{AccessToken: strings.TrimSpace(token)}
}

// --- Exported getters for other plugins ---

// GetSession retrieves the session the gate resolved for this request.
// Returns nil on routes where no session was resolved.
func GetSession(c echo.Context) *identity.Session {
	session, ok := c.Get(contextKeySession).(*identity.Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserID retrieves the signed-in user's ID from the Echo context.
// Returns empty string if the request carries no resolved session.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
