package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/routing"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/templates/pages"
)

// Handler handles HTTP requests for sign-in (magic links, callback, logout).
// Handlers are thin: they bind the request, call the service, and write
// cookies and redirects.
type Handler struct {
	service    AuthService
	flowTTL    time.Duration
	secure     bool
	loginPath  string
	signupPath string
}

// NewHandler creates a new auth handler. secure marks cookies Secure
// (production behind TLS). The form paths are the configured auth-only
// entry paths.
func NewHandler(service AuthService, flowTTL time.Duration, secure bool, loginPath, signupPath string) *Handler {
	return &Handler{
		service:    service,
		flowTTL:    flowTTL,
		secure:     secure,
		loginPath:  loginPath,
		signupPath: signupPath,
	}
}

// LoginForm renders the sign-in page (GET <login path>). Signed-in users never
// get here; the gate sends them on.
func (h *Handler) LoginForm(c echo.Context) error {
	return h.renderForm(c, http.StatusOK, pages.LoginData{
		Mode:     modeLogin,
		Redirect: c.QueryParam(routing.RedirectParam),
		Error:    c.QueryParam("error"),
	})
}

// SignupForm renders the sign-up page (GET <signup path>).
func (h *Handler) SignupForm(c echo.Context) error {
	return h.renderForm(c, http.StatusOK, pages.LoginData{Mode: modeSignup})
}

// Login requests a magic link for an existing account (POST /login).
func (h *Handler) Login(c echo.Context) error {
	return h.requestLink(c, modeLogin)
}

// Signup requests a magic link that also creates the account (POST /signup).
func (h *Handler) Signup(c echo.Context) error {
	return h.requestLink(c, modeSignup)
}

func (h *Handler) requestLink(c echo.Context, mode string) error {
	var req MagicLinkRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	data := pages.LoginData{Mode: mode, Email: req.Email, Redirect: req.Redirect}

	if err := c.Validate(&req); err != nil {
		data.Error = err.Error()
		return h.renderForm(c, http.StatusUnprocessableEntity, data)
	}

	flowID, err := h.service.StartMagicLink(c.Request().Context(), req.Email, req.Redirect, mode == modeSignup)
	if err != nil {
		if !errors.Is(err, ErrSendFailed) {
			return apperror.NewInternal(err)
		}
		data.Error = msgSendFailed
		return h.renderForm(c, http.StatusServiceUnavailable, data)
	}

	h.setFlowCookie(c, flowID)
	middleware.SetFlash(c, middleware.FlashSuccess, "We sent a sign-in link to "+req.Email+".")

	data.Sent = true
	return h.renderForm(c, http.StatusOK, data)
}

// Callback redeems the one-time code from a magic link
// (GET /auth/callback?code=...). The flow cookie is cleared on every
// branch; session cookies are written only on success.
func (h *Handler) Callback(c echo.Context) error {
	flowID := ""
	if cookie, err := c.Cookie(FlowCookieName); err == nil {
		flowID = cookie.Value
	}

	result := h.service.CompleteCallback(c.Request().Context(), c.QueryParam("code"), flowID)

	h.clearFlowCookie(c)
	if result.Session != nil {
		h.setSessionCookies(c, result.Session)
	}

	return c.Redirect(http.StatusSeeOther, result.Location)
}

// Logout ends the session and clears the cookies (POST /logout).
func (h *Handler) Logout(c echo.Context) error {
	creds := identity.CredentialsFromRequest(c.Request())
	if creds.AccessToken != "" {
		h.service.SignOut(c.Request().Context(), creds.AccessToken)
	}

	clearSessionCookies(c)
	middleware.SetFlash(c, middleware.FlashSuccess, "You've been signed out.")

	return middleware.Redirect(c, h.loginPath)
}

func (h *Handler) renderForm(c echo.Context, status int, data pages.LoginData) error {
	if data.Mode == modeSignup {
		data.Action = h.signupPath
	} else {
		data.Mode = modeLogin
		data.Action = h.loginPath
	}
	data.LoginPath = h.loginPath
	data.SignupPath = h.signupPath
	return middleware.Render(c, status, pages.Login(data))
}

// --- Cookie helpers ---

// setFlowCookie stores the pending flow id. SameSite=Lax keeps it on the
// top-level navigation that opens the emailed link.
func (h *Handler) setFlowCookie(c echo.Context, flowID string) {
	c.SetCookie(&http.Cookie{
		Name:     FlowCookieName,
		Value:    flowID,
		Path:     CallbackPath,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.flowTTL.Seconds()),
	})
}

func (h *Handler) clearFlowCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     FlowCookieName,
		Value:    "",
		Path:     CallbackPath,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// setSessionCookies writes the provider tokens. The access token cookie
// lives exactly as long as the token.
func (h *Handler) setSessionCookies(c echo.Context, session *identity.Session) {
	accessAge := int(time.Until(session.ExpiresAt).Seconds())
	if accessAge <= 0 {
		accessAge = int(time.Hour.Seconds())
	}

	c.SetCookie(&http.Cookie{
		Name:     identity.AccessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   accessAge,
	})
	if session.RefreshToken != "" {
		c.SetCookie(&http.Cookie{
			Name:     identity.RefreshTokenCookie,
			Value:    session.RefreshToken,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(refreshCookieAge.Seconds()),
		})
	}
}

// clearSessionCookies removes both token cookies.
func clearSessionCookies(c echo.Context) {
	for _, name := range []string{identity.AccessTokenCookie, identity.RefreshTokenCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}
