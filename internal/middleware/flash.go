package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

const (
	// FlashCookieName carries one message across a redirect.
	FlashCookieName = "stc_flash"

	flashContextKey = "flash"
	flashMaxAge     = 60
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// SetFlash queues a message for the next page the browser renders. It is
// kept on the context too, so a page rendered by this same request shows it.
func SetFlash(c echo.Context, kind, message string) {
	f := Flash{Kind: kind, Message: message}
	c.Set(flashContextKey, f)
	c.SetCookie(&http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(kind + ":" + message),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// TakeFlash returns the pending message, if any, and removes it so it is
// shown once. Unknown kinds are dropped.
func TakeFlash(c echo.Context) (Flash, bool) {
	if f, ok := c.Get(flashContextKey).(Flash); ok {
		c.Set(flashContextKey, nil)
		clearFlashCookie(c)
		return f, true
	}

	cookie, err := c.Request().Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return Flash{}, false
	}
	clearFlashCookie(c)

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return Flash{}, false
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok || message == "" || (kind != FlashSuccess && kind != FlashError) {
		return Flash{}, false
	}
	return Flash{Kind: kind, Message: message}, true
}

func clearFlashCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
