// data.go provides typed context helpers for passing layout data from
// handlers/middleware to Templ templates. Only simple types are stored so the
// layouts package never imports plugin types.
//
// Data flow: Middleware -> Echo Context -> LayoutInjector -> Go Context -> Templ
package layouts

import (
	"context"
	"encoding/json"
)

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUserEmail       ctxKey = "layout_user_email"
	keyIsAdmin         ctxKey = "layout_is_admin"
	keyCSRFToken       ctxKey = "layout_csrf_token"
	keyFlashSuccess    ctxKey = "layout_flash_success"
	keyFlashError      ctxKey = "layout_flash_error"
	keyActivePath      ctxKey = "layout_active_path"
	keyPaths           ctxKey = "layout_paths"
)

// Paths are the configured entry paths the navigation links to.
type Paths struct {
	Login     string
	Signup    string
	Dashboard string
}

// DefaultPaths are used when no paths were injected.
var DefaultPaths = Paths{Login: "/login", Signup: "/signup", Dashboard: "/dashboard"}

// --- Setters (called by the LayoutInjector) ---

// SetIsAuthenticated marks the request as carrying a valid session.
func SetIsAuthenticated(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, authed)
}

// SetUserEmail stores the signed-in user's email.
func SetUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, keyUserEmail, email)
}

// SetIsAdmin stores whether the user may read admin reports.
func SetIsAdmin(ctx context.Context, isAdmin bool) context.Context {
	return context.WithValue(ctx, keyIsAdmin, isAdmin)
}

// SetCSRFToken stores the CSRF token for forms.
func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// SetFlashSuccess stores a success flash message for the current render.
func SetFlashSuccess(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, keyFlashSuccess, msg)
}

// SetFlashError stores an error flash message for the current render.
func SetFlashError(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, keyFlashError, msg)
}

// SetActivePath stores the current request path for nav highlighting.
func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

// SetPaths stores the configured entry paths.
func SetPaths(ctx context.Context, p Paths) context.Context {
	return context.WithValue(ctx, keyPaths, p)
}

// --- Getters (called by Templ templates) ---

// IsAuthenticated returns true if the current request has a valid session.
func IsAuthenticated(ctx context.Context) bool {
	authed, _ := ctx.Value(keyIsAuthenticated).(bool)
	return authed
}

// GetUserEmail returns the signed-in user's email, or "".
func GetUserEmail(ctx context.Context) string {
	email, _ := ctx.Value(keyUserEmail).(string)
	return email
}

// GetIsAdmin returns true if the user may read admin reports.
func GetIsAdmin(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(keyIsAdmin).(bool)
	return isAdmin
}

// GetCSRFToken returns the CSRF token, or "".
func GetCSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(keyCSRFToken).(string)
	return token
}

// GetFlashSuccess returns the success flash message, or "".
func GetFlashSuccess(ctx context.Context) string {
	msg, _ := ctx.Value(keyFlashSuccess).(string)
	return msg
}

// GetFlashError returns the error flash message, or "".
func GetFlashError(ctx context.Context) string {
	msg, _ := ctx.Value(keyFlashError).(string)
	return msg
}

// GetActivePath returns the current request path, or "".
func GetActivePath(ctx context.Context) string {
	path, _ := ctx.Value(keyActivePath).(string)
	return path
}

// GetPaths returns the configured entry paths, or DefaultPaths.
func GetPaths(ctx context.Context) Paths {
	if p, ok := ctx.Value(keyPaths).(Paths); ok {
		return p
	}
	return DefaultPaths
}

// csrfHeaders is the hx-headers value that makes htmx send the CSRF token.
func csrfHeaders(token string) string {
	b, _ := json.Marshal(map[string]string{"X-CSRF-Token": token})
	return string(b)
}
