package pages

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/templates/layouts"
)

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestLogin_SignedOutNav(t *testing.T) {
	ctx := layouts.SetCSRFToken(context.Background(), "csrf-123")
	html := renderString(t, ctx, Login(LoginData{
		Action:     "/login",
		LoginPath:  "/login",
		SignupPath: "/join",
		Redirect:   "/dashboard/settings",
	}))

	assert.Contains(t, html, `action="/login"`)
	assert.Contains(t, html, `value="csrf-123"`)
	assert.Contains(t, html, `name="redirect" value="/dashboard/settings"`)
	assert.Contains(t, html, `href="/join"`)
	assert.Contains(t, html, "Create an account")
	assert.NotContains(t, html, "Sign out")
}

func TestLogin_SignupLinksBackToLogin(t *testing.T) {
	html := renderString(t, context.Background(), Login(LoginData{
		Mode:       "signup",
		Action:     "/join",
		LoginPath:  "/sign-in",
		SignupPath: "/join",
	}))

	assert.Contains(t, html, "<h1>Create your account</h1>")
	assert.Contains(t, html, `action="/join"`)
	assert.Contains(t, html, `href="/sign-in"`)
}

func TestLogin_SentConfirmation(t *testing.T) {
	ctx := layouts.SetFlashSuccess(context.Background(), "We sent a sign-in link to owner@example.com.")
	html := renderString(t, ctx, Login(LoginData{Mode: "signup", Action: "/signup", Email: "owner@example.com", Sent: true}))

	assert.Contains(t, html, "Check your inbox")
	assert.Contains(t, html, `<div class="flash flash-success" role="status">We sent a sign-in link to owner@example.com.</div>`)
	assert.NotContains(t, html, `action="/signup"`)
}

func TestLogin_EscapesInput(t *testing.T) {
	html := renderString(t, context.Background(), Login(LoginData{Action: "/login", Email: `"><script>alert(1)</script>`}))
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestDashboard_SignedInNav(t *testing.T) {
	ctx := layouts.SetIsAuthenticated(context.Background(), true)
	ctx = layouts.SetUserEmail(ctx, "owner@example.com")
	ctx = layouts.SetActivePath(ctx, "/dashboard")

	html := renderString(t, ctx, Dashboard(DashboardData{
		BusinessName: "Joe's Plumbing",
		Phone:        "+15551234567",
		Industry:     "home_services",
		CreatedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}))

	assert.Contains(t, html, "Joe&#39;s Plumbing")
	assert.Contains(t, html, "Mar 1, 2026")
	assert.Contains(t, html, "Sign out")
	assert.Contains(t, html, `<a href="/dashboard" class="active" aria-current="page">Dashboard</a>`)
	assert.NotContains(t, html, "Business report")
}

func TestBase_NavUsesConfiguredPaths(t *testing.T) {
	ctx := layouts.SetPaths(context.Background(), layouts.Paths{Login: "/sign-in", Signup: "/join", Dashboard: "/home"})
	html := renderString(t, ctx, Landing())

	assert.Contains(t, html, `href="/sign-in"`)
	assert.Contains(t, html, `href="/join"`)
	assert.NotContains(t, html, `href="/signup"`)
}

func TestBase_ShowsErrorFlash(t *testing.T) {
	ctx := layouts.SetFlashError(context.Background(), "We couldn't confirm your sign-in right now.")
	html := renderString(t, ctx, Landing())

	assert.Contains(t, html, `<div class="flash flash-error" role="alert">We couldn&#39;t confirm your sign-in right now.</div>`)
}

func TestBase_CSRFHeaderForHTMX(t *testing.T) {
	ctx := layouts.SetCSRFToken(context.Background(), "csrf-123")
	html := renderString(t, ctx, Landing())

	assert.Contains(t, html, `hx-headers="{&#34;X-CSRF-Token&#34;:&#34;csrf-123&#34;}"`)
}

func TestOnboarding_KeepsSelection(t *testing.T) {
	html := renderString(t, context.Background(), Onboarding(OnboardingData{
		Action:     "/onboarding",
		Industries: []string{"retail", "beauty"},
		Industry:   "beauty",
		Error:      "phone is invalid",
	}))

	assert.Contains(t, html, `<option value="beauty" selected>`)
	assert.Contains(t, html, `<option value="retail">`)
	assert.Contains(t, html, `hx-post="/onboarding"`)
	assert.Contains(t, html, "phone is invalid")
}

func TestErrorPage(t *testing.T) {
	html := renderString(t, context.Background(), ErrorPage(404, "page not found"))
	assert.Contains(t, html, "<h1>404</h1>")
	assert.Contains(t, html, "page not found")
}
