package businesses

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/middleware"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/plugins/auth"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/routing"
)

// tokenSessions resolves any access token to user-1.
type tokenSessions struct{}

func (tokenSessions) GetSession(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	if creds.AccessToken == "" {
		return nil, nil
	}
	return &identity.Session{UserID: "user-1"}, nil
}

func newOnboardingEcho(t *testing.T, svc BusinessService) *echo.Echo {
	t.Helper()
	engine, err := routing.NewEngine(routing.DefaultRules(), tokenSessions{}, svc, routing.FailToOnboarding)
	require.NoError(t, err)

	e := echo.New()
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.NoContent(apperror.SafeCode(err))
	}
	e.Use(auth.Gate(engine))
	RegisterRoutes(e, NewHandler(svc, "/dashboard"), "/onboarding")
	return e
}

func signedInRequest(method, target string, form url.Values) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: identity.AccessTokenCookie, Value: "token"})
	return req
}

func validForm() url.Values {
	return url.Values{
		"name":     {"Joe's Plumbing"},
		"phone":    {"+15551234567"},
		"industry": {"home_services"},
	}
}

func TestOnboardingForm_Renders(t *testing.T) {
	e := newOnboardingEcho(t, newTestService(&mockRepo{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, signedInRequest(http.MethodGet, "/onboarding", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tell us about your business")
	assert.Contains(t, rec.Body.String(), `action="/onboarding"`)
}

func TestOnboardingForm_ExistingBusinessGoesToDashboard(t *testing.T) {
	e := newOnboardingEcho(t, newTestService(&mockRepo{findByOwnerFn: func(ctx context.Context, ownerID string) (*Business, error) {
		return &Business{ID: "b-1"}, nil
	}}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, signedInRequest(http.MethodGet, "/onboarding", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestOnboard_CreatesAndRedirects(t *testing.T) {
	var created *Business
	e := newOnboardingEcho(t, newTestService(&mockRepo{createFn: func(ctx context.Context, b *Business) error {
		created = b
		return nil
	}}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, signedInRequest(http.MethodPost, "/onboarding", validForm()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
	require.NotNil(t, created)
	assert.Equal(t, "user-1", created.OwnerID)
	assert.Equal(t, "Joe's Plumbing", created.Name)

	var flash *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.FlashCookieName {
			flash = c
		}
	}
	require.NotNil(t, flash, "the dashboard should greet the new business")
	assert.Equal(t, url.QueryEscape(middleware.FlashSuccess+":"+msgOnboarded), flash.Value)
}

func TestOnboard_HTMXRedirect(t *testing.T) {
	e := newOnboardingEcho(t, newTestService(&mockRepo{}))

	req := signedInRequest(http.MethodPost, "/onboarding", validForm())
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("HX-Redirect"))
}

func TestOnboard_ValidationErrorRerenders(t *testing.T) {
	e := newOnboardingEcho(t, newTestService(&mockRepo{createFn: func(ctx context.Context, b *Business) error {
		t.Fatal("invalid form must not be stored")
		return nil
	}}))

	form := validForm()
	form.Set("phone", "555-1234")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, signedInRequest(http.MethodPost, "/onboarding", form))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "phone must be in international format")
	assert.Contains(t, body, `value="Joe&#39;s Plumbing"`)
}

func TestOnboard_SignedOutGoesToLogin(t *testing.T) {
	e := newOnboardingEcho(t, newTestService(&mockRepo{}))

	req := httptest.NewRequest(http.MethodPost, "/onboarding", strings.NewReader(validForm().Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fonboarding", rec.Header().Get(echo.HeaderLocation))
}
