package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters-long"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// signToken builds a Supabase-style access token.
func signToken(t *testing.T, secret, subject, role string, exp time.Time) string {
	t.Helper()
	claims := accessClaims{
		Email: "owner@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestSupabase(t *testing.T, handler http.HandlerFunc, verifyRemote bool) *Supabase {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewSupabase(SupabaseConfig{
		URL:          srv.URL,
		AnonKey:      "anon-key",
		JWTSecret:    testSecret,
		VerifyRemote: verifyRemote,
		Timeout:      5 * time.Second,
	})
	s.now = func() time.Time { return testNow }
	return s
}

func failHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func TestGetSession_NoCredentials(t *testing.T) {
	s := newTestSupabase(t, failHandler(t), true)

	session, err := s.GetSession(context.Background(), Credentials{})
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestGetSession_LocalVerification(t *testing.T) {
	s := newTestSupabase(t, failHandler(t), false)
	token := signToken(t, testSecret, "user-1", "authenticated", testNow.Add(time.Hour))

	session, err := s.GetSession(context.Background(), Credentials{AccessToken: token, RefreshToken: "r1"})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "owner@example.com", session.Email)
	assert.Equal(t, "r1", session.RefreshToken)
	assert.Equal(t, testNow.Add(time.Hour).Unix(), session.ExpiresAt.Unix())
	assert.Equal(t, testNow.Unix(), session.IssuedAt.Unix())
}

func TestGetSession_RejectedTokensAreAbsence(t *testing.T) {
	s := newTestSupabase(t, failHandler(t), true)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", signToken(t, testSecret, "user-1", "authenticated", testNow.Add(-time.Minute))},
		{"wrong secret", signToken(t, "another-secret-another-secret-another", "user-1", "authenticated", testNow.Add(time.Hour))},
		{"anon role", signToken(t, testSecret, "user-1", "anon", testNow.Add(time.Hour))},
		{"no subject", signToken(t, testSecret, "", "authenticated", testNow.Add(time.Hour))},
		{"garbage", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := s.GetSession(context.Background(), Credentials{AccessToken: tt.token})
			require.NoError(t, err)
			assert.Nil(t, session)
		})
	}
}

func TestGetSession_RemoteConfirmation(t *testing.T) {
	token := signToken(t, testSecret, "user-1", "authenticated", testNow.Add(time.Hour))

	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "fresh@example.com"})
	}, true)

	session, err := s.GetSession(context.Background(), Credentials{AccessToken: token})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "fresh@example.com", session.Email)
}

func TestGetSession_RemoteRevoked(t *testing.T) {
	token := signToken(t, testSecret, "user-1", "authenticated", testNow.Add(time.Hour))

	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":401,"error_code":"session_not_found","msg":"Session not found"}`))
	}, true)

	session, err := s.GetSession(context.Background(), Credentials{AccessToken: token})
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestGetSession_ProviderDown(t *testing.T) {
	token := signToken(t, testSecret, "user-1", "authenticated", testNow.Add(time.Hour))

	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, true)

	session, err := s.GetSession(context.Background(), Credentials{AccessToken: token})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	assert.Nil(t, session)
}

func TestExchangeCode_Success(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "code-123", body["auth_code"])
		assert.Equal(t, "verifier-abc", body["code_verifier"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-9", "email": "new@example.com"},
		})
	}, true)

	session, err := s.ExchangeCode(context.Background(), "code-123", "verifier-abc")
	require.NoError(t, err)
	assert.Equal(t, "user-9", session.UserID)
	assert.Equal(t, "access", session.AccessToken)
	assert.Equal(t, "refresh", session.RefreshToken)
	assert.Equal(t, testNow.Add(time.Hour), session.ExpiresAt)
}

func TestExchangeCode_Rejected(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Email link is invalid or has expired"}`))
	}, true)

	_, err := s.ExchangeCode(context.Background(), "used-code", "verifier")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrProviderUnavailable))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.Equal(t, "Email link is invalid or has expired", UserMessage(err))
}

func TestSendMagicLink(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/otp", r.URL.Path)
		assert.Equal(t, "https://app.example.com/auth/callback", r.URL.Query().Get("redirect_to"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "owner@example.com", body["email"])
		assert.Equal(t, true, body["create_user"])
		assert.Equal(t, "challenge", body["code_challenge"])
		assert.Equal(t, "s256", body["code_challenge_method"])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}, true)

	err := s.SendMagicLink(context.Background(), MagicLinkRequest{
		Email:         "owner@example.com",
		RedirectTo:    "https://app.example.com/auth/callback",
		CodeChallenge: "challenge",
		CreateUser:    true,
	})
	require.NoError(t, err)
}

func TestSignOut_SkipsEmptyToken(t *testing.T) {
	s := newTestSupabase(t, failHandler(t), true)
	require.NoError(t, s.SignOut(context.Background(), ""))
}

func TestUserMessage_HidesServerErrors(t *testing.T) {
	assert.Equal(t, "We couldn't sign you in. Please request a new link.", UserMessage(errors.New("dial tcp")))
	assert.Equal(t, "We couldn't sign you in. Please request a new link.",
		UserMessage(&APIError{Status: 500, Message: "database exploded"}))
}

func TestCodeChallenge_RFC7636Vector(t *testing.T) {
	// Appendix B of RFC 7636.
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))

	v, err := NewCodeVerifier()
	require.NoError(t, err)
	assert.Len(t, v, 43)
}

func TestCredentialsFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, CredentialsFromRequest(req).Empty())

	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "a"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "r"})
	creds := CredentialsFromRequest(req)
	assert.Equal(t, Credentials{AccessToken: "a", RefreshToken: "r"}, creds)
}
