package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// authenticatedRole is the role claim Supabase puts on user access tokens.
// The anon key is also a valid JWT, so the role must be checked.
const authenticatedRole = "authenticated"

// SupabaseConfig configures the GoTrue client.
type SupabaseConfig struct {
	URL          string
	AnonKey      string
	JWTSecret    string
	VerifyRemote bool
	Timeout      time.Duration
}

// Supabase implements Provider against the Supabase Auth (GoTrue) HTTP API.
type Supabase struct {
	baseURL      string
	anonKey      string
	jwtSecret    []byte
	verifyRemote bool
	http         *http.Client
	now          func() time.Time
}

// NewSupabase creates a provider client. A zero timeout keeps the
// http.Client default (no timeout).
func NewSupabase(cfg SupabaseConfig) *Supabase {
	return &Supabase{
		baseURL:      cfg.URL,
		anonKey:      cfg.AnonKey,
		jwtSecret:    []byte(cfg.JWTSecret),
		verifyRemote: cfg.VerifyRemote,
		http:         &http.Client{Timeout: cfg.Timeout},
		now:          time.Now,
	}
}

// accessClaims are the claims Supabase puts in access tokens.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// tokenResponse is the body of a successful /token call.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         user   `json:"user"`
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// errorResponse covers both GoTrue error shapes (old OAuth style and the
// newer code/msg style).
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// GetSession verifies the access token locally and, when configured,
// confirms it with the provider.
func (s *Supabase) GetSession(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Empty() {
		return nil, nil
	}

	claims, err := s.verifyToken(creds.AccessToken)
	if err != nil {
		// Expired and tampered tokens are ordinary absence.
		slog.Debug("access token rejected", slog.Any("error", err))
		return nil, nil
	}

	session := &Session{
		UserID:       claims.Subject,
		Email:        claims.Email,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}

	if !s.verifyRemote {
		return session, nil
	}

	u, err := s.fetchUser(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID != session.UserID {
		return nil, nil
	}
	if u.Email != "" {
		session.Email = u.Email
	}
	return session, nil
}

// verifyToken parses an HS256 access token and checks the claims the web
// tier relies on.
func (s *Supabase) verifyToken(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if claims.Role != authenticatedRole {
		return nil, fmt.Errorf("token role %q is not %q", claims.Role, authenticatedRole)
	}
	return claims, nil
}

// fetchUser calls GET /auth/v1/user. Returns nil, nil when the provider
// says the token is no longer valid.
func (s *Supabase) fetchUser(ctx context.Context, accessToken string) (*user, error) {
	var u user
	err := s.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, accessToken, &u)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ExchangeCode redeems a PKCE auth code.
func (s *Supabase) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error) {
	body := map[string]string{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	}
	query := url.Values{"grant_type": {"pkce"}}

	var resp tokenResponse
	if err := s.do(ctx, http.MethodPost, "/auth/v1/token", query, body, "", &resp); err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		return nil, fmt.Errorf("exchanging code: %w", &APIError{
			Status:  http.StatusBadGateway,
			Message: "token response without session",
		})
	}

	now := s.now()
	expiresAt := time.Unix(resp.ExpiresAt, 0)
	if resp.ExpiresAt == 0 {
		expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	return &Session{
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
	}, nil
}

// SendMagicLink calls POST /auth/v1/otp.
func (s *Supabase) SendMagicLink(ctx context.Context, req MagicLinkRequest) error {
	body := map[string]any{
		"email":       req.Email,
		"create_user": req.CreateUser,
	}
	if req.CodeChallenge != "" {
		body["code_challenge"] = req.CodeChallenge
		body["code_challenge_method"] = "s256"
	}

	var query url.Values
	if req.RedirectTo != "" {
		query = url.Values{"redirect_to": {req.RedirectTo}}
	}

	if err := s.do(ctx, http.MethodPost, "/auth/v1/otp", query, body, "", nil); err != nil {
		return fmt.Errorf("sending magic link: %w", err)
	}
	return nil
}

// SignOut calls POST /auth/v1/logout for the current session only.
func (s *Supabase) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	query := url.Values{"scope": {"local"}}
	if err := s.do(ctx, http.MethodPost, "/auth/v1/logout", query, nil, accessToken, nil); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// do sends one request to GoTrue. Non-2xx answers become *APIError; 5xx
// answers and transport failures are also ErrProviderUnavailable.
func (s *Supabase) do(ctx context.Context, method, path string, query url.Values, body any, bearer string, out any) error {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %w", ErrProviderUnavailable, apiErr)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// decodeError turns an error response into an *APIError.
func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	var body errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	apiErr.Code = body.ErrorCode
	if apiErr.Code == "" {
		apiErr.Code = body.Error
	}
	for _, m := range []string{body.Msg, body.ErrorDescription, body.Message, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
