package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/routing"
)

// --- Mocks ---

// mockProvider implements identity.Provider for testing.
type mockProvider struct {
	getSessionFn    func(ctx context.Context, creds identity.Credentials) (*identity.Session, error)
	exchangeCodeFn  func(ctx context.Context, code, verifier string) (*identity.Session, error)
	sendMagicLinkFn func(ctx context.Context, req identity.MagicLinkRequest) error
	signOutFn       func(ctx context.Context, accessToken string) error
	exchangeCalls   int
}

func (m *mockProvider) GetSession(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, creds)
	}
	return nil, nil
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code, verifier string) (*identity.Session, error) {
	m.exchangeCalls++
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code, verifier)
	}
	return nil, &identity.APIError{Status: 400, Code: "invalid_grant", Message: "invalid code"}
}

func (m *mockProvider) SendMagicLink(ctx context.Context, req identity.MagicLinkRequest) error {
	if m.sendMagicLinkFn != nil {
		return m.sendMagicLinkFn(ctx, req)
	}
	return nil
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

// mockFlowStore implements FlowStore in memory.
type mockFlowStore struct {
	flows   map[string]*Flow
	saveErr error
	takeErr error
}

func newMockFlowStore() *mockFlowStore {
	return &mockFlowStore{flows: map[string]*Flow{}}
}

func (m *mockFlowStore) Save(ctx context.Context, flow *Flow) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	id := "flow-" + flow.Email
	m.flows[id] = flow
	return id, nil
}

func (m *mockFlowStore) Take(ctx context.Context, id string) (*Flow, error) {
	if m.takeErr != nil {
		return nil, m.takeErr
	}
	flow := m.flows[id]
	delete(m.flows, id)
	return flow, nil
}

// mockBusinesses implements routing.BusinessLookup.
type mockBusinesses struct {
	hasBusinessFn func(ctx context.Context, userID string) (bool, error)
}

func (m *mockBusinesses) HasBusiness(ctx context.Context, userID string) (bool, error) {
	if m.hasBusinessFn != nil {
		return m.hasBusinessFn(ctx, userID)
	}
	return false, nil
}

func owns(has bool, err error) *mockBusinesses {
	return &mockBusinesses{hasBusinessFn: func(ctx context.Context, userID string) (bool, error) {
		return has, err
	}}
}

// signedInProvider exchanges any code for user-1 and recognizes its token.
func signedInProvider() *mockProvider {
	return &mockProvider{
		exchangeCodeFn: func(ctx context.Context, code, verifier string) (*identity.Session, error) {
			return &identity.Session{
				UserID:       "user-1",
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
				ExpiresAt:    time.Now().Add(time.Hour),
			}, nil
		},
		getSessionFn: func(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
			if creds.AccessToken != "access-1" {
				return nil, nil
			}
			return &identity.Session{
				UserID:       "user-1",
				Email:        "owner@example.com",
				AccessToken:  creds.AccessToken,
				RefreshToken: creds.RefreshToken,
				ExpiresAt:    time.Now().Add(time.Hour),
			}, nil
		},
	}
}

func newTestService(t *testing.T, provider *mockProvider, flows FlowStore, businesses routing.BusinessLookup) AuthService {
	t.Helper()
	engine, err := routing.NewEngine(routing.DefaultRules(), provider, businesses, routing.FailToOnboarding)
	require.NoError(t, err)
	return NewAuthService(provider, flows, engine, "https://app.example.com/auth/callback")
}

func pendingFlow(flows *mockFlowStore, returnTo string) string {
	flows.flows["flow-1"] = &Flow{Verifier: "verifier-1", ReturnTo: returnTo}
	return "flow-1"
}

func errorParam(t *testing.T, location string) string {
	t.Helper()
	u, err := url.Parse(location)
	require.NoError(t, err)
	assert.Equal(t, "/login", u.Path)
	return u.Query().Get("error")
}

// --- CompleteCallback ---

func TestCompleteCallback_MissingCode(t *testing.T) {
	provider := signedInProvider()
	flows := newMockFlowStore()
	svc := newTestService(t, provider, flows, owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "", pendingFlow(flows, ""))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "/login", res.Location)
	assert.Nil(t, res.Session)
	assert.Zero(t, provider.exchangeCalls)
}

func TestCompleteCallback_RejectedCode(t *testing.T) {
	provider := &mockProvider{}
	flows := newMockFlowStore()
	svc := newTestService(t, provider, flows, owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "bad-code", pendingFlow(flows, ""))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Nil(t, res.Session)
	assert.Equal(t, "invalid code", errorParam(t, res.Location))
}

func TestCompleteCallback_ProviderDownHidesDetail(t *testing.T) {
	provider := &mockProvider{
		exchangeCodeFn: func(ctx context.Context, code, verifier string) (*identity.Session, error) {
			return nil, identity.ErrProviderUnavailable
		},
	}
	flows := newMockFlowStore()
	svc := newTestService(t, provider, flows, owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "code", pendingFlow(flows, ""))
	assert.Equal(t, msgSignInFailed, errorParam(t, res.Location))
}

func TestCompleteCallback_MissingFlow(t *testing.T) {
	provider := signedInProvider()
	svc := newTestService(t, provider, newMockFlowStore(), owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "code", "unknown")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, msgLinkExpired, errorParam(t, res.Location))
	assert.Zero(t, provider.exchangeCalls)
}

func TestCompleteCallback_FlowIsSingleUse(t *testing.T) {
	provider := signedInProvider()
	flows := newMockFlowStore()
	svc := newTestService(t, provider, flows, owns(true, nil))
	id := pendingFlow(flows, "")

	first := svc.CompleteCallback(context.Background(), "code", id)
	assert.Equal(t, OutcomeDashboard, first.Outcome)

	second := svc.CompleteCallback(context.Background(), "code", id)
	assert.Equal(t, OutcomeFailed, second.Outcome)
	assert.Equal(t, 1, provider.exchangeCalls)
}

func TestCompleteCallback_NoBusiness(t *testing.T) {
	flows := newMockFlowStore()
	svc := newTestService(t, signedInProvider(), flows, owns(false, nil))

	res := svc.CompleteCallback(context.Background(), "code", pendingFlow(flows, ""))
	assert.Equal(t, OutcomeOnboarding, res.Outcome)
	assert.Equal(t, "/onboarding", res.Location)
	require.NotNil(t, res.Session)
	assert.Equal(t, "user-1", res.Session.UserID)
}

func TestCompleteCallback_ExistingBusiness(t *testing.T) {
	var verifier string
	provider := signedInProvider()
	exchange := provider.exchangeCodeFn
	provider.exchangeCodeFn = func(ctx context.Context, code, v string) (*identity.Session, error) {
		verifier = v
		return exchange(ctx, code, v)
	}
	flows := newMockFlowStore()
	svc := newTestService(t, provider, flows, owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "code", pendingFlow(flows, ""))
	assert.Equal(t, OutcomeDashboard, res.Outcome)
	assert.Equal(t, "/dashboard", res.Location)
	assert.Equal(t, "verifier-1", verifier)
	assert.Equal(t, "refresh-1", res.Session.RefreshToken)
}

func TestCompleteCallback_LookupErrorGoesToOnboarding(t *testing.T) {
	flows := newMockFlowStore()
	svc := newTestService(t, signedInProvider(), flows, owns(true, errors.New("connection reset")))

	res := svc.CompleteCallback(context.Background(), "code", pendingFlow(flows, ""))
	assert.Equal(t, "/onboarding", res.Location)
	assert.NotNil(t, res.Session)
}

func TestCompleteCallback_ReturnTo(t *testing.T) {
	flows := newMockFlowStore()
	svc := newTestService(t, signedInProvider(), flows, owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "code", pendingFlow(flows, "/dashboard/settings"))
	assert.Equal(t, OutcomeReturnTo, res.Outcome)
	assert.Equal(t, "/dashboard/settings", res.Location)
}

func TestCompleteCallback_NoSessionAfterExchange(t *testing.T) {
	provider := signedInProvider()
	provider.getSessionFn = nil
	flows := newMockFlowStore()
	svc := newTestService(t, provider, flows, owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "code", pendingFlow(flows, ""))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Nil(t, res.Session)
	assert.Equal(t, msgSignInFailed, errorParam(t, res.Location))
}

func TestCompleteCallback_FlowStoreDown(t *testing.T) {
	flows := newMockFlowStore()
	flows.takeErr = errors.New("redis: connection refused")
	svc := newTestService(t, signedInProvider(), flows, owns(true, nil))

	res := svc.CompleteCallback(context.Background(), "code", "flow-1")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, msgSignInFailed, errorParam(t, res.Location))
}

// --- StartMagicLink ---

func TestStartMagicLink_StoresFlowAndSendsChallenge(t *testing.T) {
	var sent identity.MagicLinkRequest
	provider := &mockProvider{
		sendMagicLinkFn: func(ctx context.Context, req identity.MagicLinkRequest) error {
			sent = req
			return nil
		},
	}
	flows := newMockFlowStore()
	svc := newTestService(t, provider, flows, owns(true, nil))

	id, err := svc.StartMagicLink(context.Background(), " Owner@Example.com ", "/dashboard/settings", true)
	require.NoError(t, err)

	flow := flows.flows[id]
	require.NotNil(t, flow)
	assert.Equal(t, "owner@example.com", flow.Email)
	assert.Equal(t, "/dashboard/settings", flow.ReturnTo)
	assert.Len(t, flow.Verifier, 43)

	assert.Equal(t, "owner@example.com", sent.Email)
	assert.Equal(t, "https://app.example.com/auth/callback", sent.RedirectTo)
	assert.Equal(t, identity.CodeChallenge(flow.Verifier), sent.CodeChallenge)
	assert.True(t, sent.CreateUser)
}

func TestStartMagicLink_DropsUnsafeReturnPath(t *testing.T) {
	flows := newMockFlowStore()
	svc := newTestService(t, &mockProvider{}, flows, owns(true, nil))

	id, err := svc.StartMagicLink(context.Background(), "owner@example.com", "https://evil.example.com", false)
	require.NoError(t, err)
	assert.Empty(t, flows.flows[id].ReturnTo)
}

func TestStartMagicLink_LoginRefusalLooksSent(t *testing.T) {
	provider := &mockProvider{
		sendMagicLinkFn: func(ctx context.Context, req identity.MagicLinkRequest) error {
			return &identity.APIError{Status: 422, Code: "otp_disabled", Message: "Signups not allowed for otp"}
		},
	}
	svc := newTestService(t, provider, newMockFlowStore(), owns(true, nil))

	_, err := svc.StartMagicLink(context.Background(), "nobody@example.com", "", false)
	require.NoError(t, err)
}

func TestStartMagicLink_ProviderDown(t *testing.T) {
	provider := &mockProvider{
		sendMagicLinkFn: func(ctx context.Context, req identity.MagicLinkRequest) error {
			return identity.ErrProviderUnavailable
		},
	}
	svc := newTestService(t, provider, newMockFlowStore(), owns(true, nil))

	_, err := svc.StartMagicLink(context.Background(), "owner@example.com", "", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, identity.ErrProviderUnavailable)
}

func TestStartMagicLink_FlowStoreDown(t *testing.T) {
	flows := newMockFlowStore()
	flows.saveErr = errors.New("redis down")
	svc := newTestService(t, &mockProvider{}, flows, owns(true, nil))

	_, err := svc.StartMagicLink(context.Background(), "owner@example.com", "", true)
	assert.ErrorIs(t, err, ErrSendFailed)
}
