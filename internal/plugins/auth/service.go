package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/metrics"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/routing"
)

// ErrSendFailed is returned by StartMagicLink when the provider could not
// send the email for reasons the user can retry.
var ErrSendFailed = errors.New("magic link not sent")

// AuthService defines the business logic contract for sign-in.
type AuthService interface {
	// StartMagicLink stores a PKCE flow and asks the provider to email a
	// link. It returns the flow id for the flow cookie.
	StartMagicLink(ctx context.Context, email, returnTo string, createUser bool) (string, error)

	// CompleteCallback redeems a one-time code. It never returns an error:
	// every failure is a CallbackResult pointing at the login page.
	CompleteCallback(ctx context.Context, code, flowID string) CallbackResult

	// SignOut revokes the session at the provider. Failures are logged.
	SignOut(ctx context.Context, accessToken string)
}

// authService implements AuthService.
type authService struct {
	provider    identity.Provider
	flows       FlowStore
	engine      *routing.Engine
	callbackURL string
	now         func() time.Time
}

// NewAuthService creates a new auth service. callbackURL is the absolute
// URL of the callback route, embedded in every magic link.
func NewAuthService(provider identity.Provider, flows FlowStore, engine *routing.Engine, callbackURL string) AuthService {
	return &authService{
		provider:    provider,
		flows:       flows,
		engine:      engine,
		callbackURL: callbackURL,
		now:         time.Now,
	}
}

// StartMagicLink implements AuthService. Provider 4xx answers on login
// (unknown email with signups disabled) are swallowed so the form never
// reveals which addresses have accounts.
func (s *authService) StartMagicLink(ctx context.Context, email, returnTo string, createUser bool) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	verifier, err := identity.NewCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("generating verifier: %w", err)
	}

	flowID, err := s.flows.Save(ctx, &Flow{
		Verifier:  verifier,
		ReturnTo:  s.engine.SafeReturnPath(returnTo),
		Email:     email,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		metrics.MagicLinksSentTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	err = s.provider.SendMagicLink(ctx, identity.MagicLinkRequest{
		Email:         email,
		RedirectTo:    s.callbackURL,
		CodeChallenge: identity.CodeChallenge(verifier),
		CreateUser:    createUser,
	})
	if err != nil {
		var apiErr *identity.APIError
		if !createUser && errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != 429 {
			slog.Info("magic link refused by provider",
				slog.Int("status", apiErr.Status),
				slog.String("code", apiErr.Code),
			)
			metrics.MagicLinksSentTotal.WithLabelValues("refused").Inc()
			return flowID, nil
		}

		slog.Error("sending magic link failed", slog.Any("error", err))
		metrics.MagicLinksSentTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	metrics.MagicLinksSentTotal.WithLabelValues("sent").Inc()
	return flowID, nil
}

// CompleteCallback implements AuthService.
//
//	no code                  -> login
//	no flow / exchange fails -> login?error=<message>
//	no session after exchange -> login?error=<generic message>
//	otherwise                -> Engine.Landing (dashboard, onboarding, return path)
func (s *authService) CompleteCallback(ctx context.Context, code, flowID string) CallbackResult {
	result := s.completeCallback(ctx, code, flowID)
	metrics.AuthCallbacksTotal.WithLabelValues(result.Outcome).Inc()
	return result
}

func (s *authService) completeCallback(ctx context.Context, code, flowID string) CallbackResult {
	loginPath := s.engine.Rules().LoginPath

	if code == "" {
		return CallbackResult{Outcome: OutcomeFailed, Location: loginPath}
	}

	var flow *Flow
	if flowID != "" {
		var err error
		flow, err = s.flows.Take(ctx, flowID)
		if err != nil {
			slog.Error("loading auth flow failed", slog.Any("error", err))
			return s.failed(msgSignInFailed)
		}
	}
	if flow == nil {
		slog.Info("callback without a pending flow")
		return s.failed(msgLinkExpired)
	}

	exchanged, err := s.provider.ExchangeCode(ctx, code, flow.Verifier)
	if err != nil {
		slog.Warn("code exchange failed", slog.Any("error", err))
		return s.failed(identity.UserMessage(err))
	}

	// The landing decision rests on the same check every later request uses.
	session, err := s.provider.GetSession(ctx, identity.Credentials{
		AccessToken:  exchanged.AccessToken,
		RefreshToken: exchanged.RefreshToken,
	})
	if err != nil || session == nil {
		slog.Error("no session after successful code exchange",
			slog.String("user_id", exchanged.UserID),
			slog.Any("error", err),
		)
		return s.failed(msgSignInFailed)
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = exchanged.ExpiresAt
	}

	decision := s.engine.Landing(ctx, session.UserID, flow.ReturnTo)

	slog.Info("user signed in",
		slog.String("user_id", session.UserID),
		slog.String("landing", decision.Target()),
	)

	return CallbackResult{
		Outcome:  outcomeFor(decision),
		Location: decision.Location(),
		Session:  session,
	}
}

// failed sends the user back to login with a readable reason.
func (s *authService) failed(message string) CallbackResult {
	q := url.Values{"error": {message}}
	return CallbackResult{
		Outcome:  OutcomeFailed,
		Location: s.engine.Rules().LoginPath + "?" + q.Encode(),
	}
}

func outcomeFor(d routing.Decision) string {
	switch d.Reason() {
	case routing.ReasonHasBusiness:
		return OutcomeDashboard
	case routing.ReasonReturnTo:
		return OutcomeReturnTo
	default:
		return OutcomeOnboarding
	}
}

// SignOut implements AuthService.
func (s *authService) SignOut(ctx context.Context, accessToken string) {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		slog.Warn("provider sign-out failed", slog.Any("error", err))
	}
}
