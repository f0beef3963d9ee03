package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/metrics"
)

// RedirectParam carries the originally requested path to the login page.
const RedirectParam = "redirect"

// Decision reasons, also used as the metrics outcome label.
const (
	ReasonContinue     = "continue"
	ReasonNoSession    = "no_session"
	ReasonHasBusiness  = "has_business"
	ReasonNoBusiness   = "no_business"
	ReasonReturnTo     = "return_to"
	ReasonLookupFailed = "lookup_failed"

	// ReasonSessionUnavailable means credentials were present but the
	// provider could not be asked. The credentials were not rejected.
	ReasonSessionUnavailable = "session_unavailable"
)

// ErrLookupFailed is returned by Decide when the business lookup failed and
// the engine is configured to surface the failure.
var ErrLookupFailed = errors.New("business lookup failed")

// Action is what the transport should do with a request.
type Action int

const (
	// Continue renders the requested page.
	Continue Action = iota

	// Redirect short-circuits with a redirect response.
	Redirect
)

// Decision is the single output of the policy. It is a value; the query is
// copied on the way in and out so a decision cannot change once made.
type Decision struct {
	action Action
	target string
	query  url.Values
	reason string
}

func continueDecision() Decision {
	return Decision{action: Continue, reason: ReasonContinue}
}

func redirectDecision(target string, query url.Values, reason string) Decision {
	return Decision{action: Redirect, target: target, query: copyValues(query), reason: reason}
}

// Action returns the decided action.
func (d Decision) Action() Action { return d.action }

// Target returns the redirect path; empty for Continue.
func (d Decision) Target() string { return d.target }

// Query returns a copy of the preserved query parameters.
func (d Decision) Query() url.Values { return copyValues(d.query) }

// Reason explains the decision for logs and metrics.
func (d Decision) Reason() string { return d.reason }

// IsRedirect reports whether the request must be redirected.
func (d Decision) IsRedirect() bool { return d.action == Redirect }

// Location is the value for the Location header.
func (d Decision) Location() string {
	if len(d.query) == 0 {
		return d.target
	}
	return d.target + "?" + d.query.Encode()
}

func copyValues(v url.Values) url.Values {
	if len(v) == 0 {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// SessionSource resolves the session a request carries.
type SessionSource interface {
	GetSession(ctx context.Context, creds identity.Credentials) (*identity.Session, error)
}

// BusinessLookup reports whether a user owns a business record. A missing
// record is (false, nil); errors mean the store could not answer.
type BusinessLookup interface {
	HasBusiness(ctx context.Context, userID string) (bool, error)
}

// LookupFailureMode decides what a failed business lookup means on an
// auth-only route.
type LookupFailureMode int

const (
	// FailToOnboarding treats a failed lookup as "no business". Sending a
	// user to onboarding needlessly is preferred over letting them into the
	// dashboard without a verified record.
	FailToOnboarding LookupFailureMode = iota

	// FailWithError surfaces the failure to the caller.
	FailWithError
)

// ParseLookupFailureMode maps the config value to a mode.
func ParseLookupFailureMode(s string) (LookupFailureMode, error) {
	switch s {
	case "", "onboarding":
		return FailToOnboarding, nil
	case "error":
		return FailWithError, nil
	default:
		return FailToOnboarding, fmt.Errorf("routing: unknown lookup failure mode %q", s)
	}
}

// Engine is the redirect policy engine. It holds no per-request state;
// every decision is computed from live calls to its collaborators.
type Engine struct {
	rules           Rules
	classifier      *Classifier
	sessions        SessionSource
	businesses      BusinessLookup
	onLookupFailure LookupFailureMode
}

// NewEngine builds an engine from validated rules and its collaborators.
func NewEngine(rules Rules, sessions SessionSource, businesses BusinessLookup, mode LookupFailureMode) (*Engine, error) {
	classifier, err := NewClassifier(rules)
	if err != nil {
		return nil, err
	}
	for name, p := range map[string]string{
		"login":      rules.LoginPath,
		"dashboard":  rules.DashboardPath,
		"onboarding": rules.OnboardingPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("routing: %s path %q must start with /", name, p)
		}
	}
	return &Engine{
		rules:           rules,
		classifier:      classifier,
		sessions:        sessions,
		businesses:      businesses,
		onLookupFailure: mode,
	}, nil
}

// Rules returns the engine's route rules.
func (e *Engine) Rules() Rules { return e.rules }

// Classify exposes the engine's classifier.
func (e *Engine) Classify(path string) Classification {
	return e.classifier.Classify(path)
}

// Decide computes the decision for a request to target, a local path with
// an optional query. Classification uses the path; the redirect parameter
// carries the whole target. The session is returned alongside Continue
// decisions on routes where it was resolved so the transport can hand it to
// the page. A non-nil error is only returned in FailWithError mode.
//
//	Protected    + no session -> login?redirect=<target>
//	Protected    + session    -> continue
//	AuthOnly     + session    -> dashboard or onboarding
//	AuthOnly     + no session -> continue
//	Unrestricted              -> continue
func (e *Engine) Decide(ctx context.Context, target string, creds identity.Credentials) (Decision, *identity.Session, error) {
	path, _, _ := strings.Cut(target, "?")
	class := e.classifier.Classify(path)

	var (
		decision Decision
		session  *identity.Session
		answered bool
		err      error
	)

	switch class {
	case Protected:
		session, answered = e.resolve(ctx, creds)
		switch {
		case session != nil:
			decision = continueDecision()
		case !answered:
			decision = redirectDecision(e.rules.LoginPath, url.Values{RedirectParam: {target}}, ReasonSessionUnavailable)
		default:
			decision = redirectDecision(e.rules.LoginPath, url.Values{RedirectParam: {target}}, ReasonNoSession)
		}

	case AuthOnly:
		session, _ = e.resolve(ctx, creds)
		if session == nil {
			decision = continueDecision()
		} else {
			decision, err = e.landing(ctx, session.UserID, "", e.onLookupFailure)
		}

	default:
		decision = continueDecision()
	}

	outcome := decision.reason
	if err != nil {
		outcome = ReasonLookupFailed
	}
	metrics.RouteDecisionsTotal.WithLabelValues(class.String(), outcome).Inc()

	return decision, session, err
}

// Landing decides where a freshly signed-in user goes. Lookup failures
// never abort it; they route to onboarding. returnTo is honored only for
// users with a business and only when it is a local protected path.
func (e *Engine) Landing(ctx context.Context, userID, returnTo string) Decision {
	d, _ := e.landing(ctx, userID, returnTo, FailToOnboarding)
	return d
}

func (e *Engine) landing(ctx context.Context, userID, returnTo string, mode LookupFailureMode) (Decision, error) {
	has, err := e.businesses.HasBusiness(ctx, userID)
	if err != nil {
		metrics.BusinessLookupFailuresTotal.Inc()
		if mode == FailWithError {
			return Decision{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
		}
		has = false
	}

	if !has {
		return redirectDecision(e.rules.OnboardingPath, nil, ReasonNoBusiness), nil
	}
	if target := e.SafeReturnPath(returnTo); target != "" {
		return redirectDecision(target, nil, ReasonReturnTo), nil
	}
	return redirectDecision(e.rules.DashboardPath, nil, ReasonHasBusiness), nil
}

// SafeReturnPath returns p (path and query) when it is a local path to a
// protected page other than onboarding, or "" otherwise. Used to keep
// redirect parameters from sending users off-site.
func (e *Engine) SafeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.ContainsAny(p, "\\\r\n") {
		return ""
	}
	u, err := url.Parse(p)
	if err != nil || u.Host != "" || u.Scheme != "" || u.User != nil {
		return ""
	}
	if e.classifier.Classify(u.Path) != Protected || strings.HasPrefix(u.Path, e.rules.OnboardingPath) {
		return ""
	}
	out := u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// resolve asks for the session. answered is false when the provider could
// not be asked; the request is then treated as signed out without the
// credentials being judged invalid.
func (e *Engine) resolve(ctx context.Context, creds identity.Credentials) (session *identity.Session, answered bool) {
	if creds.Empty() {
		return nil, true
	}
	session, err := e.sessions.GetSession(ctx, creds)
	if err != nil {
		metrics.SessionLookupFailuresTotal.Inc()
		slog.Warn("session lookup failed, treating request as signed out",
			slog.Any("error", err),
		)
		return nil, false
	}
	return session, true
}
