// Package auth drives sign-in for the web tier: magic-link requests, the
// PKCE callback that turns a one-time code into a session, sign-out, and the
// gate middleware that applies the redirect policy to every request.
//
// Sessions themselves belong to the identity provider; this package only
// carries its tokens in cookies.
package auth

import (
	"time"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/identity"
)

// FlowCookieName holds the id of the pending magic-link flow between the
// link request and the callback.
const FlowCookieName = "stc_auth_flow"

// Callback outcomes, also the metrics label.
const (
	OutcomeDashboard  = "dashboard"
	OutcomeOnboarding = "onboarding"
	OutcomeReturnTo   = "return_to"
	OutcomeFailed     = "failed"
)

// Messages shown on the login page.
const (
	msgLinkExpired        = "This sign-in link has expired or was already used. Please request a new one."
	msgSignInFailed       = "We couldn't sign you in. Please request a new link."
	msgSendFailed         = "We couldn't send your sign-in link right now. Please try again in a moment."
	msgSessionUnavailable = "We couldn't confirm your sign-in right now. Please try again in a moment."
)

// Form modes; the login and signup pages share one template.
const (
	modeLogin  = "login"
	modeSignup = "signup"
)

// refreshCookieAge bounds the refresh token cookie. The provider decides
// how long the refresh token itself stays valid.
const refreshCookieAge = 30 * 24 * time.Hour

// --- Request DTOs (bound from HTTP requests) ---

// MagicLinkRequest holds the data submitted by the login and signup forms.
type MagicLinkRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=255"`
	Redirect string `json:"redirect" form:"redirect"`
}

// --- Flow ---

// Flow is a pending magic-link attempt, stored in Redis under its id until
// the callback redeems it or it expires.
type Flow struct {
	Verifier  string    `json:"verifier"`
	ReturnTo  string    `json:"return_to,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CallbackResult is the terminal state of one callback request.
type CallbackResult struct {
	// Outcome is one of the Outcome* constants.
	Outcome string

	// Location is where the browser goes next.
	Location string

	// Session is set only when sign-in succeeded.
	Session *identity.Session
}
