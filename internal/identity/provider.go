package identity

import "context"

// Provider is the identity provider contract consumed by the web tier.
type Provider interface {
	// GetSession returns the session proven by creds, or nil when there is
	// none. A non-nil error means the provider could not be asked.
	GetSession(ctx context.Context, creds Credentials) (*Session, error)

	// ExchangeCode redeems a one-time code (plus its PKCE verifier) for a
	// session. Codes are single use.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error)

	// SendMagicLink asks the provider to email a sign-in link.
	SendMagicLink(ctx context.Context, req MagicLinkRequest) error

	// SignOut revokes the session behind accessToken.
	SignOut(ctx context.Context, accessToken string) error
}

// MagicLinkRequest describes one magic-link email.
type MagicLinkRequest struct {
	Email string

	// RedirectTo is the absolute callback URL the link points at.
	RedirectTo string

	// CodeChallenge is the S256 PKCE challenge for the flow.
	CodeChallenge string

	// CreateUser lets the provider sign up unknown emails.
	CreateUser bool
}
