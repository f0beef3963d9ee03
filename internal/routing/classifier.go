// Package routing decides, for every request, whether it may proceed or
// must be redirected. It combines three signals: the route's class, whether
// the request carries a session, and whether the signed-in user has finished
// business setup. The package is transport agnostic; the Echo gate lives in
// the auth plugin.
package routing

import (
	"fmt"
	"strings"
)

// Classification is the access class of a path.
type Classification int

const (
	// Unrestricted paths are passed through untouched.
	Unrestricted Classification = iota

	// Protected paths require a session.
	Protected

	// AuthOnly paths are entry points meant for signed-out users.
	AuthOnly
)

// String returns the label used in logs and metrics.
func (c Classification) String() string {
	switch c {
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth_only"
	default:
		return "unrestricted"
	}
}

// Rules is the immutable route configuration. Rule lists are ordered and
// matched case-sensitively without wildcards.
type Rules struct {
	// ProtectedPrefixes match a path equal to or starting with the prefix.
	ProtectedPrefixes []string

	// AuthOnlyPaths match a path exactly.
	AuthOnlyPaths []string

	// Entry paths used as redirect targets.
	LoginPath      string
	DashboardPath  string
	OnboardingPath string
}

// DefaultRules returns the rules the site ships with.
func DefaultRules() Rules {
	return Rules{
		ProtectedPrefixes: []string{"/dashboard", "/onboarding"},
		AuthOnlyPaths:     []string{"/login", "/signup"},
		LoginPath:         "/login",
		DashboardPath:     "/dashboard",
		OnboardingPath:    "/onboarding",
	}
}

// Classifier maps paths to a Classification. Safe for concurrent use; it
// never changes after construction.
type Classifier struct {
	protected []string
	authOnly  []string
}

// NewClassifier validates the rules and builds a classifier. The rule sets
// must be disjoint: an auth-only path that a protected prefix would also
// match is rejected.
func NewClassifier(rules Rules) (*Classifier, error) {
	c := &Classifier{
		protected: clean(rules.ProtectedPrefixes),
		authOnly:  clean(rules.AuthOnlyPaths),
	}
	if len(c.protected) == 0 {
		return nil, fmt.Errorf("routing: at least one protected prefix is required")
	}
	for _, p := range append(append([]string{}, c.protected...), c.authOnly...) {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("routing: rule %q must start with /", p)
		}
	}
	for _, p := range c.authOnly {
		if c.isProtected(p) {
			return nil, fmt.Errorf("routing: auth-only path %q overlaps a protected prefix", p)
		}
	}
	return c, nil
}

// Classify returns the class of path. Protected rules are checked first.
func (c *Classifier) Classify(path string) Classification {
	if c.isProtected(path) {
		return Protected
	}
	for _, p := range c.authOnly {
		if path == p {
			return AuthOnly
		}
	}
	return Unrestricted
}

func (c *Classifier) isProtected(path string) bool {
	for _, prefix := range c.protected {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// clean copies the list, trimming whitespace left by env parsing and
// dropping empty entries.
func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
