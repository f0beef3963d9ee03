// Package metrics defines and registers the custom Prometheus metrics of the
// SmartText web tier. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry on
// import, so /metrics exposes them alongside the HTTP middleware metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smarttext"

// RouteDecisionsTotal counts gate decisions.
// Labels:
//   - classification: "protected", "auth_only" or "unrestricted"
//   - outcome: decision reason, e.g. "continue", "no_session", "has_business"
var RouteDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_decisions_total",
		Help:      "Total number of routing decisions made by the auth gate.",
	},
	[]string{"classification", "outcome"},
)

// SessionLookupFailuresTotal counts requests where the identity provider
// could not be asked and the request was treated as signed out.
var SessionLookupFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_lookup_failures_total",
		Help:      "Total number of session lookups that failed and were treated as no session.",
	},
)

// BusinessLookupFailuresTotal counts business lookups that failed for a
// reason other than "not found".
var BusinessLookupFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "business_lookup_failures_total",
		Help:      "Total number of business ownership lookups that failed.",
	},
)

// AuthCallbacksTotal counts magic-link callback outcomes.
// Label:
//   - outcome: "dashboard", "onboarding" or "failed"
var AuthCallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_callbacks_total",
		Help:      "Total number of magic-link callbacks, by terminal outcome.",
	},
	[]string{"outcome"},
)

// MagicLinksSentTotal counts magic-link requests, by result.
// Label:
//   - result: "sent" or "error"
var MagicLinksSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "magic_links_total",
		Help:      "Total number of magic-link emails requested from the identity provider.",
	},
	[]string{"result"},
)
