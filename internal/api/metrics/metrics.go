// Package metrics defines and registers all custom Prometheus metrics for
// the subscription-tracker auth API. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics register with the default registry via promauto at import time;
// the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subtrackr"

// LoginsTotal counts login attempts by outcome.
// Label:
//   - result: "success", "invalid_credentials", "rate_limited", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts by outcome.
// Label:
//   - result: "success", "policy_violation", "already_exists", "rate_limited", "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// RefreshesTotal counts refresh attempts by outcome.
// Label:
//   - result: "success", "expired", "invalid_token", "rate_limited", "error"
var RefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_token_refreshes_total",
		Help:      "Total number of refresh-token exchanges, by result.",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests rejected by the rate limiter.
// Label:
//   - action: "login", "register", "refresh"
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rate_limited_total",
		Help:      "Total number of requests rejected by the auth rate limiter.",
	},
	[]string{"action"},
)
