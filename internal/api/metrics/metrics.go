// Package metrics defines all custom Prometheus metrics for the auth
// service. It is the single source of truth for metric names, labels, and
// help strings; promauto registers everything with the default registry at
// package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// LoginsTotal counts login attempts by outcome.
// Label:
//   - result: "success", "invalid_credentials", "locked", "role_mismatch",
//     "throttled", or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"result"},
)

// LockoutsTotal counts accounts entering the locked state.
var LockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Total number of account lockouts triggered by repeated failures.",
	},
)

// TokenRefreshesTotal counts token refresh attempts by outcome.
var TokenRefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of token refresh attempts, by outcome (success/invalid).",
	},
	[]string{"result"},
)

// PasswordResetsTotal counts reset-flow operations by stage.
// Label:
//   - stage: "requested" or "completed"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset operations, by stage.",
	},
	[]string{"stage"},
)

// SuspiciousLoginsTotal counts successful logins the risk scorer flagged.
var SuspiciousLoginsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suspicious_logins_total",
		Help:      "Total number of successful logins flagged as suspicious.",
	},
)

// RiskScore observes the risk score assigned to each successful login.
var RiskScore = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "login_risk_score",
		Help:      "Distribution of risk scores assigned at login.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11), // 0..100
	},
)
