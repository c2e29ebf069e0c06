// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Login outcome labels.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeNotVerified        = "email_not_verified"
	OutcomeLocked             = "locked"
	OutcomeError              = "error"
)

// LoginAttempts counts login attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roster_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"outcome"},
)

// AccountLockouts counts accounts locked after too many failed logins.
var AccountLockouts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "roster_account_lockouts_total",
		Help: "Total number of accounts locked after repeated login failures",
	},
)

// AccountsCreated counts created accounts by assigned role.
var AccountsCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "roster_accounts_created_total",
		Help: "Total number of accounts created by role",
	},
	[]string{"role"},
)

// SearchFailures counts searches that degraded to an empty result.
var SearchFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "roster_account_search_failures_total",
		Help: "Total number of account searches that failed and returned no results",
	},
)

// Collectors returns the account metrics.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{LoginAttempts, AccountLockouts, AccountsCreated, SearchFailures}
}

// RegisterMetrics registers account metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Collectors()...)
}

func recordLogin(outcome string) {
	LoginAttempts.WithLabelValues(outcome).Inc()
}
