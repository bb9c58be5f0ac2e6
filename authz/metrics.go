// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

// Prometheus metrics for the permission evaluation engine, enabling
// production observability and alerting on denial spikes.
package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts permission decisions by tenant, codename, and outcome.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_decisions_total",
			Help: "Total number of permission decisions",
		},
		[]string{"tenant", "permission", "decision"},
	)

	// DecisionDuration tracks the latency of permission decisions,
	// dominated by store round-trips.
	DecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantguard_decision_duration_seconds",
			Help:    "Duration of permission decisions in seconds",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"tenant"},
	)

	// DeniedTotal specifically tracks denials for alerting.
	DeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_denied_total",
			Help: "Total number of permission denials (for alerting)",
		},
		[]string{"tenant", "permission"},
	)

	// SuperuserBypassTotal counts decisions answered by the superuser bypass.
	SuperuserBypassTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantguard_superuser_bypass_total",
			Help: "Total number of permission checks short-circuited by superuser bypass",
		},
	)

	// MemoHitsTotal counts identity-context queries answered from the
	// instance-local cache instead of the store.
	MemoHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantguard_context_memo_hits_total",
			Help: "Total number of identity context queries served from the per-request cache",
		},
	)
)

func recordDecision(tenant, permission string, allowed bool, duration time.Duration) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	DecisionsTotal.WithLabelValues(tenant, permission, decision).Inc()
	DecisionDuration.WithLabelValues(tenant).Observe(duration.Seconds())
	if !allowed {
		DeniedTotal.WithLabelValues(tenant, permission).Inc()
	}
}
