// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus instrumentation for the
// compiler provisioning core. It registers collectors at init time via
// promauto; wiring an HTTP exposition endpoint is left to the embedding
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts DownloadCache.Get calls by outcome ("hit",
	// "miss_fetched", "error").
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solc_cache_requests_total",
		Help: "Total compiler cache lookups by outcome",
	}, []string{"compiler", "outcome"})

	// FetchDuration tracks how long a Fetcher.Fetch call took, by fetcher kind.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solc_cache_fetch_duration_seconds",
		Help:    "Duration of compiler binary fetch operations",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 12), // 50ms to ~100s
	}, []string{"compiler", "fetcher_kind"})

	// FetchErrors counts fetch failures by error kind (matches compiler.Kind.String()).
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solc_cache_fetch_errors_total",
		Help: "Total compiler fetch errors by kind",
	}, []string{"compiler", "kind"})

	// RefreshRuns counts scheduled version-refresh executions by outcome
	// ("swapped", "unchanged", "error").
	RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solc_cache_refresh_runs_total",
		Help: "Total scheduled version-refresh job executions by outcome",
	}, []string{"compiler", "outcome"})

	// KnownVersions reports the size of the upstream version list, by
	// compiler, as recorded at the most recent disk reconciliation.
	KnownVersions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solc_cache_known_versions",
		Help: "Number of compiler versions known upstream at the last disk reconciliation",
	}, []string{"compiler"})

	// MaterializedVersions reports how many versions are currently present on disk.
	MaterializedVersions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solc_cache_materialized_versions",
		Help: "Number of compiler versions currently materialized on disk",
	}, []string{"compiler"})
)
