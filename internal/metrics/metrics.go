// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Post list cache efficiency
//   - Like submissions and rate limiting
//   - Cache circuit breaker state
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Post List Cache Metrics
	PostCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "post_cache_hits_total",
			Help: "Total number of post list cache hits",
		},
	)

	PostCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "post_cache_misses_total",
			Help: "Total number of post list cache misses",
		},
	)

	PostCacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "post_cache_invalidations_total",
			Help: "Total number of post list cache invalidations",
		},
	)

	PostCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "post_cache_errors_total",
			Help: "Total number of post list cache errors",
		},
		[]string{"operation"},
	)

	// Like Metrics
	LikesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "post_likes_total",
			Help: "Total number of accepted post likes",
		},
	)

	LikesRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "post_likes_rate_limited_total",
			Help: "Total number of like requests rejected by the rate limiter",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total circuit breaker requests by outcome",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
