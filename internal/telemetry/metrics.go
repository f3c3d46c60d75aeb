/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing for
// the poller and the status API.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollerTicksTotal counts resolution passes, successful or not.
	PollerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schulfunk_poller_ticks_total",
		Help: "Number of poller ticks executed.",
	})

	// PollerTickErrorsTotal counts abandoned ticks by failure stage.
	PollerTickErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schulfunk_poller_tick_errors_total",
		Help: "Number of poller ticks abandoned due to an error.",
	}, []string{"stage"})

	// SinkPushesTotal counts presence updates delivered to the sink.
	SinkPushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schulfunk_sink_pushes_total",
		Help: "Number of presence updates pushed to the sink.",
	})

	// SinkConnectAttemptsTotal counts sink handshake attempts by outcome.
	SinkConnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schulfunk_sink_connect_attempts_total",
		Help: "Number of sink connection attempts.",
	}, []string{"outcome"})

	// ResolvedActivity tracks the kind produced by the latest tick.
	ResolvedActivity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schulfunk_resolved_activity",
		Help: "Set to 1 for the activity kind resolved by the latest tick.",
	}, []string{"kind"})

	// SyncRunsTotal counts schedule scrape runs by outcome.
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schulfunk_sync_runs_total",
		Help: "Number of schedule sync runs.",
	}, []string{"outcome"})

	// APIRequestsTotal counts status API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schulfunk_api_requests_total",
		Help: "Number of HTTP requests handled by the status API.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes status API latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schulfunk_api_request_duration_seconds",
		Help:    "Latency of status API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight status API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schulfunk_api_active_connections",
		Help: "In-flight HTTP requests on the status API.",
	})
)

// SetResolvedActivity marks one activity kind as current and clears the rest.
func SetResolvedActivity(kind string) {
	for _, k := range []string{"no_schedule", "in_lesson", "cancelled", "break", "free_time"} {
		value := 0.0
		if k == kind {
			value = 1.0
		}
		ResolvedActivity.WithLabelValues(k).Set(value)
	}
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
