// Package metrics holds the bridge's Prometheus collectors. Everything
// is registered on the default registry and served by the HTTP server's
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TelemetrySentTotal counts samples pushed downstream, by source and
	// outcome (sent/buffered).
	TelemetrySentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbridge_telemetry_sent_total",
			Help: "Total number of telemetry samples processed, by source and outcome.",
		},
		[]string{"source", "outcome"}, // outcome: sent/buffered
	)

	// FlushedStatesTotal counts buffered samples successfully re-sent.
	FlushedStatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetbridge_flushed_states_total",
			Help: "Total number of buffered samples delivered by the flusher.",
		},
	)

	// BufferBacklog tracks the number of vehicles with buffered samples.
	BufferBacklog = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetbridge_buffer_backlog_vehicles",
			Help: "Number of vehicles that currently have buffered samples.",
		},
	)

	// AlarmsSentTotal counts alarms pushed downstream, by outcome
	// (sent/dropped). Alarms are never buffered.
	AlarmsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbridge_alarms_sent_total",
			Help: "Total number of alarms processed, by source and outcome.",
		},
		[]string{"source", "outcome"}, // outcome: sent/dropped
	)

	// FetchErrorsTotal counts upstream fetch failures, by source and task.
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbridge_fetch_errors_total",
			Help: "Total number of upstream fetch failures, by source and task.",
		},
		[]string{"source", "task"},
	)

	// AuthRetriesTotal counts authentication attempts that failed.
	AuthRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbridge_auth_retries_total",
			Help: "Total number of failed authentication attempts, by source.",
		},
		[]string{"source"},
	)

	// SourceUp reports the orchestrator state per source (1=running).
	SourceUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetbridge_source_up",
			Help: "Whether the source orchestrator is in the running state.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(
		TelemetrySentTotal,
		FlushedStatesTotal,
		BufferBacklog,
		AlarmsSentTotal,
		FetchErrorsTotal,
		AuthRetriesTotal,
		SourceUp,
	)
}
