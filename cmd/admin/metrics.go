package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric definitions for the admin engine. These gauges are
// refreshed by the sampler loop in main and read back by the threshold
// monitor through a PrometheusSource, so alerting sees exactly what the
// scrape endpoint exposes.

var (
	batchFailureRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inkwell",
			Subsystem: "admin",
			Name:      "batch_failure_rate",
			Help:      "Fraction of batch items that failed over the stats window",
		},
	)

	auditEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inkwell",
			Subsystem: "admin",
			Name:      "audit_entries_total",
			Help:      "Total audit entries observed over the stats window",
		},
	)

	highRiskEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inkwell",
			Subsystem: "admin",
			Name:      "audit_high_risk_total",
			Help:      "High and critical risk audit entries over the stats window",
		},
	)

	batchesExecuted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inkwell",
			Subsystem: "admin",
			Name:      "batches_executed_total",
			Help:      "Batch operations executed since process start",
		},
	)

	heapAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inkwell",
			Subsystem: "admin",
			Name:      "heap_alloc_bytes",
			Help:      "Bytes of allocated heap objects",
		},
	)
)

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// UpdateStatsGauges refreshes the gauges derived from the statistics window
func UpdateStatsGauges(total, failure, highRisk int64) {
	auditEntriesTotal.Set(float64(total))
	highRiskEntriesTotal.Set(float64(highRisk))
	if total > 0 {
		batchFailureRate.Set(float64(failure) / float64(total))
	} else {
		batchFailureRate.Set(0)
	}
}

// UpdateHeapGauge refreshes the heap allocation gauge
func UpdateHeapGauge(bytes uint64) {
	heapAllocBytes.Set(float64(bytes))
}

// UpdateBatchesExecuted refreshes the executed-batches gauge
func UpdateBatchesExecuted(count int64) {
	batchesExecuted.Set(float64(count))
}
