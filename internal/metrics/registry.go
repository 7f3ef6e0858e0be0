package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the engine's domain-specific instruments
type Registry struct {
	meter metric.Meter

	// Batch execution metrics
	BatchDuration    metric.Float64Histogram
	BatchItemsTotal  metric.Int64Counter
	BatchItemsFailed metric.Int64Counter

	// Audit metrics
	AuditEntriesWritten metric.Int64Counter
	AuditWriteFailures  metric.Int64Counter

	// Alerting metrics
	AlertsRaised   metric.Int64Counter
	AlertsResolved metric.Int64Counter
	PollDuration   metric.Float64Histogram
}

// NewRegistry creates and registers all engine metrics
func NewRegistry() (*Registry, error) {
	meter := otel.Meter("inkwell-admin-engine")

	r := &Registry{meter: meter}

	var err error

	r.BatchDuration, err = meter.Float64Histogram(
		"admin.batch.duration",
		metric.WithDescription("Batch execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	r.BatchItemsTotal, err = meter.Int64Counter(
		"admin.batch.items.total",
		metric.WithDescription("Total batch items processed"),
	)
	if err != nil {
		return nil, err
	}

	r.BatchItemsFailed, err = meter.Int64Counter(
		"admin.batch.items.failed",
		metric.WithDescription("Batch items that failed"),
	)
	if err != nil {
		return nil, err
	}

	r.AuditEntriesWritten, err = meter.Int64Counter(
		"admin.audit.entries.written",
		metric.WithDescription("Audit entries appended to the log"),
	)
	if err != nil {
		return nil, err
	}

	r.AuditWriteFailures, err = meter.Int64Counter(
		"admin.audit.write.failures",
		metric.WithDescription("Failed audit store writes"),
	)
	if err != nil {
		return nil, err
	}

	r.AlertsRaised, err = meter.Int64Counter(
		"admin.alerts.raised",
		metric.WithDescription("Alerts raised by the threshold monitor"),
	)
	if err != nil {
		return nil, err
	}

	r.AlertsResolved, err = meter.Int64Counter(
		"admin.alerts.resolved",
		metric.WithDescription("Alerts resolved by operators"),
	)
	if err != nil {
		return nil, err
	}

	r.PollDuration, err = meter.Float64Histogram(
		"admin.monitor.poll.duration",
		metric.WithDescription("Threshold monitor poll duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordBatch records one completed batch execution
func (r *Registry) RecordBatch(ctx context.Context, action string, duration time.Duration, total, failed int) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("action", action))
	r.BatchDuration.Record(ctx, duration.Seconds(), attrs)
	r.BatchItemsTotal.Add(ctx, int64(total), attrs)
	r.BatchItemsFailed.Add(ctx, int64(failed), attrs)
}

// RecordAuditWrite records audit append outcomes
func (r *Registry) RecordAuditWrite(ctx context.Context, written int, failed bool) {
	if r == nil {
		return
	}
	if failed {
		r.AuditWriteFailures.Add(ctx, 1)
		return
	}
	r.AuditEntriesWritten.Add(ctx, int64(written))
}

// RecordAlertRaised records a raised alert
func (r *Registry) RecordAlertRaised(ctx context.Context, metricName string, severity string) {
	if r == nil {
		return
	}
	r.AlertsRaised.Add(ctx, 1, metric.WithAttributes(
		attribute.String("metric", metricName),
		attribute.String("severity", severity),
	))
}

// RecordAlertResolved records a resolved alert
func (r *Registry) RecordAlertResolved(ctx context.Context, metricName string) {
	if r == nil {
		return
	}
	r.AlertsResolved.Add(ctx, 1, metric.WithAttributes(
		attribute.String("metric", metricName),
	))
}

// RecordPoll records one monitor poll cycle
func (r *Registry) RecordPoll(ctx context.Context, duration time.Duration) {
	if r == nil {
		return
	}
	r.PollDuration.Record(ctx, duration.Seconds())
}
