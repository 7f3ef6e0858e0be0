package monitoring

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
	"github.com/inkwellhq/inkwell-backend/internal/domain/monitoring"
	"github.com/inkwellhq/inkwell-backend/internal/metrics"
)

// MetricSource samples one metric's current value
type MetricSource interface {
	Sample(ctx context.Context) (monitoring.MetricSample, error)
}

// Notifier delivers a raised alert to an external channel. Delivery is
// best effort and bounded; it never blocks a poll cycle indefinitely.
type Notifier interface {
	Deliver(ctx context.Context, alert *monitoring.Alert) error
}

// MonitorConfig configures the threshold monitor
type MonitorConfig struct {
	// PollInterval is the cadence of Run's evaluation loop (default: 30s)
	PollInterval time.Duration

	// DeliveryTimeout bounds one notification attempt (default: 5s)
	DeliveryTimeout time.Duration
}

// DefaultMonitorConfig returns default configuration
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:    30 * time.Second,
		DeliveryTimeout: 5 * time.Second,
	}
}

type registeredMetric struct {
	name      string
	source    MetricSource
	threshold monitoring.Threshold
}

// Monitor periodically samples registered metrics, classifies them
// against their thresholds, and manages the alert lifecycle. It runs on
// its own cadence, independent of batch traffic. At most one open alert
// exists per metric at a time, so a sustained condition cannot storm.
type Monitor struct {
	config   MonitorConfig
	clock    audit.Clock
	logger   *zap.Logger
	notifier Notifier
	registry *metrics.Registry

	mu           sync.RWMutex
	metrics      map[string]*registeredMetric
	alerts       map[uuid.UUID]*monitoring.Alert
	openByMetric map[string]uuid.UUID
}

// NewMonitor creates a threshold monitor. notifier may be nil when no
// delivery channel is configured.
func NewMonitor(clock audit.Clock, logger *zap.Logger, notifier Notifier, registry *metrics.Registry, config MonitorConfig) *Monitor {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = 5 * time.Second
	}

	return &Monitor{
		config:       config,
		clock:        clock,
		logger:       logger,
		notifier:     notifier,
		registry:     registry,
		metrics:      make(map[string]*registeredMetric),
		alerts:       make(map[uuid.UUID]*monitoring.Alert),
		openByMetric: make(map[string]uuid.UUID),
	}
}

// RegisterMetric adds a metric to the evaluation set
func (m *Monitor) RegisterMetric(name string, source MetricSource, threshold monitoring.Threshold) error {
	if name == "" {
		return errors.NewConfigurationError("EMPTY_METRIC_NAME",
			"metric name is required")
	}
	if source == nil {
		return errors.NewConfigurationError("MISSING_METRIC_SOURCE",
			"metric source is required")
	}
	if err := threshold.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.metrics[name]; exists {
		return errors.NewConflictError(fmt.Sprintf("metric %s already registered", name))
	}

	m.metrics[name] = &registeredMetric{
		name:      name,
		source:    source,
		threshold: threshold,
	}

	m.logger.Info("metric registered",
		zap.String("metric", name),
		zap.Float64("warning", threshold.Warning),
		zap.Float64("critical", threshold.Critical))

	return nil
}

// Poll evaluates every registered metric once. A metric classified
// Warning or Critical with no open alert raises a new one; a metric
// with an open alert raises nothing, whatever its current value.
func (m *Monitor) Poll(ctx context.Context) {
	start := m.clock.Now()

	m.mu.RLock()
	registered := make([]*registeredMetric, 0, len(m.metrics))
	for _, rm := range m.metrics {
		registered = append(registered, rm)
	}
	m.mu.RUnlock()

	sort.Slice(registered, func(i, j int) bool { return registered[i].name < registered[j].name })

	for _, rm := range registered {
		sample, err := rm.source.Sample(ctx)
		if err != nil {
			m.logger.Warn("metric sampling failed",
				zap.String("metric", rm.name),
				zap.Error(err))
			continue
		}

		class := monitoring.Classify(sample.Value, rm.threshold)
		if class == monitoring.ClassHealthy {
			continue
		}

		m.raiseIfNone(ctx, rm, sample, class)
	}

	m.registry.RecordPoll(ctx, m.clock.Now().Sub(start))
}

// raiseIfNone raises an alert for the metric unless one is already open
func (m *Monitor) raiseIfNone(ctx context.Context, rm *registeredMetric, sample monitoring.MetricSample, class monitoring.Classification) {
	m.mu.Lock()

	if id, open := m.openByMetric[rm.name]; open {
		if alert, ok := m.alerts[id]; ok && alert.IsOpen() {
			m.mu.Unlock()
			return
		}
	}

	severity := monitoring.SeverityFor(class)
	alert := monitoring.NewAlert(rm.name, severity,
		fmt.Sprintf("%s at %.2f breached %s threshold", rm.name, sample.Value, class),
		m.clock.Now())

	m.alerts[alert.ID] = alert
	m.openByMetric[rm.name] = alert.ID
	m.mu.Unlock()

	m.logger.Warn("alert raised",
		zap.String("alert_id", alert.ID.String()),
		zap.String("metric", rm.name),
		zap.String("severity", severity.String()),
		zap.Float64("value", sample.Value))

	m.registry.RecordAlertRaised(ctx, rm.name, severity.String())
	m.deliver(ctx, alert)
}

// deliver pushes the alert to the notifier within a bounded window
func (m *Monitor) deliver(ctx context.Context, alert *monitoring.Alert) {
	if m.notifier == nil {
		return
	}

	deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.DeliveryTimeout)
	defer cancel()

	if err := m.notifier.Deliver(deliveryCtx, alert.Clone()); err != nil {
		m.logger.Error("alert delivery failed",
			zap.String("alert_id", alert.ID.String()),
			zap.Error(err))
	}
}

// Run polls on the configured interval until the context is cancelled
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	m.logger.Info("threshold monitor started",
		zap.Duration("poll_interval", m.config.PollInterval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("threshold monitor stopped")
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Acknowledge marks an alert as acknowledged. Acknowledging an alert
// that is already acknowledged or resolved returns it unchanged.
func (m *Monitor) Acknowledge(ctx context.Context, alertID uuid.UUID) (*monitoring.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[alertID]
	if !ok {
		return nil, errors.ErrAlertNotFound
	}

	if alert.Acknowledge(m.clock.Now()) {
		m.logger.Info("alert acknowledged",
			zap.String("alert_id", alertID.String()),
			zap.String("metric", alert.MetricName))
	}

	return alert.Clone(), nil
}

// Resolve marks an alert as resolved. Prior acknowledgement is not
// required; resolving an already-resolved alert returns it unchanged.
func (m *Monitor) Resolve(ctx context.Context, alertID uuid.UUID) (*monitoring.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[alertID]
	if !ok {
		return nil, errors.ErrAlertNotFound
	}

	if alert.Resolve(m.clock.Now()) {
		if open, exists := m.openByMetric[alert.MetricName]; exists && open == alertID {
			delete(m.openByMetric, alert.MetricName)
		}

		m.registry.RecordAlertResolved(ctx, alert.MetricName)
		m.logger.Info("alert resolved",
			zap.String("alert_id", alertID.String()),
			zap.String("metric", alert.MetricName))
	}

	return alert.Clone(), nil
}

// Alerts returns a snapshot of the alert list, newest first. The
// presentation layer polls this; nothing pushes to it.
func (m *Monitor) Alerts(unresolvedOnly bool) []*monitoring.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*monitoring.Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if unresolvedOnly && alert.Resolved {
			continue
		}
		out = append(out, alert.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].RaisedAt.After(out[j].RaisedAt)
	})

	return out
}
