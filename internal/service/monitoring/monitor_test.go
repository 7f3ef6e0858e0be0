package monitoring

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
	"github.com/inkwellhq/inkwell-backend/internal/domain/monitoring"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type stubSource struct {
	mu    sync.Mutex
	value float64
	err   error
}

func (s *stubSource) set(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

func (s *stubSource) Sample(context.Context) (monitoring.MetricSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return monitoring.MetricSample{}, s.err
	}
	return monitoring.MetricSample{Name: "stub", Value: s.value, Timestamp: time.Now()}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	delivered []*monitoring.Alert
}

func (n *recordingNotifier) Deliver(_ context.Context, alert *monitoring.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, alert)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

func newMonitorForTest(t *testing.T) (*Monitor, *stubClock, *recordingNotifier) {
	t.Helper()
	clock := &stubClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	monitor := NewMonitor(clock, zap.NewNop(), notifier, nil, DefaultMonitorConfig())
	return monitor, clock, notifier
}

func TestMonitor_Poll_RaisesCriticalAlert(t *testing.T) {
	monitor, _, notifier := newMonitorForTest(t)
	ctx := context.Background()

	// CpuUsage at 92 against {warning:70, critical:90}
	source := &stubSource{value: 92}
	require.NoError(t, monitor.RegisterMetric("CpuUsage", source,
		monitoring.Threshold{Warning: 70, Critical: 90}))

	monitor.Poll(ctx)

	alerts := monitor.Alerts(true)
	require.Len(t, alerts, 1)
	assert.Equal(t, "CpuUsage", alerts[0].MetricName)
	assert.Equal(t, monitoring.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, 1, notifier.count())

	// A second poll at 93 with the alert still open raises no duplicate
	source.set(93)
	monitor.Poll(ctx)

	assert.Len(t, monitor.Alerts(true), 1)
	assert.Equal(t, 1, notifier.count())
}

func TestMonitor_Poll_HealthyRaisesNothing(t *testing.T) {
	monitor, _, notifier := newMonitorForTest(t)

	require.NoError(t, monitor.RegisterMetric("QueueDepth", &stubSource{value: 10},
		monitoring.Threshold{Warning: 100, Critical: 500}))

	monitor.Poll(context.Background())

	assert.Empty(t, monitor.Alerts(false))
	assert.Zero(t, notifier.count())
}

func TestMonitor_Poll_WarningSeverity(t *testing.T) {
	monitor, _, _ := newMonitorForTest(t)

	require.NoError(t, monitor.RegisterMetric("QueueDepth", &stubSource{value: 150},
		monitoring.Threshold{Warning: 100, Critical: 500}))

	monitor.Poll(context.Background())

	alerts := monitor.Alerts(true)
	require.Len(t, alerts, 1)
	assert.Equal(t, monitoring.SeverityWarning, alerts[0].Severity)
}

func TestMonitor_Poll_SamplingErrorSkipsMetric(t *testing.T) {
	monitor, _, _ := newMonitorForTest(t)

	require.NoError(t, monitor.RegisterMetric("Broken", &stubSource{err: fmt.Errorf("unreachable")},
		monitoring.Threshold{Warning: 1, Critical: 2}))
	require.NoError(t, monitor.RegisterMetric("CpuUsage", &stubSource{value: 95},
		monitoring.Threshold{Warning: 70, Critical: 90}))

	monitor.Poll(context.Background())

	alerts := monitor.Alerts(true)
	require.Len(t, alerts, 1)
	assert.Equal(t, "CpuUsage", alerts[0].MetricName)
}

func TestMonitor_ResolveWithoutAcknowledge(t *testing.T) {
	monitor, _, _ := newMonitorForTest(t)
	ctx := context.Background()

	require.NoError(t, monitor.RegisterMetric("CpuUsage", &stubSource{value: 95},
		monitoring.Threshold{Warning: 70, Critical: 90}))
	monitor.Poll(ctx)

	alerts := monitor.Alerts(true)
	require.Len(t, alerts, 1)

	resolved, err := monitor.Resolve(ctx, alerts[0].ID)
	require.NoError(t, err)

	assert.True(t, resolved.Resolved)
	assert.False(t, resolved.Acknowledged)
	assert.Nil(t, resolved.AcknowledgedAt)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestMonitor_ResolveReopensMetricForNewAlerts(t *testing.T) {
	monitor, _, notifier := newMonitorForTest(t)
	ctx := context.Background()

	source := &stubSource{value: 95}
	require.NoError(t, monitor.RegisterMetric("CpuUsage", source,
		monitoring.Threshold{Warning: 70, Critical: 90}))

	monitor.Poll(ctx)
	first := monitor.Alerts(true)
	require.Len(t, first, 1)

	_, err := monitor.Resolve(ctx, first[0].ID)
	require.NoError(t, err)

	// Condition persists on the next poll: a fresh alert is raised
	monitor.Poll(ctx)

	open := monitor.Alerts(true)
	require.Len(t, open, 1)
	assert.NotEqual(t, first[0].ID, open[0].ID)
	assert.Equal(t, 2, notifier.count())

	// Full history keeps both
	assert.Len(t, monitor.Alerts(false), 2)
}

func TestMonitor_IdempotentOperatorActions(t *testing.T) {
	monitor, _, _ := newMonitorForTest(t)
	ctx := context.Background()

	require.NoError(t, monitor.RegisterMetric("CpuUsage", &stubSource{value: 95},
		monitoring.Threshold{Warning: 70, Critical: 90}))
	monitor.Poll(ctx)

	id := monitor.Alerts(true)[0].ID

	acked, err := monitor.Acknowledge(ctx, id)
	require.NoError(t, err)

	ackedAgain, err := monitor.Acknowledge(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, acked, ackedAgain)

	resolved, err := monitor.Resolve(ctx, id)
	require.NoError(t, err)

	resolvedAgain, err := monitor.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, resolved, resolvedAgain)

	// No transition out of Resolved
	afterResolve, err := monitor.Acknowledge(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, resolved, afterResolve)
}

func TestMonitor_UnknownAlert(t *testing.T) {
	monitor, _, _ := newMonitorForTest(t)

	_, err := monitor.Acknowledge(context.Background(), uuid.New())
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = monitor.Resolve(context.Background(), uuid.New())
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestMonitor_RegisterMetric_Validation(t *testing.T) {
	monitor, _, _ := newMonitorForTest(t)

	err := monitor.RegisterMetric("", &stubSource{}, monitoring.Threshold{Warning: 1, Critical: 2})
	assert.Error(t, err)

	err = monitor.RegisterMetric("x", nil, monitoring.Threshold{Warning: 1, Critical: 2})
	assert.Error(t, err)

	err = monitor.RegisterMetric("x", &stubSource{}, monitoring.Threshold{Warning: 2, Critical: 1})
	assert.Error(t, err)

	require.NoError(t, monitor.RegisterMetric("x", &stubSource{}, monitoring.Threshold{Warning: 1, Critical: 2}))
	err = monitor.RegisterMetric("x", &stubSource{}, monitoring.Threshold{Warning: 1, Critical: 2})
	assert.Error(t, err)
}

func TestPrometheusSource_Sample(t *testing.T) {
	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_admin_queue_depth",
		Help: "Pending moderation queue depth",
	})
	registry.MustRegister(gauge)
	gauge.Set(42)

	source := &PrometheusSource{
		Gatherer:   registry,
		FamilyName: "inkwell_admin_queue_depth",
		Clock:      &stubClock{now: time.Now()},
	}

	sample, err := source.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42.0, sample.Value)
	assert.Equal(t, "inkwell_admin_queue_depth", sample.Name)

	missing := &PrometheusSource{
		Gatherer:   registry,
		FamilyName: "no_such_family",
		Clock:      &stubClock{now: time.Now()},
	}
	_, err = missing.Sample(context.Background())
	assert.Error(t, err)
}
