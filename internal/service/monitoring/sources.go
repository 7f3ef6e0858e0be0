package monitoring

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/monitoring"
)

// GaugeSource adapts a plain sampling function into a MetricSource
type GaugeSource struct {
	Name  string
	Unit  string
	Read  func(ctx context.Context) (float64, error)
	Clock audit.Clock
}

// Sample reads the current value
func (g *GaugeSource) Sample(ctx context.Context) (monitoring.MetricSample, error) {
	value, err := g.Read(ctx)
	if err != nil {
		return monitoring.MetricSample{}, err
	}

	return monitoring.MetricSample{
		Name:      g.Name,
		Value:     value,
		Unit:      g.Unit,
		Timestamp: g.Clock.Now(),
	}, nil
}

// PrometheusSource samples a gauge or counter from a prometheus
// registry, letting the monitor evaluate the same instruments the
// exposition endpoint serves.
type PrometheusSource struct {
	Gatherer   prometheus.Gatherer
	FamilyName string
	Clock      audit.Clock
}

// Sample gathers the metric family and returns the first series' value
func (p *PrometheusSource) Sample(ctx context.Context) (monitoring.MetricSample, error) {
	families, err := p.Gatherer.Gather()
	if err != nil {
		return monitoring.MetricSample{}, fmt.Errorf("gather failed: %w", err)
	}

	for _, family := range families {
		if family.GetName() != p.FamilyName {
			continue
		}

		series := family.GetMetric()
		if len(series) == 0 {
			break
		}

		value, err := scalarValue(family.GetType(), series[0])
		if err != nil {
			return monitoring.MetricSample{}, err
		}

		return monitoring.MetricSample{
			Name:      p.FamilyName,
			Value:     value,
			Timestamp: p.Clock.Now(),
		}, nil
	}

	return monitoring.MetricSample{}, fmt.Errorf("metric family %s not found", p.FamilyName)
}

func scalarValue(metricType dto.MetricType, m *dto.Metric) (float64, error) {
	switch metricType {
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), nil
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), nil
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue(), nil
	default:
		return 0, fmt.Errorf("unsupported metric type %s", metricType)
	}
}
