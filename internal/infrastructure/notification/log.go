package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/inkwellhq/inkwell-backend/internal/domain/monitoring"
)

// LogNotifier writes alerts to the structured log. It is the default
// channel when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Deliver logs the alert at a level matching its severity
func (n *LogNotifier) Deliver(_ context.Context, alert *monitoring.Alert) error {
	fields := []zap.Field{
		zap.String("alert_id", alert.ID.String()),
		zap.String("metric", alert.MetricName),
		zap.String("severity", alert.Severity.String()),
		zap.Time("raised_at", alert.RaisedAt),
	}

	switch alert.Severity {
	case monitoring.SeverityCritical, monitoring.SeverityError:
		n.logger.Error(alert.Message, fields...)
	case monitoring.SeverityWarning:
		n.logger.Warn(alert.Message, fields...)
	default:
		n.logger.Info(alert.Message, fields...)
	}

	return nil
}
