package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
	"github.com/inkwellhq/inkwell-backend/internal/domain/monitoring"
)

// WebhookNotifier delivers alerts to an HTTP endpoint as JSON. Deliveries
// are rate limited so a flapping metric cannot flood the receiving channel.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// WebhookConfig configures the webhook notifier
type WebhookConfig struct {
	URL           string
	RatePerSecond float64
	Timeout       time.Duration
}

// NewWebhookNotifier creates a notifier posting alerts to cfg.URL
func NewWebhookNotifier(cfg WebhookConfig, logger *zap.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, errors.NewConfigurationError("MISSING_WEBHOOK_URL", "webhook url is required")
	}
	if cfg.RatePerSecond <= 0 {
		return nil, errors.NewConfigurationError("INVALID_RATE", "webhook rate must be positive")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookNotifier{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:  logger,
	}, nil
}

// Deliver posts the alert to the configured endpoint. It waits for a rate
// limiter token first; a cancelled context aborts the wait.
func (n *WebhookNotifier) Deliver(ctx context.Context, alert *monitoring.Alert) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return errors.NewExternalError("webhook", "rate limit wait aborted").WithCause(err)
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return errors.NewInternalError("failed to marshal alert").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return errors.NewInternalError("failed to build webhook request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.NewExternalError("webhook", "alert delivery failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewExternalError("webhook",
			fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}

	n.logger.Debug("alert delivered",
		zap.String("alert_id", alert.ID.String()),
		zap.String("metric", alert.MetricName),
		zap.String("severity", alert.Severity.String()),
	)

	return nil
}
