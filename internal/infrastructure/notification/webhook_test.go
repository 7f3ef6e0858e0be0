package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
	"github.com/inkwellhq/inkwell-backend/internal/domain/monitoring"
)

func testAlert() *monitoring.Alert {
	return monitoring.NewAlert(
		"CpuUsage",
		monitoring.SeverityCritical,
		"CpuUsage at 92.00 breached critical threshold",
		time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	)
}

func TestWebhookNotifier_Deliver(t *testing.T) {
	var received atomic.Int32
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{
		URL:           srv.URL,
		RatePerSecond: 100,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	alert := testAlert()
	require.NoError(t, notifier.Deliver(context.Background(), alert))
	assert.Equal(t, int32(1), received.Load())

	var decoded monitoring.Alert
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, alert.ID, decoded.ID)
	assert.Equal(t, "CpuUsage", decoded.MetricName)
	assert.Equal(t, monitoring.SeverityCritical, decoded.Severity)
}

func TestWebhookNotifier_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{
		URL:           srv.URL,
		RatePerSecond: 100,
	}, nil)
	require.NoError(t, err)

	err = notifier.Deliver(context.Background(), testAlert())
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeExternal, appErr.Type)
}

func TestWebhookNotifier_RateLimitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// One token per minute: the first delivery consumes the burst, the
	// second has to wait and should abort when the context expires.
	notifier, err := NewWebhookNotifier(WebhookConfig{
		URL:           srv.URL,
		RatePerSecond: 1.0 / 60.0,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, notifier.Deliver(context.Background(), testAlert()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = notifier.Deliver(ctx, testAlert())
	assert.Error(t, err)
}

func TestNewWebhookNotifier_Validation(t *testing.T) {
	_, err := NewWebhookNotifier(WebhookConfig{URL: "", RatePerSecond: 1}, nil)
	assert.Error(t, err)

	_, err = NewWebhookNotifier(WebhookConfig{URL: "http://localhost:9", RatePerSecond: 0}, nil)
	assert.Error(t, err)
}

func TestLogNotifier_Deliver(t *testing.T) {
	notifier := NewLogNotifier(zaptest.NewLogger(t))
	assert.NoError(t, notifier.Deliver(context.Background(), testAlert()))
}
