package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
	domainmonitoring "github.com/inkwellhq/inkwell-backend/internal/domain/monitoring"
	"github.com/inkwellhq/inkwell-backend/internal/infrastructure/cache"
	"github.com/inkwellhq/inkwell-backend/internal/infrastructure/config"
	"github.com/inkwellhq/inkwell-backend/internal/infrastructure/notification"
	"github.com/inkwellhq/inkwell-backend/internal/infrastructure/repository"
	"github.com/inkwellhq/inkwell-backend/internal/infrastructure/telemetry"
	"github.com/inkwellhq/inkwell-backend/internal/metrics"
	auditsvc "github.com/inkwellhq/inkwell-backend/internal/service/audit"
	batchsvc "github.com/inkwellhq/inkwell-backend/internal/service/batch"
	monitorsvc "github.com/inkwellhq/inkwell-backend/internal/service/monitoring"
	"github.com/inkwellhq/inkwell-backend/internal/service/stats"
)

func main() {
	var metricsAddr = flag.String("metrics-addr", ":9090", "Prometheus scrape endpoint address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	telConfig := telemetry.DefaultConfig()
	telConfig.ServiceVersion = cfg.Version
	telConfig.Environment = cfg.Environment

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telConfig)
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	clock := audit.SystemClock{}

	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize audit storage", zap.Error(err))
	}
	defer cleanup()

	registry, err := metrics.NewRegistry()
	if err != nil {
		logger.Fatal("failed to create metrics registry", zap.Error(err))
	}

	recorder := auditsvc.NewRecorder(repo, clock, logger, auditsvc.RecorderConfig{
		RiskWindow:       cfg.Admin.RiskWindow,
		SensitiveActions: parseActions(cfg.Admin.SensitiveActions, logger),
	})

	statsStore := buildStatsStore(cfg, logger)

	aggregator := warmStartAggregator(ctx, cfg, clock, repo, statsStore, recorder.SensitivityPolicy(), logger)
	recorder.Subscribe(aggregator.Observe)

	executor := batchsvc.NewExecutor(recorder, clock, logger, registry)

	notifier := buildNotifier(cfg, logger)
	monitor := monitorsvc.NewMonitor(clock, logger, notifier, registry, monitorsvc.MonitorConfig{
		PollInterval: cfg.Admin.PollInterval,
	})
	registerMonitorMetrics(monitor, cfg, clock, logger)

	go monitor.Run(ctx)
	go runSampler(ctx, cfg, clock, aggregator, executor, statsStore, logger)

	// Serve the Prometheus scrape endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	srv := &http.Server{Addr: *metricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("admin engine started",
		zap.String("environment", cfg.Environment),
		zap.String("metrics_addr", *metricsAddr),
		zap.Duration("poll_interval", cfg.Admin.PollInterval),
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("metrics server failed", zap.Error(err))
	}

	logger.Info("admin engine stopped")
}

// buildRepository selects Postgres storage when a database URL is
// configured and falls back to in-memory storage otherwise.
func buildRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (audit.EntryRepository, func(), error) {
	if cfg.Database.URL == "" {
		logger.Warn("no database configured, using in-memory audit storage")
		return repository.NewInMemoryAuditRepository(), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, err
	}

	return repository.NewAuditRepository(pool), pool.Close, nil
}

// warmStartAggregator restores statistics across restarts. The latest
// snapshot is preferred; a miss, a corrupt snapshot, or no snapshot
// store at all falls back to replaying the audit log over the retention
// window. Only when the replay itself fails does the engine start
// counting from zero.
func warmStartAggregator(ctx context.Context, cfg *config.Config, clock audit.Clock, repo audit.EntryRepository, store audit.StatsStore, policy audit.SensitivityPolicy, logger *zap.Logger) *stats.Aggregator {
	if store != nil {
		snap, err := store.LoadSnapshot(ctx)
		if err == nil {
			logger.Info("statistics warm-started from snapshot",
				zap.Time("generated_at", snap.GeneratedAt),
				zap.Int64("total_count", snap.TotalCount))
			return stats.FromSnapshot(snap, cfg.Admin.TopK, clock, policy)
		}
		if !errors.IsType(err, errors.ErrorTypeNotFound) {
			logger.Warn("statistics snapshot load failed", zap.Error(err))
		}
	}

	now := clock.Now()
	window := audit.DateRange{From: now.Add(-cfg.Admin.RetentionWindow), To: now}

	aggregator, err := stats.Rebuild(ctx, repo, window, cfg.Admin.TopK, clock, policy)
	if err != nil {
		logger.Warn("audit log replay failed, starting with empty statistics", zap.Error(err))
		return stats.NewAggregator(cfg.Admin.TopK, clock, policy)
	}

	logger.Info("statistics rebuilt from audit log",
		zap.Time("window_from", window.From))
	return aggregator
}

// buildStatsStore wires the Redis snapshot store when Redis is configured
func buildStatsStore(cfg *config.Config, logger *zap.Logger) audit.StatsStore {
	if cfg.Redis.URL == "" {
		logger.Warn("no redis configured, statistics snapshots disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store, err := cache.NewStatsCache(client, logger, cfg.Admin.RetentionWindow)
	if err != nil {
		logger.Warn("failed to create stats cache, snapshots disabled", zap.Error(err))
		return nil
	}
	return store
}

// buildNotifier prefers the webhook channel and falls back to the log
func buildNotifier(cfg *config.Config, logger *zap.Logger) monitorsvc.Notifier {
	if cfg.Admin.Notification.WebhookURL == "" {
		return notification.NewLogNotifier(logger)
	}

	webhook, err := notification.NewWebhookNotifier(notification.WebhookConfig{
		URL:           cfg.Admin.Notification.WebhookURL,
		RatePerSecond: cfg.Admin.Notification.RatePerSecond,
	}, logger)
	if err != nil {
		logger.Warn("failed to create webhook notifier, falling back to log", zap.Error(err))
		return notification.NewLogNotifier(logger)
	}
	return webhook
}

// registerMonitorMetrics binds each configured threshold to a metric
// source. Gauges exported on /metrics are sampled back through the
// default prometheus gatherer; unrecognized names are skipped.
func registerMonitorMetrics(monitor *monitorsvc.Monitor, cfg *config.Config, clock audit.Clock, logger *zap.Logger) {
	for name, t := range cfg.Admin.Thresholds {
		source, ok := sourceFor(name, clock)
		if !ok {
			logger.Warn("no metric source for configured threshold, skipping",
				zap.String("metric", name))
			continue
		}

		threshold := domainmonitoring.Threshold{Warning: t.Warning, Critical: t.Critical}
		if err := monitor.RegisterMetric(name, source, threshold); err != nil {
			logger.Warn("failed to register metric",
				zap.String("metric", name),
				zap.Error(err))
		}
	}
}

func sourceFor(name string, clock audit.Clock) (monitorsvc.MetricSource, bool) {
	switch name {
	case "BatchFailRate":
		return &monitorsvc.PrometheusSource{
			Gatherer:   prometheus.DefaultGatherer,
			FamilyName: "inkwell_admin_batch_failure_rate",
			Clock:      clock,
		}, true
	case "HighRiskEntries":
		return &monitorsvc.PrometheusSource{
			Gatherer:   prometheus.DefaultGatherer,
			FamilyName: "inkwell_admin_audit_high_risk_total",
			Clock:      clock,
		}, true
	case "MemoryUsage":
		return &monitorsvc.GaugeSource{
			Name: name,
			Unit: "MiB",
			Read: func(ctx context.Context) (float64, error) {
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				return float64(ms.HeapAlloc) / (1 << 20), nil
			},
			Clock: clock,
		}, true
	case "CpuUsage":
		return &monitorsvc.GaugeSource{
			Name: name,
			Unit: "goroutines",
			Read: func(ctx context.Context) (float64, error) {
				return float64(runtime.NumGoroutine()), nil
			},
			Clock: clock,
		}, true
	default:
		return nil, false
	}
}

// runSampler periodically refreshes the exported gauges from the
// statistics window and persists a snapshot for warm restarts.
func runSampler(ctx context.Context, cfg *config.Config, clock audit.Clock, aggregator *stats.Aggregator, executor *batchsvc.Executor, store audit.StatsStore, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.Admin.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := clock.Now()
			window := audit.DateRange{From: now.Add(-cfg.Admin.RetentionWindow), To: now}
			snapshot := aggregator.Snapshot(window)

			UpdateStatsGauges(snapshot.TotalCount, snapshot.FailureCount, snapshot.HighRiskCount)
			UpdateBatchesExecuted(executor.BatchesExecuted())

			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			UpdateHeapGauge(ms.HeapAlloc)

			if store != nil {
				if err := store.SaveSnapshot(ctx, snapshot); err != nil {
					logger.Warn("failed to persist statistics snapshot", zap.Error(err))
				}
			}
		}
	}
}

// parseActions converts configured action names, dropping invalid ones
func parseActions(names []string, logger *zap.Logger) []audit.Action {
	actions := make([]audit.Action, 0, len(names))
	for _, name := range names {
		action, err := audit.NewAction(name)
		if err != nil {
			logger.Warn("ignoring invalid sensitive action", zap.String("action", name))
			continue
		}
		actions = append(actions, action)
	}
	return actions
}
