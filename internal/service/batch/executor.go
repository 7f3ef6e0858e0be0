package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/batch"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
	"github.com/inkwellhq/inkwell-backend/internal/metrics"
	auditsvc "github.com/inkwellhq/inkwell-backend/internal/service/audit"
)

// Operation is the injected per-item mutation. It must be safe to call
// concurrently when a batch runs with more than one worker. A dry run is
// a caller-supplied no-op operation; the executor has no dry-run mode.
type Operation func(ctx context.Context, targetID string) (*batch.Payload, error)

// Options controls one batch execution.
//
// StopOnFirstFailure inverts the continue-on-error contract: the zero
// value continues past item failures, which is the default behavior.
type Options struct {
	// StopOnFirstFailure marks all remaining items Skipped after the
	// first item failure and returns immediately.
	StopOnFirstFailure bool

	// MaxConcurrency bounds the worker pool. 0 and 1 both mean fully
	// sequential execution, which is the correctness baseline.
	MaxConcurrency int

	// PerItemTimeout bounds each operation invocation. 0 disables the
	// bound. A timed-out item is recorded as a failure.
	PerItemTimeout time.Duration

	// Audit attribution for every item outcome
	Action       audit.Action
	ResourceType audit.ResourceType
	ActorID      string
	SourceIP     string
}

// Executor runs one administrative operation across a target set,
// isolating per-item failures so one bad record cannot abort the batch.
// It owns no persisted state: it orchestrates the injected operation and
// feeds every outcome into the audit recorder.
type Executor struct {
	recorder *auditsvc.Recorder
	clock    audit.Clock
	logger   *zap.Logger
	registry *metrics.Registry

	batchesExecuted int64
}

// NewExecutor creates a batch executor
func NewExecutor(recorder *auditsvc.Recorder, clock audit.Clock, logger *zap.Logger, registry *metrics.Registry) *Executor {
	return &Executor{
		recorder: recorder,
		clock:    clock,
		logger:   logger,
		registry: registry,
	}
}

// Execute runs the operation over every target and returns the per-item
// result list in input order.
//
// Duplicate target IDs are processed once per occurrence; operations are
// expected to be idempotent or callers must pre-filter.
//
// Cancellation is cooperative: items already dispatched complete,
// undispatched items are marked Skipped. The count invariant
// (success+fail+skipped == total) holds in every case.
func (e *Executor) Execute(ctx context.Context, targets []string, op Operation, opts Options) (*batch.OperationResult, error) {
	if len(targets) == 0 {
		return nil, errors.ErrEmptyTargets
	}
	if opts.MaxConcurrency < 0 {
		return nil, errors.NewConfigurationError("INVALID_CONCURRENCY",
			fmt.Sprintf("maxConcurrency cannot be negative: %d", opts.MaxConcurrency))
	}
	if op == nil {
		return nil, errors.NewConfigurationError("MISSING_OPERATION",
			"batch operation is required")
	}
	if !opts.Action.IsValid() {
		return nil, errors.NewConfigurationError("INVALID_ACTION",
			"batch options must name a valid action")
	}
	if !opts.ResourceType.IsValid() {
		return nil, errors.NewConfigurationError("INVALID_RESOURCE_TYPE",
			"batch options must name a valid resource type")
	}

	concurrency := opts.MaxConcurrency
	if concurrency == 0 {
		concurrency = 1
	}

	correlationID := uuid.New()
	start := e.clock.Now()
	builder := batch.NewResultBuilder(len(targets), correlationID, start)

	logger := e.logger.With(
		zap.String("correlation_id", correlationID.String()),
		zap.String("action", opts.Action.String()),
		zap.Int("target_count", len(targets)))

	logger.Info("batch execution started",
		zap.Int("max_concurrency", concurrency),
		zap.Duration("per_item_timeout", opts.PerItemTimeout))

	if concurrency == 1 {
		e.runSequential(ctx, targets, op, opts, builder)
	} else {
		e.runConcurrent(ctx, targets, op, opts, builder, concurrency)
	}

	result, err := builder.Build(e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.recordAudit(ctx, result, opts, logger)

	atomic.AddInt64(&e.batchesExecuted, 1)
	e.registry.RecordBatch(ctx, opts.Action.String(), result.Duration, result.TotalCount, result.FailCount)

	logger.Info("batch execution finished",
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// BatchesExecuted reports the number of completed batches. Used as a
// monitor metric source.
func (e *Executor) BatchesExecuted() int64 {
	return atomic.LoadInt64(&e.batchesExecuted)
}

func (e *Executor) runSequential(ctx context.Context, targets []string, op Operation, opts Options, builder *batch.ResultBuilder) {
	stopped := false

	for i, targetID := range targets {
		if stopped || ctx.Err() != nil {
			builder.SetSkipped(i, targetID)
			continue
		}

		payload, err := e.runItem(ctx, op, targetID, opts.PerItemTimeout)
		if err != nil {
			builder.SetFailure(i, targetID, err.Error())
			if opts.StopOnFirstFailure {
				stopped = true
			}
			continue
		}

		builder.SetSuccess(i, targetID, payload)
	}
}

func (e *Executor) runConcurrent(ctx context.Context, targets []string, op Operation, opts Options, builder *batch.ResultBuilder, concurrency int) {
	var (
		wg      sync.WaitGroup
		stopped atomic.Bool
		mu      sync.Mutex // guards builder writes from workers
	)
	sem := make(chan struct{}, concurrency)

	for i, targetID := range targets {
		if stopped.Load() || ctx.Err() != nil {
			mu.Lock()
			builder.SetSkipped(i, targetID)
			mu.Unlock()
			continue
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(index int, id string) {
			defer wg.Done()
			defer func() { <-sem }()

			payload, err := e.runItem(ctx, op, id, opts.PerItemTimeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				builder.SetFailure(index, id, err.Error())
				if opts.StopOnFirstFailure {
					stopped.Store(true)
				}
				return
			}
			builder.SetSuccess(index, id, payload)
		}(i, targetID)
	}

	wg.Wait()
}

// runItem invokes the operation with panic isolation and an optional
// bounded timeout. Once dispatched an item always completes in its own
// goroutine; the executor stops waiting after the timeout.
func (e *Executor) runItem(ctx context.Context, op Operation, targetID string, timeout time.Duration) (*batch.Payload, error) {
	itemCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		payload *batch.Payload
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("operation panic: %v", r)}
			}
		}()
		payload, err := op(itemCtx, targetID)
		done <- outcome{payload: payload, err: err}
	}()

	if timeout > 0 {
		select {
		case out := <-done:
			return out.payload, out.err
		case <-itemCtx.Done():
			// The parent context closing fires the same channel as the
			// per-item deadline; a cancelled batch is not a timeout
			if itemCtx.Err() == context.Canceled {
				return nil, fmt.Errorf("operation canceled before completion")
			}
			return nil, fmt.Errorf("operation timed out after %s", timeout)
		}
	}

	out := <-done
	return out.payload, out.err
}

// recordAudit appends one entry per attempted item, all sharing the
// batch's correlation id. Skipped items were never attempted and produce
// no entry. An audit write failure degrades the result (flagged and
// logged) but never discards it.
func (e *Executor) recordAudit(ctx context.Context, result *batch.OperationResult, opts Options, logger *zap.Logger) {
	drafts := make([]audit.Draft, 0, len(result.ItemResults))

	for _, item := range result.ItemResults {
		if item.Skipped {
			continue
		}

		draft := audit.Draft{
			ActorID:       opts.ActorID,
			Action:        opts.Action,
			ResourceType:  opts.ResourceType,
			ResourceID:    item.TargetID,
			SourceIP:      opts.SourceIP,
			CorrelationID: result.CorrelationID,
			ExtraFlags:    []audit.ComplianceFlag{audit.FlagBulkOperation},
		}

		if item.Success {
			draft.Outcome = audit.OutcomeSuccess
		} else {
			draft.Outcome = audit.OutcomeFailure
			draft.ErrorMessage = item.Error
		}

		drafts = append(drafts, draft)
	}

	if len(drafts) == 0 {
		return
	}

	// A cancelled batch still audits its attempted items; the write gets
	// its own bounded lifetime.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := e.recorder.RecordBatch(auditCtx, drafts); err != nil {
		result.AuditDegraded = true
		e.registry.RecordAuditWrite(auditCtx, 0, true)
		logger.Error("audit recording degraded, batch result unaffected",
			zap.Int("entry_count", len(drafts)),
			zap.Error(err))
		return
	}

	e.registry.RecordAuditWrite(auditCtx, len(drafts), false)
}
