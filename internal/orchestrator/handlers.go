package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/mq"
	"github.com/shaiso/Preflight/internal/repo"
	"github.com/shaiso/Preflight/internal/telemetry"
)

// handleValidationRequested обрабатывает validation.requested.
func (o *Orchestrator) handleValidationRequested(ctx context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.ValidationRequestedPayload](msg)
	if err != nil {
		return mq.Permanent(err)
	}

	o.logger.Debug("received validation.requested",
		"run_id", payload.RunID,
		"review_request", payload.ReviewRequest().String(),
	)

	if o.isRunActive(payload.RunID) {
		return nil
	}

	err = o.processRun(ctx, payload.RunID)
	switch {
	case err == nil, isSkippable(err):
		return nil
	case errors.Is(err, ErrRunNotFound):
		return mq.Permanent(err)
	default:
		return err
	}
}

// processRun загружает run и запускает для него pipeline.
func (o *Orchestrator) processRun(ctx context.Context, runID uuid.UUID) error {
	run, err := o.store.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}
	return o.startRun(ctx, run)
}

// startRun переводит run в RUNNING и запускает pipeline в фоне.
func (o *Orchestrator) startRun(ctx context.Context, run *domain.Run) error {
	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	o.mu.RLock()
	base := o.baseCtx
	o.mu.RUnlock()
	if base == nil {
		base = ctx
	}

	runCtx, cancel := context.WithTimeout(base, o.runTimeout)
	state := newRunState(run, cancel)

	if err := o.addActiveRun(state); err != nil {
		cancel()
		return err
	}

	if err := o.store.Claim(ctx, run); err != nil {
		o.removeActiveRun(run.ID)
		cancel()
		if errors.Is(err, repo.ErrInvalidState) {
			return fmt.Errorf("%w: %v", ErrRunNotPending, err)
		}
		return fmt.Errorf("claim run: %w", err)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.removeActiveRun(run.ID)
		defer cancel()
		o.execute(runCtx, run)
	}()

	return nil
}

// execute выполняет pipeline и записывает итог run.
func (o *Orchestrator) execute(ctx context.Context, run *domain.Run) {
	logger := telemetry.WithReviewRequest(telemetry.WithRunID(o.logger, run.ID.String()), run.ReviewRequest.String())

	logger.Info("run started")

	summary, err := o.validator.Validate(ctx, run.ReviewRequest)
	if err != nil {
		run.MarkFailed(err.Error())
		logger.Error("run failed", "error", err, "duration", run.Duration())
	} else {
		run.MarkSucceeded(summary)
		logger.Info("run finished",
			"success", summary.Success,
			"needs_testing", summary.NeedsTesting,
			"passed", summary.Passed(),
			"total", len(summary.TestCases),
			"duration", run.Duration(),
		)
	}

	// Итог записывается и после отмены ctx (shutdown, таймаут run)
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := o.store.Update(saveCtx, run); err != nil {
		logger.Error("failed to record run result", "status", run.Status, "error", err)
	}
}

// isSkippable — ошибки, означающие, что run уже обрабатывается кем-то.
func isSkippable(err error) bool {
	return errors.Is(err, ErrRunNotPending) ||
		errors.Is(err, ErrRunAlreadyActive) ||
		errors.Is(err, ErrOrchestratorStopped)
}
