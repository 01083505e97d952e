package engine

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"
)

// Status — итог выполнения шага или всего pipeline.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusTerminated Status = "terminated"
	StatusFailed     Status = "failed"
)

// Observer получает события выполнения pipeline (метрики).
type Observer interface {
	StageFinished(pipeline, stageID string, status Status, elapsed time.Duration)
	RunFinished(pipeline string, status Status, elapsed time.Duration)
}

// Pipeline — упорядоченная цепочка шагов с общим контекстом.
//
// Шаги выполняются строго последовательно: шаг N+1 не начинается,
// пока выход шага N не проверен и не записан в контекст.
// Ошибка любого шага прерывает pipeline без отката уже выполненных
// побочных эффектов.
type Pipeline struct {
	name     string
	stages   []Stage
	logger   *slog.Logger
	observer Observer
}

// Config — конфигурация Pipeline.
type Config struct {
	// Name — имя pipeline (для логов и метрик).
	Name string

	// Stages — шаги в порядке выполнения.
	Stages []Stage

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger

	// Observer (опционально).
	Observer Observer
}

// Result — итог выполнения pipeline.
type Result struct {
	// Output — выход последнего шага или final из Terminate.
	Output any

	// Terminated — pipeline остановлен через Terminate.
	Terminated bool

	// TerminatedBy — ID шага, который вернул Terminate.
	TerminatedBy string

	// Context — контекст с результатами выполненных шагов.
	Context *Context
}

// New создаёт Pipeline и проверяет ID шагов.
func New(cfg Config) (*Pipeline, error) {
	if len(cfg.Stages) == 0 {
		return nil, ErrEmptySteps
	}

	seen := make(map[string]bool, len(cfg.Stages))
	for i, stage := range cfg.Stages {
		if stage == nil || isNilPointer(stage) {
			return nil, fmt.Errorf("%w at position %d", ErrNilStep, i)
		}
		id := stage.ID()
		if id == "" {
			return nil, fmt.Errorf("%w at position %d", ErrEmptyStepID, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStepID, id)
		}
		seen[id] = true
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		name:     cfg.Name,
		stages:   cfg.Stages,
		logger:   logger,
		observer: cfg.Observer,
	}, nil
}

// Name возвращает имя pipeline.
func (p *Pipeline) Name() string {
	return p.name
}

// StageIDs возвращает ID шагов в порядке выполнения.
func (p *Pipeline) StageIDs() []string {
	ids := make([]string, len(p.stages))
	for i, s := range p.stages {
		ids[i] = s.ID()
	}
	return ids
}

// Run выполняет pipeline с initiation payload.
func (p *Pipeline) Run(ctx context.Context, payload any) (*Result, error) {
	pc := NewContext(payload)
	logger := p.logger.With("pipeline", p.name)
	runStart := time.Now()

	current := payload
	for _, stage := range p.stages {
		stageID := stage.ID()

		if err := ctx.Err(); err != nil {
			p.runFinished(StatusFailed, runStart)
			return nil, &StepError{StepID: stageID, Err: fmt.Errorf("%w: %v", ErrPipelineCancelled, err)}
		}

		logger.Debug("step started", "step_id", stageID)
		start := time.Now()

		outcome, err := stage.Run(ctx, current, pc)
		elapsed := time.Since(start)

		if err != nil {
			p.stageFinished(stageID, StatusFailed, elapsed)
			p.runFinished(StatusFailed, runStart)
			logger.Error("step failed",
				"step_id", stageID,
				"duration", elapsed,
				"error", err,
			)
			return nil, &StepError{StepID: stageID, Err: err}
		}

		if outcome.Terminal() {
			p.stageFinished(stageID, StatusTerminated, elapsed)
			p.runFinished(StatusTerminated, runStart)
			logger.Info("pipeline terminated early",
				"step_id", stageID,
				"duration", time.Since(runStart),
			)
			return &Result{
				Output:       outcome.Value(),
				Terminated:   true,
				TerminatedBy: stageID,
				Context:      pc,
			}, nil
		}

		if err := pc.record(stageID, outcome.Value()); err != nil {
			p.stageFinished(stageID, StatusFailed, elapsed)
			p.runFinished(StatusFailed, runStart)
			return nil, &StepError{StepID: stageID, Err: err}
		}

		p.stageFinished(stageID, StatusCompleted, elapsed)
		logger.Debug("step completed", "step_id", stageID, "duration", elapsed)

		current = outcome.Value()
	}

	p.runFinished(StatusCompleted, runStart)
	logger.Info("pipeline completed", "duration", time.Since(runStart))

	return &Result{Output: current, Context: pc}, nil
}

func (p *Pipeline) stageFinished(stageID string, status Status, elapsed time.Duration) {
	if p.observer != nil {
		p.observer.StageFinished(p.name, stageID, status, elapsed)
	}
}

func (p *Pipeline) runFinished(status Status, start time.Time) {
	if p.observer != nil {
		p.observer.RunFinished(p.name, status, time.Since(start))
	}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// OutputAs возвращает итог pipeline, приведённый к типу T.
func OutputAs[T any](r *Result) (T, error) {
	typed, ok := r.Output.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: pipeline output is %T, not %s",
			ErrContractViolation, r.Output, reflect.TypeFor[T]())
	}
	return typed, nil
}
