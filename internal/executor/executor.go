package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/engine"
	"github.com/shaiso/Preflight/internal/poll"
)

// Значения по умолчанию.
const (
	defaultPollInterval = 5 * time.Second
	defaultTaskTimeout  = 5 * time.Minute
)

// DefaultInstructions — шаблон задания для браузерного агента.
//
// Данные шаблона: .PreviewURL и .TestCase (domain.TestCase).
const DefaultInstructions = `Open {{ .PreviewURL }} in the browser and verify the scenario below.

Scenario: {{ .TestCase.Title | trim }}
{{ .TestCase.Description | trim }}

Finish with success only if every expected outcome was observed.`

// TaskService — удалённый сервис браузерной автоматизации.
type TaskService interface {
	// CreateTask создаёт задачу и возвращает её ID.
	CreateTask(ctx context.Context, instructions string) (string, error)

	// GetTask возвращает текущий снимок задачи.
	GetTask(ctx context.Context, id string) (domain.RemoteTask, error)
}

// Metrics получает исходы задач.
type Metrics interface {
	TaskFinished(outcome domain.TaskOutcome, elapsed time.Duration)
}

// Executor выполняет тест-кейсы против preview-окружения.
type Executor struct {
	service        TaskService
	pollInterval   time.Duration
	taskTimeout    time.Duration
	maxConcurrency int
	instructions   *template.Template
	logger         *slog.Logger
	metrics        Metrics
	pollObserver   poll.Observer
}

// Config — конфигурация Executor.
type Config struct {
	// Service — удалённый сервис задач (обязательно).
	Service TaskService

	// PollInterval — интервал опроса статуса задачи (default: 5s).
	PollInterval time.Duration

	// TaskTimeout — максимальное ожидание одной задачи (default: 5m).
	TaskTimeout time.Duration

	// MaxConcurrency — ограничение одновременных задач (0 — без ограничения).
	MaxConcurrency int

	// Instructions — шаблон задания (default: DefaultInstructions).
	Instructions string

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger

	// Metrics (опционально).
	Metrics Metrics

	// PollObserver (опционально) — получает попытки опроса.
	PollObserver poll.Observer
}

// taskData — данные шаблона задания.
type taskData struct {
	PreviewURL string
	TestCase   domain.TestCase
}

// New создаёт Executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Service == nil {
		return nil, ErrNoService
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	taskTimeout := cfg.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}

	source := cfg.Instructions
	if source == "" {
		source = DefaultInstructions
	}
	instructions, err := engine.Parse("instructions", source)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		service:        cfg.Service,
		pollInterval:   pollInterval,
		taskTimeout:    taskTimeout,
		maxConcurrency: max(cfg.MaxConcurrency, 0),
		instructions:   instructions,
		logger:         logger,
		metrics:        cfg.Metrics,
		pollObserver:   cfg.PollObserver,
	}, nil
}

// Run выполняет тест-кейсы и возвращает результаты в порядке входа.
//
// len(результат) == len(cases), результат[i].Title == cases[i].Title.
// Ошибки отдельных задач не возвращаются: они превращаются в fail.
func (e *Executor) Run(ctx context.Context, previewURL string, cases []domain.TestCase) []domain.TestCaseResult {
	executions := e.Execute(ctx, previewURL, cases)

	results := make([]domain.TestCaseResult, len(executions))
	for i := range executions {
		results[i] = executions[i].Result()
	}
	return results
}

// Execute выполняет тест-кейсы и возвращает подробные записи исполнения.
func (e *Executor) Execute(ctx context.Context, previewURL string, cases []domain.TestCase) []domain.TaskExecution {
	executions := make([]domain.TaskExecution, len(cases))
	if len(cases) == 0 {
		return executions
	}

	e.logger.Info("executing test cases",
		"count", len(cases),
		"preview_url", previewURL,
		"max_concurrency", e.maxConcurrency,
	)

	// Ошибки в группу не возвращаются: каждая горутина пишет только свой слот
	var g errgroup.Group
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}

	for i, tc := range cases {
		g.Go(func() error {
			executions[i] = e.runCase(ctx, i, previewURL, tc)
			return nil
		})
	}
	_ = g.Wait()

	passed := 0
	for i := range executions {
		if executions[i].Outcome == domain.TaskOutcomeSucceeded {
			passed++
		}
	}
	e.logger.Info("test cases finished",
		"count", len(cases),
		"passed", passed,
		"failed", len(cases)-passed,
	)

	return executions
}

// runCase выполняет один тест-кейс. Никогда не паникует и не возвращает ошибку.
func (e *Executor) runCase(ctx context.Context, index int, previewURL string, tc domain.TestCase) (exec domain.TaskExecution) {
	exec = domain.TaskExecution{
		Index:     index,
		TestCase:  tc,
		StartedAt: time.Now(),
	}
	logger := e.logger.With("case_index", index, "case_title", tc.Title)

	defer func() {
		if r := recover(); r != nil {
			exec.Outcome = domain.TaskOutcomeFailed
			exec.Error = fmt.Sprintf("%v: %v", ErrTaskPanic, r)
			logger.Error("test case panicked", "panic", r)
		}
		exec.FinishedAt = time.Now()
		if e.metrics != nil {
			e.metrics.TaskFinished(exec.Outcome, exec.Duration())
		}
	}()

	instructions, err := engine.Execute(e.instructions, taskData{PreviewURL: previewURL, TestCase: tc})
	if err != nil {
		return e.fail(logger, exec, "render instructions", err)
	}

	remoteID, err := e.service.CreateTask(ctx, instructions)
	if err != nil {
		return e.fail(logger, exec, "create task", err)
	}
	if remoteID == "" {
		return e.fail(logger, exec, "create task", fmt.Errorf("%w: empty task id", ErrInvalidTask))
	}
	exec.RemoteID = remoteID
	logger = logger.With("task_id", remoteID)
	logger.Debug("remote task created")

	task, err := poll.Until(ctx, poll.Options{
		Name:     "task:" + remoteID,
		Interval: e.pollInterval,
		MaxWait:  e.taskTimeout,
		Logger:   logger,
		Observer: e.pollObserver,
	}, func(ctx context.Context) (domain.RemoteTask, bool, error) {
		exec.Polls++
		task, err := e.service.GetTask(ctx, remoteID)
		if err != nil {
			return task, false, err
		}
		if task.Status == "" {
			return task, false, poll.Abort(fmt.Errorf("%w: task %s has no status", ErrInvalidTask, remoteID))
		}
		logger.Debug("remote task status", "status", task.Status)
		return task, task.IsFinished(), nil
	})

	switch {
	case poll.IsTimeout(err):
		// Локальный отказ: удалённую задачу не отменяем
		exec.Outcome = domain.TaskOutcomeTimedOut
		exec.Error = err.Error()
		logger.Warn("remote task abandoned after timeout",
			"timeout", e.taskTimeout,
			"polls", exec.Polls,
		)
		return exec
	case err != nil:
		return e.fail(logger, exec, "poll task", err)
	}

	exec.Outcome = task.Outcome()
	if exec.Outcome != domain.TaskOutcomeSucceeded {
		exec.Error = fmt.Sprintf("remote task finished with status %s", task.Status)
	}
	logger.Info("test case finished",
		"outcome", exec.Outcome,
		"remote_status", task.Status,
		"polls", exec.Polls,
	)
	return exec
}

// fail помечает тест-кейс как проваленный.
func (e *Executor) fail(logger *slog.Logger, exec domain.TaskExecution, op string, err error) domain.TaskExecution {
	exec.Outcome = domain.TaskOutcomeFailed
	exec.Error = fmt.Sprintf("%s: %v", op, err)

	level := slog.LevelError
	if errors.Is(err, context.Canceled) || errors.Is(err, poll.ErrCancelled) {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "test case failed", "operation", op, "error", err)
	return exec
}
