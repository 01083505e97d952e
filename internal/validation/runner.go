package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/engine"
	"github.com/shaiso/Preflight/internal/planner"
	"github.com/shaiso/Preflight/internal/report"
)

// PipelineName — имя pipeline в логах и метриках.
const PipelineName = "validation"

// ID шагов pipeline.
const (
	StepGeneratePlan     = "generate-plan"
	StepPublishPlan      = "publish-plan"
	StepWaitPreview      = "wait-preview"
	StepPrepareExecution = "prepare-execution"
	StepExecuteTests     = "execute-tests"
	StepPublishReport    = "publish-report"
)

// ErrResultMismatch — результаты не соответствуют тест-кейсам один к одному.
var ErrResultMismatch = errors.New("test results do not match test cases")

// CommentPublisher публикует комментарии к review request.
type CommentPublisher interface {
	PostComment(ctx context.Context, ref domain.ReviewRequest, body string) (*domain.Comment, error)
}

// PreviewWaiter ждёт preview-окружение.
type PreviewWaiter interface {
	Wait(ctx context.Context, ref domain.ReviewRequest) (domain.PreviewEnvironment, error)
}

// TestExecutor выполняет тест-кейсы против preview.
type TestExecutor interface {
	Run(ctx context.Context, previewURL string, cases []domain.TestCase) []domain.TestCaseResult
}

// ExecutionRequest — вход шага execute-tests.
type ExecutionRequest struct {
	PreviewURL string
	TestCases  []domain.TestCase
}

// Report — подробный итог проверки.
type Report struct {
	// Summary — итог pipeline (bail payload или результат publish-report).
	Summary domain.Summary

	// Plan — сгенерированный план.
	Plan domain.TestPlan

	// Preview — найденное окружение (пусто, если до него не дошли).
	Preview domain.PreviewEnvironment

	// Bailed — pipeline завершён через bail.
	Bailed bool
}

// Runner выполняет проверку review request.
type Runner struct {
	pipeline *engine.Pipeline
	logger   *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	Generator planner.Generator
	Comments  CommentPublisher
	Preview   PreviewWaiter
	Executor  TestExecutor

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger

	// Observer (опционально) — метрики pipeline.
	Observer engine.Observer
}

// New собирает pipeline.
func New(cfg Config) (*Runner, error) {
	switch {
	case cfg.Generator == nil:
		return nil, errors.New("validation: generator is required")
	case cfg.Comments == nil:
		return nil, errors.New("validation: comment publisher is required")
	case cfg.Preview == nil:
		return nil, errors.New("validation: preview waiter is required")
	case cfg.Executor == nil:
		return nil, errors.New("validation: test executor is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p, err := engine.New(engine.Config{
		Name: PipelineName,
		Stages: []engine.Stage{
			generatePlan(cfg.Generator),
			publishPlan(cfg.Comments),
			waitPreview(cfg.Preview),
			prepareExecution(),
			executeTests(cfg.Executor),
			publishReport(cfg.Comments),
		},
		Logger:   logger,
		Observer: cfg.Observer,
	})
	if err != nil {
		return nil, err
	}

	return &Runner{pipeline: p, logger: logger}, nil
}

// Validate проверяет review request и возвращает итог.
func (r *Runner) Validate(ctx context.Context, ref domain.ReviewRequest) (domain.Summary, error) {
	rep, err := r.Run(ctx, ref)
	if err != nil {
		return domain.Summary{}, err
	}
	return rep.Summary, nil
}

// Run проверяет review request и возвращает подробный итог.
func (r *Runner) Run(ctx context.Context, ref domain.ReviewRequest) (*Report, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	res, err := r.pipeline.Run(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", ref, err)
	}

	summary, err := engine.OutputAs[domain.Summary](res)
	if err != nil {
		return nil, err
	}

	rep := &Report{Summary: summary, Bailed: res.Terminated}
	if plan, err := engine.Lookup[domain.TestPlan](res.Context, StepGeneratePlan); err == nil {
		rep.Plan = plan
	}
	if env, err := engine.Lookup[domain.PreviewEnvironment](res.Context, StepWaitPreview); err == nil {
		rep.Preview = env
	}
	return rep, nil
}

func generatePlan(gen planner.Generator) engine.Stage {
	return engine.NewStep(StepGeneratePlan,
		func(ctx context.Context, ref domain.ReviewRequest, _ *engine.Context) (engine.StepResult[domain.TestPlan], error) {
			plan, err := gen.Generate(ctx, ref)
			if err != nil {
				return engine.StepResult[domain.TestPlan]{}, err
			}
			return engine.Next(plan), nil
		})
}

func publishPlan(comments CommentPublisher) engine.Stage {
	return engine.NewStep(StepPublishPlan,
		func(ctx context.Context, plan domain.TestPlan, pc *engine.Context) (engine.StepResult[domain.TestPlan], error) {
			ref, err := engine.PayloadAs[domain.ReviewRequest](pc)
			if err != nil {
				return engine.StepResult[domain.TestPlan]{}, err
			}

			if _, err := comments.PostComment(ctx, ref, report.PlanComment(plan)); err != nil {
				return engine.StepResult[domain.TestPlan]{}, err
			}

			if !plan.NeedsTesting {
				return engine.Bail[domain.TestPlan](domain.NoTestingSummary()), nil
			}
			return engine.Next(plan), nil
		})
}

func waitPreview(waiter PreviewWaiter) engine.Stage {
	return engine.NewStep(StepWaitPreview,
		func(ctx context.Context, _ domain.TestPlan, pc *engine.Context) (engine.StepResult[domain.PreviewEnvironment], error) {
			ref, err := engine.PayloadAs[domain.ReviewRequest](pc)
			if err != nil {
				return engine.StepResult[domain.PreviewEnvironment]{}, err
			}

			env, err := waiter.Wait(ctx, ref)
			if err != nil {
				return engine.StepResult[domain.PreviewEnvironment]{}, err
			}
			return engine.Next(env), nil
		})
}

func prepareExecution() engine.Stage {
	return engine.Map(StepPrepareExecution,
		func(env domain.PreviewEnvironment, pc *engine.Context) ExecutionRequest {
			plan, err := engine.Lookup[domain.TestPlan](pc, StepGeneratePlan)
			if err != nil {
				panic(err)
			}
			return ExecutionRequest{PreviewURL: env.PreviewURL, TestCases: plan.TestCases}
		})
}

func executeTests(executor TestExecutor) engine.Stage {
	return engine.NewStep(StepExecuteTests,
		func(ctx context.Context, req ExecutionRequest, _ *engine.Context) (engine.StepResult[TestResults], error) {
			out := TestResults{TestCases: req.TestCases, Results: []domain.TestCaseResult{}}
			if len(req.TestCases) > 0 {
				out.Results = executor.Run(ctx, req.PreviewURL, req.TestCases)
			}
			return engine.Next(out), nil
		})
}

func publishReport(comments CommentPublisher) engine.Stage {
	return engine.NewStep(StepPublishReport,
		func(ctx context.Context, tr TestResults, pc *engine.Context) (engine.StepResult[domain.Summary], error) {
			ref, err := engine.PayloadAs[domain.ReviewRequest](pc)
			if err != nil {
				return engine.StepResult[domain.Summary]{}, err
			}

			if _, err := comments.PostComment(ctx, ref, report.TestReportComment(tr.Results)); err != nil {
				return engine.StepResult[domain.Summary]{}, err
			}
			return engine.Next(domain.NewSummary(tr.Results)), nil
		})
}

// TestResults — выход шага execute-tests.
type TestResults struct {
	TestCases []domain.TestCase
	Results   []domain.TestCaseResult
}

// Validate проверяет, что результаты соответствуют тест-кейсам по порядку.
func (r TestResults) Validate() error {
	if len(r.Results) != len(r.TestCases) {
		return fmt.Errorf("%w: %d results for %d cases", ErrResultMismatch, len(r.Results), len(r.TestCases))
	}
	for i := range r.TestCases {
		if r.Results[i].Title != r.TestCases[i].Title {
			return fmt.Errorf("%w: result %d is %q, expected %q",
				ErrResultMismatch, i, r.Results[i].Title, r.TestCases[i].Title)
		}
		if !slices.Contains(validStatuses, r.Results[i].Status) {
			return fmt.Errorf("%w: result %d has status %q", ErrResultMismatch, i, r.Results[i].Status)
		}
	}
	return nil
}

var validStatuses = []domain.TestStatus{domain.TestStatusSuccess, domain.TestStatusFail}
