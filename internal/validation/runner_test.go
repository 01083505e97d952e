package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/engine"
	"github.com/shaiso/Preflight/internal/executor"
	"github.com/shaiso/Preflight/internal/planner"
	"github.com/shaiso/Preflight/internal/poll"
	"github.com/shaiso/Preflight/internal/preview"
	"github.com/shaiso/Preflight/internal/reviewhost"
)

var ref = domain.ReviewRequest{Owner: "acme", Repo: "shop", Number: 7}

// fakeHost — review host в памяти: хранит комментарии и журнал вызовов.
type fakeHost struct {
	mu       sync.Mutex
	posted   []string
	bot      []domain.Comment
	postErr  error
	listErr  error
	listCall int
}

func (h *fakeHost) PostComment(_ context.Context, _ domain.ReviewRequest, body string) (*domain.Comment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.postErr != nil {
		return nil, h.postErr
	}
	h.posted = append(h.posted, body)
	return &domain.Comment{ID: int64(len(h.posted)), Body: body}, nil
}

func (h *fakeHost) RecentComments(context.Context, domain.ReviewRequest, int) ([]domain.Comment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listCall++
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.bot, nil
}

// stubWaiter и stubExecutor фиксируют факт вызова.
type stubWaiter struct {
	called bool
	env    domain.PreviewEnvironment
	err    error
}

func (w *stubWaiter) Wait(context.Context, domain.ReviewRequest) (domain.PreviewEnvironment, error) {
	w.called = true
	return w.env, w.err
}

type stubExecutor struct {
	called  bool
	results func(cases []domain.TestCase) []domain.TestCaseResult
}

func (e *stubExecutor) Run(_ context.Context, _ string, cases []domain.TestCase) []domain.TestCaseResult {
	e.called = true
	return e.results(cases)
}

func allPass(cases []domain.TestCase) []domain.TestCaseResult {
	out := make([]domain.TestCaseResult, len(cases))
	for i, tc := range cases {
		out[i] = domain.TestCaseResult{Title: tc.Title, Status: domain.TestStatusSuccess}
	}
	return out
}

// fakeTasks — удалённый сервис задач: "Add item" успешен, остальное висит в started.
type fakeTasks struct {
	mu     sync.Mutex
	titles map[string]string
}

func (f *fakeTasks) CreateTask(_ context.Context, instructions string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("task-%d", len(f.titles)+1)
	f.titles[id] = instructions
	return id, nil
}

func (f *fakeTasks) GetTask(_ context.Context, id string) (domain.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.Contains(f.titles[id], "Scenario: Add item") {
		return domain.RemoteTask{ID: id, Status: domain.RemoteTaskFinished, IsSuccess: true}, nil
	}
	return domain.RemoteTask{ID: id, Status: domain.RemoteTaskStarted}, nil
}

var addRemovePlan = domain.TestPlan{
	NeedsTesting: true,
	TestCases: []domain.TestCase{
		{Title: "Add item", Description: "Add a product to the cart."},
		{Title: "Remove item", Description: "Remove the product from the cart."},
	},
}

func newRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestRunner_NoTestingBails(t *testing.T) {
	host := &fakeHost{}
	waiter := &stubWaiter{}
	exec := &stubExecutor{results: allPass}

	r := newRunner(t, Config{
		Generator: planner.Static(domain.NoTestingPlan()),
		Comments:  host,
		Preview:   waiter,
		Executor:  exec,
	})

	rep, err := r.Run(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := domain.NoTestingSummary()
	if rep.Summary.Success != expected.Success || rep.Summary.NeedsTesting != expected.NeedsTesting ||
		rep.Summary.TestCases == nil || len(rep.Summary.TestCases) != 0 {
		t.Errorf("expected bail payload %+v, got %+v", expected, rep.Summary)
	}
	if !rep.Bailed {
		t.Error("report should be marked as bailed")
	}
	if waiter.called || exec.called {
		t.Error("no step after publish-plan should run")
	}
	if len(host.posted) != 1 || host.posted[0] != "## No testing needed" {
		t.Errorf("expected only the no-testing comment, got %q", host.posted)
	}
}

func TestRunner_AddItemRemoveItemScenario(t *testing.T) {
	host := &fakeHost{
		bot: []domain.Comment{{
			ID:        1,
			Author:    "vercel[bot]",
			Body:      "[Visit Preview](https://shop-pr-7.vercel.app)",
			CreatedAt: time.Now(),
		}},
	}

	waiter, err := preview.NewWaiter(preview.WaiterConfig{
		Source:   host,
		Interval: 5 * time.Millisecond,
		MaxWait:  time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exec, err := executor.New(executor.Config{
		Service:      &fakeTasks{titles: make(map[string]string)},
		PollInterval: 5 * time.Millisecond,
		TaskTimeout:  50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := newRunner(t, Config{
		Generator: planner.Static(addRemovePlan),
		Comments:  host,
		Preview:   waiter,
		Executor:  exec,
	})

	rep, err := r.Run(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(host.posted) != 2 {
		t.Fatalf("expected plan and report comments, got %d", len(host.posted))
	}

	wantPlan := "## Test Plan\n\n### Add item\nAdd a product to the cart.\n\n### Remove item\nRemove the product from the cart."
	if host.posted[0] != wantPlan {
		t.Errorf("unexpected plan comment:\n%q", host.posted[0])
	}

	wantReport := "## Test Report\n\n✅ **Add item**\n❌ **Remove item**"
	if host.posted[1] != wantReport {
		t.Errorf("unexpected report comment:\n%q", host.posted[1])
	}

	if rep.Summary.Success || !rep.Summary.NeedsTesting || rep.Summary.Passed() != 1 {
		t.Errorf("unexpected summary: %+v", rep.Summary)
	}
	if rep.Preview.PreviewURL != "https://shop-pr-7.vercel.app" {
		t.Errorf("unexpected preview: %+v", rep.Preview)
	}
	if rep.Bailed {
		t.Error("full run should not be bailed")
	}
}

func TestRunner_PreviewTimeoutAborts(t *testing.T) {
	host := &fakeHost{
		bot: []domain.Comment{{ID: 1, Author: "alice", Body: "looks good", CreatedAt: time.Now()}},
	}
	waiter, _ := preview.NewWaiter(preview.WaiterConfig{
		Source:   host,
		Interval: 5 * time.Millisecond,
		MaxWait:  30 * time.Millisecond,
	})
	exec := &stubExecutor{results: allPass}

	r := newRunner(t, Config{
		Generator: planner.Static(addRemovePlan),
		Comments:  host,
		Preview:   waiter,
		Executor:  exec,
	})

	_, err := r.Validate(context.Background(), ref)
	if !errors.Is(err, poll.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	var stepErr *engine.StepError
	if !errors.As(err, &stepErr) || stepErr.StepID != StepWaitPreview {
		t.Errorf("expected failure in wait-preview, got %v", err)
	}
	if exec.called {
		t.Error("executor should not run")
	}
	// Только комментарий с планом, отчёта нет
	if len(host.posted) != 1 || !strings.HasPrefix(host.posted[0], "## Test Plan") {
		t.Errorf("report must not be published, got %q", host.posted)
	}
}

func TestRunner_UpstreamErrorSurfaces(t *testing.T) {
	host := &fakeHost{postErr: &reviewhost.UpstreamAPIError{Operation: reviewhost.OpPostComment, Status: 403}}
	waiter := &stubWaiter{}

	r := newRunner(t, Config{
		Generator: planner.Static(addRemovePlan),
		Comments:  host,
		Preview:   waiter,
		Executor:  &stubExecutor{results: allPass},
	})

	_, err := r.Validate(context.Background(), ref)
	if !errors.Is(err, reviewhost.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "post comment: HTTP 403") {
		t.Errorf("error should surface operation and status: %v", err)
	}
	if waiter.called {
		t.Error("pipeline should stop at publish-plan")
	}
}

func TestRunner_GeneratorError(t *testing.T) {
	boom := errors.New("planner unavailable")
	host := &fakeHost{}

	r := newRunner(t, Config{
		Generator: planner.GeneratorFunc(func(context.Context, domain.ReviewRequest) (domain.TestPlan, error) {
			return domain.TestPlan{}, boom
		}),
		Comments: host,
		Preview:  &stubWaiter{},
		Executor: &stubExecutor{results: allPass},
	})

	if _, err := r.Validate(context.Background(), ref); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if len(host.posted) != 0 {
		t.Error("nothing should be published")
	}
}

func TestRunner_InvalidPlanIsContractViolation(t *testing.T) {
	invalid := domain.TestPlan{NeedsTesting: false, TestCases: addRemovePlan.TestCases}
	host := &fakeHost{}

	r := newRunner(t, Config{
		Generator: planner.Static(invalid),
		Comments:  host,
		Preview:   &stubWaiter{},
		Executor:  &stubExecutor{results: allPass},
	})

	_, err := r.Validate(context.Background(), ref)
	if !errors.Is(err, engine.ErrContractViolation) || !errors.Is(err, domain.ErrInvalidTestPlan) {
		t.Fatalf("expected contract violation, got %v", err)
	}
	if len(host.posted) != 0 {
		t.Error("invalid plan must not be published")
	}
}

func TestRunner_ExecutorResultMismatch(t *testing.T) {
	host := &fakeHost{}
	r := newRunner(t, Config{
		Generator: planner.Static(addRemovePlan),
		Comments:  host,
		Preview:   &stubWaiter{env: domain.PreviewEnvironment{PreviewURL: "https://x.vercel.app", DeploymentStatus: "ready"}},
		Executor: &stubExecutor{results: func(cases []domain.TestCase) []domain.TestCaseResult {
			// Порядок перепутан
			return []domain.TestCaseResult{
				{Title: cases[1].Title, Status: domain.TestStatusSuccess},
				{Title: cases[0].Title, Status: domain.TestStatusSuccess},
			}
		}},
	})

	_, err := r.Validate(context.Background(), ref)
	if !errors.Is(err, ErrResultMismatch) {
		t.Fatalf("expected ErrResultMismatch, got %v", err)
	}
	if len(host.posted) != 1 {
		t.Error("report must not be published for mismatched results")
	}
}

func TestRunner_InvalidPreviewURL(t *testing.T) {
	r := newRunner(t, Config{
		Generator: planner.Static(addRemovePlan),
		Comments:  &fakeHost{},
		Preview:   &stubWaiter{env: domain.PreviewEnvironment{PreviewURL: "not a url"}},
		Executor:  &stubExecutor{results: allPass},
	})

	if _, err := r.Validate(context.Background(), ref); !errors.Is(err, domain.ErrInvalidPreview) {
		t.Fatalf("expected ErrInvalidPreview, got %v", err)
	}
}

func TestRunner_InvalidReviewRequest(t *testing.T) {
	r := newRunner(t, Config{
		Generator: planner.Static(addRemovePlan),
		Comments:  &fakeHost{},
		Preview:   &stubWaiter{},
		Executor:  &stubExecutor{results: allPass},
	})

	if _, err := r.Validate(context.Background(), domain.ReviewRequest{}); !errors.Is(err, domain.ErrInvalidReviewRequest) {
		t.Fatalf("expected ErrInvalidReviewRequest, got %v", err)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing collaborators")
	}
}
