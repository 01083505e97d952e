package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/mq"
	"github.com/shaiso/Preflight/internal/repo"
)

var testRef = domain.ReviewRequest{Owner: "acme", Repo: "shop", Number: 7}

// memoryStore — RunStore в памяти с теми же переходами статусов, что у repo.RunRepo.
type memoryStore struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]domain.Run
	updates int
}

func newMemoryStore(runs ...*domain.Run) *memoryStore {
	s := &memoryStore{runs: make(map[uuid.UUID]domain.Run)}
	for _, r := range runs {
		s.runs[r.ID] = *r
	}
	return s
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &r, nil
}

func (s *memoryStore) ListPending(_ context.Context, limit int) ([]domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Run
	for _, r := range s.runs {
		if r.Status == domain.RunStatusPending && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) Claim(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[run.ID]
	if !ok || stored.Status != domain.RunStatusPending {
		return repo.ErrInvalidState
	}
	run.MarkRunning()
	s.runs[run.ID] = *run
	return nil
}

func (s *memoryStore) Update(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	s.updates++
	return nil
}

func (s *memoryStore) get(id uuid.UUID) domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// fakeValidator вызывает fn или возвращает фиксированный итог.
type fakeValidator struct {
	fn    func(ctx context.Context, ref domain.ReviewRequest) (domain.Summary, error)
	mu    sync.Mutex
	calls int
}

func (v *fakeValidator) Validate(ctx context.Context, ref domain.ReviewRequest) (domain.Summary, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	if v.fn != nil {
		return v.fn(ctx, ref)
	}
	return domain.NoTestingSummary(), nil
}

func (v *fakeValidator) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

func newTestOrchestrator(t *testing.T, store RunStore, v Validator) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Store:        store,
		Validator:    v,
		PollInterval: 10 * time.Millisecond,
		RunTimeout:   time.Second,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return o
}

func requestMessage(t *testing.T, run *domain.Run) *mq.Message {
	t.Helper()
	msg, err := mq.NewMessage(mq.MessageTypeValidationRequested, mq.ValidationRequestedPayload{
		RunID:  run.ID,
		Owner:  run.ReviewRequest.Owner,
		Repo:   run.ReviewRequest.Repo,
		Number: run.ReviewRequest.Number,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return msg
}

func TestNew_MissingDependencies(t *testing.T) {
	if _, err := New(Config{Validator: &fakeValidator{}}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency for store, got %v", err)
	}
	if _, err := New(Config{Store: newMemoryStore()}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency for validator, got %v", err)
	}
}

func TestProcessRun_Succeeded(t *testing.T) {
	run := domain.NewRun(testRef)
	store := newMemoryStore(run)
	summary := domain.NewSummary([]domain.TestCaseResult{
		{Title: "Checkout", Status: domain.TestStatusSuccess},
	})
	v := &fakeValidator{fn: func(_ context.Context, ref domain.ReviewRequest) (domain.Summary, error) {
		if ref != testRef {
			t.Errorf("unexpected review request: %v", ref)
		}
		return summary, nil
	}}

	o := newTestOrchestrator(t, store, v)
	if err := o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Wait()

	got := store.get(run.ID)
	if got.Status != domain.RunStatusSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", got.Status)
	}
	if got.NeedsTesting == nil || !*got.NeedsTesting {
		t.Error("expected needs_testing=true")
	}
	if len(got.Results) != 1 || got.Results[0].Title != "Checkout" {
		t.Errorf("unexpected results: %+v", got.Results)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Error("expected timestamps to be set")
	}
	if o.ActiveRunsCount() != 0 {
		t.Errorf("expected no active runs, got %d", o.ActiveRunsCount())
	}
}

func TestProcessRun_Failed(t *testing.T) {
	run := domain.NewRun(testRef)
	store := newMemoryStore(run)
	v := &fakeValidator{fn: func(context.Context, domain.ReviewRequest) (domain.Summary, error) {
		return domain.Summary{}, errors.New("planner unavailable")
	}}

	o := newTestOrchestrator(t, store, v)
	if err := o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Wait()

	got := store.get(run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if got.Error != "planner unavailable" {
		t.Errorf("unexpected error text: %q", got.Error)
	}
}

func TestProcessRun_NotPending(t *testing.T) {
	run := domain.NewRun(testRef)
	run.MarkRunning()
	store := newMemoryStore(run)
	v := &fakeValidator{}

	o := newTestOrchestrator(t, store, v)
	if err := o.processRun(context.Background(), run.ID); !errors.Is(err, ErrRunNotPending) {
		t.Errorf("expected ErrRunNotPending, got %v", err)
	}
	if v.callCount() != 0 {
		t.Error("validator should not be called")
	}
}

func TestProcessRun_AlreadyActive(t *testing.T) {
	run := domain.NewRun(testRef)
	store := newMemoryStore(run)

	release := make(chan struct{})
	started := make(chan struct{})
	v := &fakeValidator{fn: func(context.Context, domain.ReviewRequest) (domain.Summary, error) {
		close(started)
		<-release
		return domain.NoTestingSummary(), nil
	}}

	o := newTestOrchestrator(t, store, v)
	if err := o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	if _, ok := o.GetActiveRunStats(run.ID); !ok {
		t.Error("expected run to be active")
	}

	// Повторная доставка того же run, пока pipeline выполняется
	pending := *run
	if err := o.startRun(context.Background(), &pending); !errors.Is(err, ErrRunAlreadyActive) {
		t.Errorf("expected ErrRunAlreadyActive, got %v", err)
	}

	close(release)
	o.Wait()

	if v.callCount() != 1 {
		t.Errorf("expected exactly one pipeline, got %d", v.callCount())
	}
}

func TestHandleValidationRequested(t *testing.T) {
	t.Run("starts run", func(t *testing.T) {
		run := domain.NewRun(testRef)
		store := newMemoryStore(run)
		o := newTestOrchestrator(t, store, &fakeValidator{})

		if err := o.handleValidationRequested(context.Background(), requestMessage(t, run)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		o.Wait()

		if got := store.get(run.ID); got.Status != domain.RunStatusSucceeded {
			t.Errorf("expected SUCCEEDED, got %s", got.Status)
		}
	})

	t.Run("bad payload is permanent", func(t *testing.T) {
		o := newTestOrchestrator(t, newMemoryStore(), &fakeValidator{})
		msg := &mq.Message{
			ID:      uuid.NewString(),
			Type:    mq.MessageTypeValidationRequested,
			Payload: json.RawMessage(`"not an object"`),
		}

		err := o.handleValidationRequested(context.Background(), msg)
		if !errors.Is(err, mq.ErrPermanent) {
			t.Errorf("expected permanent error, got %v", err)
		}
	})

	t.Run("unknown run is permanent", func(t *testing.T) {
		o := newTestOrchestrator(t, newMemoryStore(), &fakeValidator{})

		err := o.handleValidationRequested(context.Background(), requestMessage(t, domain.NewRun(testRef)))
		if !errors.Is(err, mq.ErrPermanent) || !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected permanent ErrRunNotFound, got %v", err)
		}
	})

	t.Run("finished run is acked", func(t *testing.T) {
		run := domain.NewRun(testRef)
		run.MarkRunning()
		run.MarkSucceeded(domain.NoTestingSummary())
		v := &fakeValidator{}
		o := newTestOrchestrator(t, newMemoryStore(run), v)

		if err := o.handleValidationRequested(context.Background(), requestMessage(t, run)); err != nil {
			t.Errorf("expected nil for finished run, got %v", err)
		}
		if v.callCount() != 0 {
			t.Error("validator should not be called")
		}
	})
}

func TestStart_PollsPendingRuns(t *testing.T) {
	first := domain.NewRun(testRef)
	second := domain.NewRun(domain.ReviewRequest{Owner: "acme", Repo: "shop", Number: 8})
	store := newMemoryStore(first, second)

	o := newTestOrchestrator(t, store, &fakeValidator{})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer o.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		firstRun, secondRun := store.get(first.ID), store.get(second.ID)
		if firstRun.IsFinished() && secondRun.IsFinished() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		if got := store.get(id); got.Status != domain.RunStatusSucceeded {
			t.Errorf("run %s: expected SUCCEEDED, got %s", id, got.Status)
		}
	}
}

func TestStop_RecordsCancelledRun(t *testing.T) {
	run := domain.NewRun(testRef)
	store := newMemoryStore(run)

	started := make(chan struct{})
	v := &fakeValidator{fn: func(ctx context.Context, _ domain.ReviewRequest) (domain.Summary, error) {
		close(started)
		<-ctx.Done()
		return domain.Summary{}, ctx.Err()
	}}

	o := newTestOrchestrator(t, store, v)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not start")
	}

	o.Stop()

	got := store.get(run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED after stop, got %s", got.Status)
	}
	if !o.IsStopped() {
		t.Error("expected orchestrator to be stopped")
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrOrchestratorStopped) {
		t.Errorf("expected ErrOrchestratorStopped, got %v", err)
	}
}

func TestCancelRun(t *testing.T) {
	run := domain.NewRun(testRef)
	store := newMemoryStore(run)

	started := make(chan struct{})
	v := &fakeValidator{fn: func(ctx context.Context, _ domain.ReviewRequest) (domain.Summary, error) {
		close(started)
		<-ctx.Done()
		return domain.Summary{}, ctx.Err()
	}}

	o := newTestOrchestrator(t, store, v)
	if o.CancelRun(run.ID) {
		t.Error("inactive run should not be cancelled")
	}

	if err := o.processRun(context.Background(), run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	if !o.CancelRun(run.ID) {
		t.Fatal("expected active run to be cancelled")
	}
	o.Wait()

	got := store.get(run.ID)
	if got.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
	if o.ActiveRunsCount() != 0 {
		t.Errorf("expected no active runs, got %d", o.ActiveRunsCount())
	}
}
