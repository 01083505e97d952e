package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 10
	defaultRunTimeout   = 30 * time.Minute
	finalizeTimeout     = 10 * time.Second
)

// RunStore — хранилище validation runs.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	ListPending(ctx context.Context, limit int) ([]domain.Run, error)
	Claim(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
}

// Validator выполняет validation pipeline для review request.
type Validator interface {
	Validate(ctx context.Context, ref domain.ReviewRequest) (domain.Summary, error)
}

// Orchestrator управляет выполнением validation runs.
type Orchestrator struct {
	store     RunStore
	validator Validator
	conn      *mq.Connection

	activeRuns map[uuid.UUID]*RunState
	mu         sync.RWMutex

	consumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int
	runTimeout   time.Duration

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	baseCtx    context.Context
	wg         sync.WaitGroup
	stopped    bool
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Store — хранилище runs (обязательно).
	Store RunStore

	// Validator — validation pipeline (обязательно).
	Validator Validator

	// Conn — соединение с RabbitMQ (опционально; без него работает только polling).
	Conn *mq.Connection

	// PollInterval — интервал polling (default: 10s).
	PollInterval time.Duration

	// BatchSize — сколько PENDING runs забирается за один poll (default: 10).
	BatchSize int

	// RunTimeout — ограничение на один pipeline (default: 30m).
	RunTimeout time.Duration

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("%w: validator", ErrMissingDependency)
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		store:        cfg.Store,
		validator:    cfg.Validator,
		conn:         cfg.Conn,
		activeRuns:   make(map[uuid.UUID]*RunState),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		runTimeout:   runTimeout,
		logger:       logger,
	}, nil
}

// Start запускает consumer (если есть соединение) и polling.
// Не блокирует: фоновые горутины работают до Stop или отмены ctx.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		cancel()
		return ErrOrchestratorStopped
	}
	o.cancelFunc = cancel
	o.baseCtx = ctx
	o.mu.Unlock()

	o.logger.Info("starting orchestrator",
		"poll_interval", o.pollInterval,
		"batch_size", o.batchSize,
		"run_timeout", o.runTimeout,
		"queue_enabled", o.conn != nil,
	)

	if o.conn != nil {
		o.consumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:    mq.QueueValidationsRequested,
			Handler:  o.handleValidationRequested,
			Prefetch: 10,
		})

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := o.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("validation consumer error", "error", err)
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.pollLoop(ctx)
	}()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop отменяет активные pipelines и ждёт записи их итогов.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	cancel := o.cancelFunc
	active := len(o.activeRuns)
	for _, state := range o.activeRuns {
		state.cancel()
	}
	o.mu.Unlock()

	o.logger.Info("stopping orchestrator...", "active_runs", active)

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()

	o.logger.Info("orchestrator stopped")
}

// IsStopped проверяет, остановлен ли Orchestrator.
func (o *Orchestrator) IsStopped() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stopped
}

// pollLoop — цикл polling для fallback.
func (o *Orchestrator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем runs, созданные пока сервис был выключен
	o.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (o *Orchestrator) poll(ctx context.Context) {
	runs, err := o.store.ListPending(ctx, o.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Error("failed to list pending runs", "error", err)
		}
		return
	}
	if len(runs) == 0 {
		return
	}

	o.logger.Debug("poll found pending runs", "count", len(runs))

	for i := range runs {
		run := &runs[i]
		if o.isRunActive(run.ID) {
			continue
		}
		if err := o.startRun(ctx, run); err != nil && !isSkippable(err) {
			o.logger.Error("failed to start run from poll", "run_id", run.ID, "error", err)
		}
	}
}

func (o *Orchestrator) isRunActive(runID uuid.UUID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, exists := o.activeRuns[runID]
	return exists
}

func (o *Orchestrator) addActiveRun(state *RunState) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return ErrOrchestratorStopped
	}
	if _, exists := o.activeRuns[state.RunID()]; exists {
		return ErrRunAlreadyActive
	}
	o.activeRuns[state.RunID()] = state
	return nil
}

func (o *Orchestrator) removeActiveRun(runID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeRuns, runID)
}

// CancelRun отменяет pipeline активного run.
// Итог (FAILED) записывается самим pipeline. Возвращает false, если run не активен.
func (o *Orchestrator) CancelRun(runID uuid.UUID) bool {
	o.mu.RLock()
	state, exists := o.activeRuns[runID]
	o.mu.RUnlock()
	if !exists {
		return false
	}
	o.logger.Info("cancelling run", "run_id", runID)
	state.cancel()
	return true
}

// ActiveRunsCount возвращает количество активных runs.
func (o *Orchestrator) ActiveRunsCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.activeRuns)
}

// GetActiveRunStats возвращает сводку по активному run.
func (o *Orchestrator) GetActiveRunStats(runID uuid.UUID) (RunStats, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	state, exists := o.activeRuns[runID]
	if !exists {
		return RunStats{}, false
	}
	return state.Stats(), true
}

// Wait блокируется до завершения всех запущенных pipelines и горутин.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
