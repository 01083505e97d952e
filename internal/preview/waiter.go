package preview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/poll"
)

// Значения по умолчанию.
const (
	defaultInterval       = 5 * time.Second
	defaultMaxWait        = 2 * time.Minute
	defaultRecentComments = 30
)

// CommentSource — источник комментариев review request.
type CommentSource interface {
	// RecentComments возвращает не более limit последних комментариев.
	RecentComments(ctx context.Context, ref domain.ReviewRequest, limit int) ([]domain.Comment, error)
}

// Waiter ждёт появления preview-окружения.
type Waiter struct {
	source   CommentSource
	detector *Detector
	interval time.Duration
	maxWait  time.Duration
	limit    int
	logger   *slog.Logger
	observer poll.Observer
}

// WaiterConfig — конфигурация Waiter.
type WaiterConfig struct {
	// Source — источник комментариев (обязательно).
	Source CommentSource

	// Detector (опционально; если nil — шаблоны по умолчанию).
	Detector *Detector

	// Interval — интервал проверки (default: 5s).
	Interval time.Duration

	// MaxWait — максимальное ожидание (default: 2m).
	MaxWait time.Duration

	// RecentComments — сколько последних комментариев просматривать (default: 30).
	RecentComments int

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger

	// Observer (опционально) — получает попытки опроса.
	Observer poll.Observer
}

// NewWaiter создаёт Waiter.
func NewWaiter(cfg WaiterConfig) (*Waiter, error) {
	if cfg.Source == nil {
		return nil, ErrNoCommentSource
	}

	detector := cfg.Detector
	if detector == nil {
		var err error
		if detector, err = NewDetector(DetectorConfig{}); err != nil {
			return nil, err
		}
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	limit := cfg.RecentComments
	if limit <= 0 {
		limit = defaultRecentComments
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Waiter{
		source:   cfg.Source,
		detector: detector,
		interval: interval,
		maxWait:  maxWait,
		limit:    limit,
		logger:   logger,
		observer: cfg.Observer,
	}, nil
}

// Wait ждёт preview для review request.
//
// По истечении MaxWait возвращает ошибку, для которой
// errors.Is(err, poll.ErrTimeout) истинно.
func (w *Waiter) Wait(ctx context.Context, ref domain.ReviewRequest) (domain.PreviewEnvironment, error) {
	logger := w.logger.With("review_request", ref.String())
	logger.Info("waiting for preview environment",
		"interval", w.interval,
		"max_wait", w.maxWait,
	)

	env, err := poll.Until(ctx, poll.Options{
		Name:     "preview",
		Interval: w.interval,
		MaxWait:  w.maxWait,
		Logger:   logger,
		Observer: w.observer,
	}, func(ctx context.Context) (domain.PreviewEnvironment, bool, error) {
		comments, err := w.source.RecentComments(ctx, ref, w.limit)
		if err != nil {
			return domain.PreviewEnvironment{}, false, err
		}
		env, ok := w.detector.Detect(comments)
		return env, ok, nil
	})
	if err != nil {
		return domain.PreviewEnvironment{}, fmt.Errorf("wait for preview of %s: %w", ref, err)
	}

	logger.Info("preview environment found", "preview_url", env.PreviewURL)
	return env, nil
}
