package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Результаты попыток для Observer.
const (
	AttemptFound    = "found"
	AttemptNotReady = "not_ready"
	AttemptError    = "error"
)

// CheckFunc — одна проверка.
//
// (v, true, nil) — значение найдено, ожидание завершается.
// (_, false, nil) — ещё не готово.
// (_, _, err) — временная ошибка, ожидание продолжается.
// (_, _, Abort(err)) — окончательная ошибка, Until возвращает err.
type CheckFunc[T any] func(ctx context.Context) (T, bool, error)

// Observer получает результат каждой попытки (метрики).
type Observer interface {
	AttemptObserved(poller, result string)
}

// Options — параметры ожидания.
type Options struct {
	// Name — имя поллера (для логов, метрик и текста ошибки).
	Name string

	// Interval — пауза между проверками.
	Interval time.Duration

	// MaxWait — максимальное время ожидания.
	MaxWait time.Duration

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger

	// Observer (опционально).
	Observer Observer
}

func (o Options) validate() error {
	if o.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidOptions, o.Interval)
	}
	if o.MaxWait <= 0 {
		return fmt.Errorf("%w: max wait must be positive, got %s", ErrInvalidOptions, o.MaxWait)
	}
	return nil
}

// Until вызывает check, пока тот не вернёт значение или не истечёт MaxWait.
//
// Цикл итеративный: количество попыток MaxWait/Interval не влияет на стек.
// Последняя пауза укорачивается до остатка бюджета, поэтому таймаут
// наступает ровно по истечении MaxWait, а не на интервал позже.
func Until[T any](ctx context.Context, opts Options, check CheckFunc[T]) (T, error) {
	var zero T

	if err := opts.validate(); err != nil {
		return zero, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("poller", opts.Name)

	start := time.Now()
	deadline := start.Add(opts.MaxWait)

	var (
		attempts int
		lastErr  error
	)

	for {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", ErrCancelled, opts.Name, err)
		}

		attempts++
		value, found, err := check(ctx)
		var abortErr *AbortError
		switch {
		case errors.As(err, &abortErr):
			opts.observe(AttemptError)
			logger.Warn("poll aborted", "attempt", attempts, "error", abortErr.Err)
			return zero, abortErr.Err
		case err != nil:
			lastErr = err
			opts.observe(AttemptError)
			logger.Warn("poll check failed, will retry",
				"attempt", attempts,
				"error", err,
			)
		case found:
			opts.observe(AttemptFound)
			logger.Debug("poll condition met",
				"attempt", attempts,
				"elapsed", time.Since(start),
			)
			return value, nil
		default:
			opts.observe(AttemptNotReady)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			elapsed := time.Since(start)
			logger.Warn("poll timed out",
				"attempts", attempts,
				"elapsed", elapsed,
				"max_wait", opts.MaxWait,
			)
			return zero, &TimeoutError{
				Name:     opts.Name,
				MaxWait:  opts.MaxWait,
				Elapsed:  elapsed,
				Attempts: attempts,
				LastErr:  lastErr,
			}
		}

		if err := sleep(ctx, min(opts.Interval, remaining)); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", ErrCancelled, opts.Name, err)
		}
	}
}

func (o Options) observe(result string) {
	if o.Observer != nil {
		o.Observer.AttemptObserved(o.Name, result)
	}
}

// sleep ждёт d или отмены context.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
