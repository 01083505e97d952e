package poll

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout — проверка не дала значения за MaxWait.
	ErrTimeout = errors.New("poll timed out")

	// ErrCancelled — context отменён во время ожидания.
	ErrCancelled = errors.New("poll cancelled")

	// ErrInvalidOptions — некорректные Interval или MaxWait.
	ErrInvalidOptions = errors.New("invalid poll options")
)

// TimeoutError — ожидание превысило MaxWait.
//
// errors.Is(err, ErrTimeout) истинно для любой TimeoutError.
type TimeoutError struct {
	// Name — имя поллера.
	Name string

	// MaxWait — граница ожидания.
	MaxWait time.Duration

	// Elapsed — фактически прошедшее время.
	Elapsed time.Duration

	// Attempts — количество вызовов проверки.
	Attempts int

	// LastErr — последняя временная ошибка проверки (если была).
	LastErr error
}

// Error реализует интерфейс error.
func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: timed out after %s (max wait %s, %d attempts)",
		e.Name, e.Elapsed.Round(time.Millisecond), e.MaxWait, e.Attempts)
	if e.LastErr != nil {
		msg += fmt.Sprintf(": last error: %v", e.LastErr)
	}
	return msg
}

// Is позволяет сравнивать с ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// AbortError — ошибка проверки, после которой ждать дальше бессмысленно.
type AbortError struct {
	Err error
}

// Abort помечает ошибку проверки как окончательную: Until вернёт её сразу,
// не дожидаясь MaxWait.
func Abort(err error) error {
	return &AbortError{Err: err}
}

// Error реализует интерфейс error.
func (e *AbortError) Error() string {
	return e.Err.Error()
}

// Unwrap возвращает исходную ошибку.
func (e *AbortError) Unwrap() error {
	return e.Err
}

// IsTimeout проверяет, является ли ошибка таймаутом поллера.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
