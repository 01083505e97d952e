package poll

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type countingObserver struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *countingObserver) AttemptObserved(_, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[string]int)
	}
	o.results[result]++
}

func TestUntil_ImmediateSuccess(t *testing.T) {
	calls := 0
	v, err := Until(context.Background(), Options{Name: "test", Interval: time.Second, MaxWait: time.Minute},
		func(context.Context) (string, bool, error) {
			calls++
			return "ready", true, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ready" {
		t.Errorf("expected ready, got %q", v)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestUntil_ReturnsWithinOneInterval(t *testing.T) {
	interval := 20 * time.Millisecond
	readyAt := time.Now().Add(50 * time.Millisecond)

	start := time.Now()
	v, err := Until(context.Background(), Options{Name: "test", Interval: interval, MaxWait: time.Second},
		func(context.Context) (int, bool, error) {
			if time.Now().After(readyAt) {
				return 42, true, nil
			}
			return 0, false, nil
		})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
	// Готово через 50ms, значит результат не позже 50ms + interval (+ запас на планировщик)
	if elapsed > 50*time.Millisecond+interval+30*time.Millisecond {
		t.Errorf("returned too late: %v", elapsed)
	}
}

func TestUntil_TransientErrorsIgnored(t *testing.T) {
	calls := 0
	obs := &countingObserver{}

	v, err := Until(context.Background(), Options{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		MaxWait:  time.Second,
		Observer: obs,
	}, func(context.Context) (string, bool, error) {
		calls++
		if calls < 3 {
			return "", false, errors.New("connection reset")
		}
		return "ok", true, nil
	})
	if err != nil {
		t.Fatalf("transient errors should not abort: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", v, calls)
	}
	if obs.results[AttemptError] != 2 || obs.results[AttemptFound] != 1 {
		t.Errorf("unexpected observed attempts: %v", obs.results)
	}
}

func TestUntil_Timeout(t *testing.T) {
	interval := 30 * time.Millisecond
	maxWait := 100 * time.Millisecond

	start := time.Now()
	_, err := Until(context.Background(), Options{Name: "preview", Interval: interval, MaxWait: maxWait},
		func(context.Context) (string, bool, error) {
			return "", false, nil
		})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
	if timeoutErr.MaxWait != maxWait || timeoutErr.Name != "preview" {
		t.Errorf("unexpected timeout error: %+v", timeoutErr)
	}
	if !strings.Contains(err.Error(), "max wait 100ms") {
		t.Errorf("error should name the bound: %v", err)
	}

	// Не раньше maxWait и не позже чем на интервал
	if elapsed < maxWait {
		t.Errorf("timed out too early: %v", elapsed)
	}
	if elapsed > maxWait+interval {
		t.Errorf("timed out too late: %v", elapsed)
	}
}

func TestUntil_TimeoutKeepsLastError(t *testing.T) {
	_, err := Until(context.Background(), Options{Name: "x", Interval: 5 * time.Millisecond, MaxWait: 20 * time.Millisecond},
		func(context.Context) (int, bool, error) {
			return 0, false, errors.New("503 from upstream")
		})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if timeoutErr.LastErr == nil || !strings.Contains(err.Error(), "503 from upstream") {
		t.Errorf("last error should be reported: %v", err)
	}
	if timeoutErr.Attempts < 2 {
		t.Errorf("expected several attempts, got %d", timeoutErr.Attempts)
	}
}

func TestUntil_ManyIterations(t *testing.T) {
	calls := 0
	_, err := Until(context.Background(), Options{Name: "tight", Interval: time.Microsecond, MaxWait: 50 * time.Millisecond},
		func(context.Context) (int, bool, error) {
			calls++
			if calls == 2000 {
				return calls, true, nil
			}
			return 0, false, nil
		})
	if err != nil && !IsTimeout(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls < 2 {
		t.Errorf("expected many iterations, got %d", calls)
	}
}

func TestUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Until(ctx, Options{Name: "cancel", Interval: 10 * time.Millisecond, MaxWait: time.Minute},
		func(context.Context) (int, bool, error) {
			return 0, false, nil
		})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if IsTimeout(err) {
		t.Error("cancellation is not a timeout")
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation should stop waiting promptly")
	}
}

func TestUntil_InvalidOptions(t *testing.T) {
	check := func(context.Context) (int, bool, error) { return 1, true, nil }

	if _, err := Until(context.Background(), Options{Interval: 0, MaxWait: time.Second}, check); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions for zero interval, got %v", err)
	}
	if _, err := Until(context.Background(), Options{Interval: time.Second}, check); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions for zero max wait, got %v", err)
	}
}

func TestUntil_Abort(t *testing.T) {
	permanent := errors.New("task not found")
	calls := 0

	start := time.Now()
	_, err := Until(context.Background(), Options{Name: "abort", Interval: 10 * time.Millisecond, MaxWait: time.Minute},
		func(context.Context) (int, bool, error) {
			calls++
			return 0, false, Abort(permanent)
		})

	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if IsTimeout(err) {
		t.Error("abort is not a timeout")
	}
	if calls != 1 {
		t.Errorf("expected single call, got %d", calls)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("abort should return immediately")
	}
}
