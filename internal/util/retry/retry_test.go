package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fast() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond)}
}

func TestDo_SucceedsFirstTime(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, fast()...)
	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("persistent error")
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return cause
	}, append(fast(), WithMaxRetries(2))...)
	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got: %d", attempts)
	}
}

func TestDo_PermanentErrorStops(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("invalid input")
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(cause)
	}, fast()...)
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to be preserved, got: %v", err)
	}
	if !IsPermanent(err) {
		t.Error("Expected permanent error to be returned as is")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestDo_RetryIf(t *testing.T) {
	t.Parallel()
	retryable := errors.New("rate limited")
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 1 {
			return retryable
		}
		return errors.New("not found")
	}, append(fast(), WithRetryIf(func(err error) bool { return errors.Is(err, retryable) }))...)
	if err == nil || err.Error() != "not found" {
		t.Errorf("Expected unretried error, got: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts)
	}
}

func TestDo_OnRetryAndBackoffCap(t *testing.T) {
	t.Parallel()
	var delays []time.Duration
	_ = Do(context.Background(), func(context.Context) error {
		return errors.New("boom")
	},
		WithMaxRetries(4),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(3*time.Millisecond),
		WithOnRetry(func(_ int, d time.Duration, _ error) { delays = append(delays, d) }),
	)
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("Expected %d delays, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, func(context.Context) error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(time.Second))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before context check, got: %d", attempts)
	}
}

func TestPermanentNil(t *testing.T) {
	t.Parallel()
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	if IsPermanent(errors.New("plain")) {
		t.Error("plain error should not be permanent")
	}
}
