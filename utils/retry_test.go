package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	var delays []time.Duration
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second, Logger: NewNopLogger(), Sleep: noSleep(&delays)}

	calls := 0
	err := r.Do(context.Background(), "save", func() error {
		calls++
		if calls < 2 {
			return errors.New("locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
	if len(delays) != 1 || delays[0] != 2*time.Second {
		t.Errorf("delays: got %v, want [2s]", delays)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2, Sleep: noSleep(&delays)}

	sentinel := errors.New("locked")
	calls := 0
	err := r.Do(context.Background(), "save", func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Do error = %v; want wrapped sentinel", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
	if len(delays) != 2 || delays[1] != 2*time.Second {
		t.Errorf("delays: got %v, want [1s 2s]", delays)
	}
}

func TestRetryNonRetryable(t *testing.T) {
	var delays []time.Duration
	r := &RetryConfig{
		MaxAttempts: 3,
		Retryable:   func(err error) bool { return false },
		Sleep:       noSleep(&delays),
	}
	calls := 0
	_ = r.Do(context.Background(), "save", func() error {
		calls++
		return errors.New("disk full")
	})
	if calls != 1 || len(delays) != 0 {
		t.Errorf("calls=%d delays=%v; want 1 call, no delays", calls, delays)
	}
}
