package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacerStaysInRange(t *testing.T) {
	p := NewPacer(time.Second, 3*time.Second, nil)
	for i := 0; i < 200; i++ {
		d := p.Next()
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("Next() = %v; want within [1s, 3s]", d)
		}
	}
}

func TestPacerUsesInjectedSleep(t *testing.T) {
	var got time.Duration
	p := NewPacer(5*time.Millisecond, 5*time.Millisecond, func(ctx context.Context, d time.Duration) error {
		got = d
		return nil
	})
	if err := p.Pause(context.Background()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got != 5*time.Millisecond {
		t.Errorf("slept %v; want 5ms", got)
	}
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep error = %v; want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly after cancel")
	}
}
