package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer spaces out requests by a random pause in [min, max].
type Pacer struct {
	min, max time.Duration
	sleep    SleepFunc

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer creates a Pacer. A nil sleep uses Sleep.
func NewPacer(min, max time.Duration, sleep SleepFunc) *Pacer {
	if max < min {
		max = min
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Pacer{min: min, max: max, sleep: sleep, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Next returns the next pause without sleeping.
func (p *Pacer) Next() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	span := p.max - p.min
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.rnd.Int63n(int64(span)+1))
}

// Pause sleeps for the next random interval.
func (p *Pacer) Pause(ctx context.Context) error {
	return p.sleep(ctx, p.Next())
}
