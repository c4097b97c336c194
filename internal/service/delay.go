package service

import (
	"context"
	"math/rand/v2"
	"time"
)

// DelayFunc blocks for the pipeline's processing latency. It returns the
// context error if the wait is interrupted.
type DelayFunc func(ctx context.Context) error

// RandomDelay waits a uniformly random duration in [min, max].
func RandomDelay(min, max time.Duration) DelayFunc {
	return func(ctx context.Context) error {
		d := min
		if span := max - min; span > 0 {
			d += rand.N(span + 1)
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// FixedDelay waits exactly d. Used in tests to keep timing deterministic.
func FixedDelay(d time.Duration) DelayFunc {
	return RandomDelay(d, d)
}

// NoDelay skips the wait entirely.
func NoDelay(context.Context) error { return nil }
