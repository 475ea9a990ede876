// Package retryx wraps fallible operations with bounded exponential
// backoff. It is the single retry path for every producer call.
package retryx

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultAttempts is the total attempt budget, first try included.
	DefaultAttempts = 3

	// DefaultBaseDelay is doubled after each failed attempt.
	DefaultBaseDelay = time.Second
)

// Config bounds a retried operation.
type Config struct {
	Attempts  uint
	BaseDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts == 0 {
		c.Attempts = DefaultAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Permanent marks an error as not worth retrying. Do returns it
// immediately without consuming further attempts.
func Permanent(err error) error {
	return retry.Unrecoverable(err)
}

// Do runs op until it succeeds or attempts are exhausted, sleeping
// base*2^n between attempts. The last error is returned unwrapped.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	return retry.DoWithData(
		func() (T, error) { return op(ctx) },
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
