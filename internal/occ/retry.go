package occ

import (
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls WithOCCRetry's backoff schedule.
type RetryConfig struct {
	MaxRetries int
	Base       time.Duration
	Cap        time.Duration
	Mult       float64
	Jitter     float64

	// OnRetry, if set, fires before each sleep with the 1-based attempt
	// number and the conflict that triggered the retry.
	OnRetry func(attempt int, err *VersionConflict)
	// OnConflict, if set, fires every time a VersionConflict is observed,
	// including the final one that gets surfaced after MaxRetries.
	OnConflict func(err *VersionConflict)

	// sleep is overridable in tests so retry-loop unit tests don't sleep
	// for real.
	sleep func(time.Duration)
}

// DefaultRetryConfig returns the stock schedule: 3 retries starting at
// 10ms, doubling up to a 1s cap, with 10% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Base:       10 * time.Millisecond,
		Cap:        1000 * time.Millisecond,
		Mult:       2.0,
		Jitter:     0.1,
	}
}

func (c RetryConfig) sleeper() func(time.Duration) {
	if c.sleep != nil {
		return c.sleep
	}
	return time.Sleep
}

// delayFor computes min(base * mult^(attempt-1), cap) with a uniform
// ±jitter perturbation, attempt being 1-based. The exponential schedule
// comes from cenkalti/backoff with its own randomization disabled; the
// jitter here is uniform, not the library's spread.
func (c RetryConfig) delayFor(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Base
	b.MaxInterval = c.Cap
	b.Multiplier = c.Mult
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}

	if c.Jitter > 0 {
		spread := float64(d) * c.Jitter
		jittered := float64(d) + (rand.Float64()*2-1)*spread
		if jittered < 0 {
			jittered = 0
		}
		d = time.Duration(jittered)
	}
	return d
}

// WithOCCRetry runs f; if f returns a *VersionConflict, it sleeps per the
// backoff schedule and retries, up to MaxRetries retries after the first
// attempt (MaxRetries+1 calls to f in all). Any other
// error from f propagates immediately without retry. If every attempt
// conflicts, the last VersionConflict is returned.
func WithOCCRetry(f func() error, cfg RetryConfig) error {
	sleep := cfg.sleeper()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		err := f()
		if err == nil {
			return nil
		}

		var conflict *VersionConflict
		if !errors.As(err, &conflict) {
			return err
		}

		lastErr = err
		if cfg.OnConflict != nil {
			cfg.OnConflict(conflict)
		}

		if attempt > cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, conflict)
		}
		sleep(cfg.delayFor(attempt))
	}

	return lastErr
}
