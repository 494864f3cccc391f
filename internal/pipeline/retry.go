package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig defines retry behavior for an operation.
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
	Jitter            bool          `json:"jitter"`
}

// Default retry configurations per stage.
var DefaultRetryConfigs = map[string]RetryConfig{
	StageIngest: {
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	},
	StageExport: {
		MaxAttempts:       2,
		InitialDelay:      200 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 1.5,
	},
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Retry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether err may succeed on another attempt.
func IsRetryable(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// nextDelay is the exponential backoff before attempt+1.
func (c RetryConfig) nextDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt-1)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	if c.Jitter {
		delay += time.Duration(float64(delay) * 0.1 * (rand.Float64() - 0.5))
	}
	return delay
}

// Retry runs op until it succeeds, returns a permanent error, the context
// ends, or cfg.MaxAttempts is reached.
func Retry(ctx context.Context, cfg RetryConfig, name string, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = op(ctx); err == nil || !IsRetryable(err) {
			return unwrapPermanent(err)
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		delay := cfg.nextDelay(attempt)
		slog.Warn("retrying operation", "operation", name, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func unwrapPermanent(err error) error {
	if p, ok := err.(*permanentError); ok {
		return p.err
	}
	return err
}
