// Package retry re-runs store operations that fail with transient errors
// such as a locked SQLite file or a PostgreSQL server that is still starting.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/apicontract/internal/common"
)

// Config holds the retry policy of the run store.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// RetryableErrors are matched case-insensitively against error text.
	RetryableErrors []string
}

// DefaultConfig returns the policy used when none is given.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"database is locked",
			"database table is locked",
			"the database system is starting up",
			"deadlock",
			"broken pipe",
		},
	}
}

// Retryable reports whether err matches the policy. Context errors never do.
func (c *Config) Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range c.RetryableErrors {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// Delay is the wait before retry number attempt (1-based), capped at MaxDelay.
func (c *Config) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return c.InitialDelay
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, fails with a non-retryable error or the
// retries are exhausted. A nil cfg uses DefaultConfig.
func Do[T any](ctx context.Context, cfg *Config, op func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := common.GetLogger().WithComponent("store-retry")

	var zero T
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		v, err := op()
		if err == nil {
			if attempt > 0 {
				logger.Info("store operation succeeded after retry", "attempt", attempt+1)
			}
			return v, nil
		}
		lastErr = err
		if attempt == cfg.MaxRetries || !cfg.Retryable(err) {
			break
		}
		delay := cfg.Delay(attempt + 1)
		logger.Warn("store operation failed, retrying", "error", err, "attempt", attempt+1, "retry_delay", delay)
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	if cfg.Retryable(lastErr) {
		return zero, fmt.Errorf("failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
	}
	return zero, lastErr
}
