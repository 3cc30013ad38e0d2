package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	ErrRetryable = &roierr.TrackerError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: roierr.ExitNetwork,
	}

	ErrTimeout = &roierr.TrackerError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: roierr.ExitNetwork,
	}

	ErrRateLimited = &roierr.TrackerError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: roierr.ExitNetwork,
	}
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the default retry configuration.
// 3 attempts total with delays of roughly 500ms and 1s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
}

// NoRetry runs an operation exactly once.
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// Retry executes the operation with exponential backoff retry using the default configuration.
func Retry[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithConfig executes the operation with the specified retry configuration.
// Only errors for which IsRetryable returns true are retried.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	var err error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < attempts-1 {
			delay := max(calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay), retryAfter(err))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if attempts == 1 {
		return result, err
	}
	return result, fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
}

// calculateDelay calculates the delay for the given attempt using exponential backoff with jitter.
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if baseDelay <= 0 {
		return 0
	}
	delay := baseDelay * (1 << attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	// Jitter in [delay/2, delay)
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// MaxRetryAfter caps how long a server's Retry-After can hold up a run.
const MaxRetryAfter = 30 * time.Second

// throttledError is an HTTP 429 carrying the server's requested wait.
type throttledError struct {
	wait time.Duration
}

func (e *throttledError) Error() string {
	if e.wait > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.wait)
	}
	return "rate limited"
}

func (e *throttledError) Unwrap() error { return ErrRateLimited }

// Throttled returns an ErrRateLimited for an HTTP 429 response. RetryWithConfig
// waits at least the Retry-After delay (capped at MaxRetryAfter) before the next attempt.
func Throttled(retryAfterHeader string) error {
	return &throttledError{wait: ParseRetryAfter(retryAfterHeader)}
}

func retryAfter(err error) time.Duration {
	var t *throttledError
	if errors.As(err, &t) {
		return min(t.wait, MaxRetryAfter)
	}
	return 0
}

// ParseRetryAfter parses a Retry-After header given in seconds.
// HTTP dates and malformed values yield 0.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

// WrapRetryable wraps an error to mark it as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
