package chain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDelay(t *testing.T) {
	t.Parallel()

	baseDelay := 100 * time.Millisecond
	maxDelay := 500 * time.Millisecond

	tests := []struct {
		name    string
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{"first attempt", 0, 50 * time.Millisecond, 100 * time.Millisecond},
		{"second attempt", 1, 100 * time.Millisecond, 200 * time.Millisecond},
		{"capped", 10, 250 * time.Millisecond, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			delay := calculateDelay(tt.attempt, baseDelay, maxDelay)
			assert.GreaterOrEqual(t, delay, tt.min)
			assert.Less(t, delay, tt.max)
		})
	}

	assert.Equal(t, time.Duration(0), calculateDelay(3, 0, maxDelay))
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	throttled := Throttled("7")
	assert.ErrorIs(t, throttled, ErrRateLimited)
	assert.True(t, IsRetryable(throttled))
	assert.Equal(t, "rate limited, retry after 7s", throttled.Error())
	assert.Equal(t, 7*time.Second, retryAfter(fmt.Errorf("etherscan: %w", throttled)))

	assert.Equal(t, MaxRetryAfter, retryAfter(Throttled("3600")), "capped")
	assert.Equal(t, time.Duration(0), retryAfter(Throttled("")))
	assert.Equal(t, "rate limited", Throttled("").Error())
	assert.Equal(t, time.Duration(0), retryAfter(errors.New("boom")))
}
