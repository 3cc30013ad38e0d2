package price_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/notify"
	"github.com/polar0/roi-tracker/internal/price"
)

// scriptedFeed returns its prices in order; an empty string means failure.
type scriptedFeed struct {
	mu     sync.Mutex
	script []string
	calls  atomic.Int64
}

func (f *scriptedFeed) CurrentPrice(_ context.Context, asset string) (decimal.Decimal, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if asset != price.Ether {
		return decimal.Decimal{}, errors.New("unexpected asset")
	}
	if len(f.script) == 0 {
		return decimal.Decimal{}, errors.New("script exhausted")
	}
	next := f.script[0]
	f.script = f.script[1:]
	if next == "" {
		return decimal.Decimal{}, errors.New("upstream down")
	}
	return decimal.RequireFromString(next), nil
}

func TestPoller_RefreshKeepsLastValue(t *testing.T) {
	t.Parallel()

	rec := &notify.Recorder{}
	p := price.NewPoller(&scriptedFeed{script: []string{"2000", "", "2100"}}, price.WithSink(rec))

	_, ok := p.Quote()
	assert.False(t, ok)

	q, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2000", q.Price.String())

	q, err = p.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, "2000", q.Price.String(), "previous value kept")
	assert.Equal(t, []string{"Failed to fetch Ether price."}, rec.Messages())
	assert.Equal(t, notify.Error, rec.Notifications()[0].Severity)

	q, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2100", q.Price.String())

	last, ok := p.Quote()
	assert.True(t, ok)
	assert.Equal(t, "2100", last.Price.String())
}

func TestPoller_StartStop(t *testing.T) {
	t.Parallel()

	feed := &scriptedFeed{script: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}}
	updates := make(chan price.Quote, 16)
	p := price.NewPoller(feed, price.WithInterval(5*time.Millisecond), price.OnUpdate(func(q price.Quote) {
		updates <- q
	}))

	p.Start(context.Background())
	p.Start(context.Background()) // no-op

	first := <-updates
	assert.Equal(t, "1", first.Price.String(), "refreshes immediately")
	<-updates

	p.Stop()
	calls := feed.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, feed.calls.Load(), "no refresh after Stop")

	p.Stop() // idempotent
}

func TestPoller_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	rec := &notify.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	p := price.NewPoller(&scriptedFeed{script: []string{"1"}}, price.WithInterval(time.Hour), price.WithSink(rec))

	p.Start(ctx)
	require.Eventually(t, func() bool {
		_, ok := p.Quote()
		return ok
	}, time.Second, time.Millisecond)

	cancel()
	p.Stop()
	assert.Equal(t, 0, rec.Len())
}

func TestPoller_StartAfterStop(t *testing.T) {
	t.Parallel()

	feed := &scriptedFeed{script: []string{"1"}}
	p := price.NewPoller(feed)
	p.Stop()
	p.Start(context.Background())
	p.Stop()
	assert.Equal(t, int64(0), feed.calls.Load())
}
