package price

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polar0/roi-tracker/internal/notify"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// DefaultInterval is how often the poller refreshes the price.
const DefaultInterval = 30 * time.Second

// Quote is the last price the poller read.
type Quote struct {
	Price     decimal.Decimal
	UpdatedAt time.Time
}

// Poller refreshes a price on a fixed interval in its own goroutine.
// A failed refresh keeps the previous quote and notifies the sink.
type Poller struct {
	feed     Feed
	asset    string
	interval time.Duration
	sink     notify.Sink
	onUpdate func(Quote)
	now      func() time.Time

	mu      sync.Mutex
	quote   Quote
	has     bool
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithAsset overrides the priced asset (Ether by default).
func WithAsset(asset string) PollerOption {
	return func(p *Poller) { p.asset = asset }
}

// WithSink sets where refresh failures are reported.
func WithSink(s notify.Sink) PollerOption {
	return func(p *Poller) { p.sink = s }
}

// OnUpdate registers a callback run after each successful refresh.
func OnUpdate(fn func(Quote)) PollerOption {
	return func(p *Poller) { p.onUpdate = fn }
}

// NewPoller creates a poller over feed. It does nothing until Start.
func NewPoller(feed Feed, opts ...PollerOption) *Poller {
	p := &Poller{
		feed:     feed,
		asset:    Ether,
		interval: DefaultInterval,
		sink:     notify.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start refreshes once immediately, then every interval until ctx is done or
// Stop is called. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.done != nil || p.stopped {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		_, _ = p.Refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = p.Refresh(ctx)
			}
		}
	}()
}

// Stop cancels polling and waits for the goroutine to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Refresh fetches the price once. On failure the previous quote is kept and
// "Failed to fetch Ether price." is shown.
func (p *Poller) Refresh(ctx context.Context) (Quote, error) {
	price, err := p.feed.CurrentPrice(ctx, p.asset)
	if err != nil {
		// Shutting down is not a fetch failure.
		if ctx.Err() == nil {
			p.sink.Show(notify.Error, roierr.ErrPriceUnavailable.Message, notify.DefaultDuration)
		}
		q, _ := p.Quote()
		return q, err
	}

	q := Quote{Price: price, UpdatedAt: p.now()}
	p.mu.Lock()
	p.quote, p.has = q, true
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(q)
	}
	return q, nil
}

// Quote returns the last successful quote and whether there is one.
func (p *Poller) Quote() (Quote, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quote, p.has
}
