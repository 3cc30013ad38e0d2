// Package tracker runs the ROI tracking workflow: resolve the period, find the
// bounding blocks, read native and token balances at both ends, then sum exchange
// deposits. Calls are strictly sequential and progress advances through fixed
// checkpoints.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/chain/eth"
	"github.com/polar0/roi-tracker/internal/metrics"
	"github.com/polar0/roi-tracker/internal/notify"
	"github.com/polar0/roi-tracker/internal/period"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// DefaultCallTimeout bounds each collaborator call.
const DefaultCallTimeout = 30 * time.Second

// DefaultRetry is applied around each collaborator call. Collaborators that
// already retry internally should be given chain.NoRetry instead, since the
// two policies multiply.
func DefaultRetry() chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: 2, BaseDelay: 250 * time.Millisecond, MaxDelay: time.Second}
}

// Workflow drives one tracking run at a time. It holds no per-run state and is
// safe to reuse; Session adds the one-run-at-a-time guard.
type Workflow struct {
	blocks        BlockResolver
	balances      BalanceReader
	deposits      DepositReader
	sink          notify.Sink
	log           Logger
	token         string
	callTimeout   time.Duration
	retry         chain.RetryConfig
	trackDeposits bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithDepositReader sets the deposit collaborator. Without one, deposits are zero.
func WithDepositReader(d DepositReader) Option {
	return func(w *Workflow) { w.deposits = d }
}

// WithSink sets where user notifications go.
func WithSink(s notify.Sink) Option {
	return func(w *Workflow) { w.sink = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(w *Workflow) { w.log = l }
}

// WithToken overrides the tracked token contract (WETH by default).
func WithToken(contract string) Option {
	return func(w *Workflow) { w.token = contract }
}

// WithCallTimeout overrides DefaultCallTimeout. Zero disables the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(w *Workflow) { w.callTimeout = d }
}

// WithRetry overrides DefaultRetry.
func WithRetry(cfg chain.RetryConfig) Option {
	return func(w *Workflow) { w.retry = cfg }
}

// WithDepositTracking sets the default deposit toggle used by Run.
func WithDepositTracking(enabled bool) Option {
	return func(w *Workflow) { w.trackDeposits = enabled }
}

// NewWorkflow creates a workflow over the given collaborators.
func NewWorkflow(blocks BlockResolver, balances BalanceReader, opts ...Option) *Workflow {
	w := &Workflow{
		blocks:        blocks,
		balances:      balances,
		sink:          notify.Nop{},
		log:           nopLogger{},
		token:         eth.WETHMainnet,
		callTimeout:   DefaultCallTimeout,
		retry:         DefaultRetry(),
		trackDeposits: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Token returns the tracked token contract.
func (w *Workflow) Token() string {
	return w.token
}

// Retry returns the retry policy applied around each collaborator call.
func (w *Workflow) Retry() chain.RetryConfig {
	return w.retry
}

// Run executes one tracking run. onProgress may be nil.
//
// A run that fails still returns its Result (Status Failed, Reason set) along
// with the error. Validation failures happen before any collaborator call.
// Balance and deposit failures are reported through the sink and leave the
// affected value unavailable; the run still completes.
func (w *Workflow) Run(ctx context.Context, addresses []string, sel period.Selector, now time.Time, onProgress ProgressFunc) (*Result, error) {
	return w.run(ctx, addresses, sel, now, onProgress, w.trackDeposits)
}

//nolint:gocognit,gocyclo // Linear pipeline with one branch per step
func (w *Workflow) run(ctx context.Context, addresses []string, sel period.Selector, now time.Time, onProgress ProgressFunc, trackDeposits bool) (*Result, error) {
	res := &Result{
		Token:           w.token,
		Deposits:        chain.ZeroAmount(chain.ETHDecimals),
		DepositsTracked: trackDeposits,
		Status:          Running,
	}
	advance := func(pct int) {
		res.Progress = pct
		if onProgress != nil {
			onProgress(pct)
		}
	}

	resolved, err := period.Resolve(addresses, sel, now)
	if err != nil {
		w.notifyError(err)
		return w.fail(res, err)
	}
	res.Period = resolved
	w.log.Debug("tracking %d address(es) from %s to %s", len(addresses), resolved.Start.Format(time.RFC3339), resolved.End.Format(time.RFC3339))
	advance(ProgressStarted)

	// Blocks
	res.StartBlock, err = call(ctx, w, func(ctx context.Context) (uint64, error) {
		return w.blocks.BlockAt(ctx, resolved.Start)
	})
	if err != nil {
		return w.failStep(ctx, res, "start block", err)
	}
	if resolved.EndsAtNow(now) {
		res.EndBlock = chain.LatestBlock()
	} else {
		end, endErr := call(ctx, w, func(ctx context.Context) (uint64, error) {
			return w.blocks.BlockAt(ctx, resolved.End)
		})
		if endErr != nil {
			return w.failStep(ctx, res, "end block", endErr)
		}
		res.EndBlock = chain.BlockAt(end)
	}
	w.log.Debug("blocks resolved: start=%d end=%s", res.StartBlock, res.EndBlock)
	advance(ProgressBlocks)

	startRef := chain.BlockAt(res.StartBlock)
	steps := []struct {
		name        string
		ref         chain.BlockRef
		token       string
		decimals    int
		amount      *chain.Amount
		unavailable *bool
		checkpoint  int
	}{
		{"native start", startRef, "", chain.ETHDecimals, &res.Balances.Native.Start, &res.Balances.Native.StartUnavailable, ProgressNativeStart},
		{"native end", res.EndBlock, "", chain.ETHDecimals, &res.Balances.Native.End, &res.Balances.Native.EndUnavailable, ProgressNativeEnd},
		{"token start", startRef, w.token, chain.WETHDecimals, &res.Balances.Token.Start, &res.Balances.Token.StartUnavailable, ProgressTokenStart},
		{"token end", res.EndBlock, w.token, chain.WETHDecimals, &res.Balances.Token.End, &res.Balances.Token.EndUnavailable, ProgressTokenEnd},
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			return w.canceled(ctx, res)
		}
		amount, balErr := call(ctx, w, func(ctx context.Context) (chain.Amount, error) {
			return w.balances.Balance(ctx, addresses, step.ref, step.token)
		})
		if balErr != nil {
			if ctx.Err() != nil {
				return w.canceled(ctx, res)
			}
			w.log.Error("%s balance at %s: %v", step.name, step.ref, balErr)
			w.notifyError(balErr)
			amount = chain.ZeroAmount(step.decimals)
			*step.unavailable = true
		}
		*step.amount = amount
		advance(step.checkpoint)
	}

	if trackDeposits && w.deposits != nil {
		if ctx.Err() != nil {
			return w.canceled(ctx, res)
		}
		total, depErr := call(ctx, w, func(ctx context.Context) (chain.Amount, error) {
			return w.deposits.Deposits(ctx, addresses, startRef, res.EndBlock)
		})
		switch {
		case depErr == nil:
			res.Deposits = total
		case ctx.Err() != nil:
			return w.canceled(ctx, res)
		default:
			w.log.Error("deposits %d..%s: %v", res.StartBlock, res.EndBlock, depErr)
			w.notifyError(depErr)
			res.DepositsUnavailable = true
		}
	}

	advance(ProgressDone)
	res.Status = Complete
	metrics.Global.RecordRun(true)
	return res, nil
}

// call runs one collaborator invocation under the per-call timeout and retry policy.
func call[T any](ctx context.Context, w *Workflow, op func(context.Context) (T, error)) (T, error) {
	return chain.RetryWithConfig(ctx, w.retry, func() (T, error) {
		callCtx := ctx
		if w.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, w.callTimeout)
			defer cancel()
		}
		return op(callCtx)
	})
}

// failStep ends the run after a fatal collaborator error.
func (w *Workflow) failStep(ctx context.Context, res *Result, step string, err error) (*Result, error) {
	if ctx.Err() != nil {
		return w.canceled(ctx, res)
	}
	if !roierr.Is(err, roierr.ErrBlockLookup) {
		err = roierr.WithCause(roierr.ErrBlockLookup, err)
	}
	w.log.Error("%s: %v", step, err)
	w.notifyError(err)
	return w.fail(res, err)
}

func (w *Workflow) canceled(ctx context.Context, res *Result) (*Result, error) {
	err := roierr.WithCause(roierr.ErrRunCanceled, ctx.Err())
	w.log.Debug("run canceled at %d%%", res.Progress)
	return w.fail(res, err)
}

func (w *Workflow) fail(res *Result, err error) (*Result, error) {
	res.Status = Failed
	res.Reason = err
	metrics.Global.RecordRun(false)
	return res, err
}

func (w *Workflow) notifyError(err error) {
	w.sink.Show(notify.Error, roierr.UserMessage(err), notify.DefaultDuration)
}

// IsValidation reports whether err is one of the input validation failures that
// stop a run before any network call.
func IsValidation(err error) bool {
	for _, target := range []error{
		roierr.ErrNoAddressSelected,
		roierr.ErrMissingDateField,
		roierr.ErrInvalidDate,
		roierr.ErrInvalidPeriodOrder,
		roierr.ErrFutureDateNotAllowed,
		roierr.ErrUnknownPeriod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
