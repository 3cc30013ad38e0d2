package tracker

import (
	"encoding/json"
	"fmt"

	"github.com/polar0/roi-tracker/internal/chain"
	"github.com/polar0/roi-tracker/internal/period"
)

// Progress checkpoints reported during a run, in order.
const (
	ProgressStarted     = 0
	ProgressBlocks      = 15
	ProgressNativeStart = 30
	ProgressNativeEnd   = 50
	ProgressTokenStart  = 70
	ProgressTokenEnd    = 95
	ProgressDone        = 100
)

// Status is the lifecycle state of a tracking result.
type Status int

// Statuses.
const (
	Idle Status = iota
	Running
	Complete
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Snapshot holds one asset's balance at the start and end of the period.
// A side whose query failed is zero and flagged unavailable.
type Snapshot struct {
	Start            chain.Amount
	End              chain.Amount
	StartUnavailable bool
	EndUnavailable   bool
}

// Available reports whether both sides were read.
func (s Snapshot) Available() bool {
	return !s.StartUnavailable && !s.EndUnavailable
}

// Change returns End - Start.
func (s Snapshot) Change() chain.Amount {
	return s.End.Sub(s.Start)
}

// Balances groups the native coin and tracked token snapshots.
type Balances struct {
	Native Snapshot
	Token  Snapshot
}

// Result is the state and output of one tracking run.
type Result struct {
	Period     period.Resolved
	StartBlock uint64
	EndBlock   chain.BlockRef
	Token      string
	Balances   Balances

	// Deposits is zero when tracking was off or the query failed.
	Deposits            chain.Amount
	DepositsTracked     bool
	DepositsUnavailable bool

	Progress int
	Status   Status
	// Reason is set when Status is Failed.
	Reason error
}

// ProgressFunc observes progress checkpoints.
type ProgressFunc func(pct int)
