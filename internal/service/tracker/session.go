package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/polar0/roi-tracker/internal/address"
	"github.com/polar0/roi-tracker/internal/period"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Session is the per-user owner of the address set, the deposit toggle and the
// latest result. It allows one run at a time.
type Session struct {
	workflow  *Workflow
	addresses *address.Set

	mu            sync.Mutex
	trackDeposits bool
	running       bool
	last          *Result
}

// NewSession creates a session. A nil set starts empty.
func NewSession(w *Workflow, addresses *address.Set) *Session {
	if addresses == nil {
		addresses, _ = address.NewSet()
	}
	return &Session{
		workflow:      w,
		addresses:     addresses,
		trackDeposits: w.trackDeposits,
	}
}

// Addresses returns the session's address set.
func (s *Session) Addresses() *address.Set {
	return s.addresses
}

// SetTrackDeposits turns deposit tracking on or off for later runs.
func (s *Session) SetTrackDeposits(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackDeposits = enabled
}

// TrackDeposits reports the deposit toggle.
func (s *Session) TrackDeposits() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackDeposits
}

// Run tracks the session's addresses over sel. It fails with ErrRunInProgress
// while another run is active. The result replaces the previous one.
func (s *Session) Run(ctx context.Context, sel period.Selector, now time.Time, onProgress ProgressFunc) (*Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, roierr.ErrRunInProgress
	}
	s.running = true
	track := s.trackDeposits
	s.mu.Unlock()

	res, err := s.workflow.run(ctx, s.addresses.Slice(), sel, now, onProgress, track)

	s.mu.Lock()
	s.running = false
	s.last = res
	s.mu.Unlock()
	return res, err
}

// Last returns the result of the most recent run, or nil.
func (s *Session) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Status returns Running during a run, otherwise the last result's status
// (Idle before the first run).
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.running:
		return Running
	case s.last == nil:
		return Idle
	default:
		return s.last.Status
	}
}
