// Package address holds the ordered set of Ethereum addresses a user tracks.
package address

import (
	"strings"
	"sync"

	"github.com/polar0/roi-tracker/internal/chain/eth"
	"github.com/polar0/roi-tracker/internal/notify"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Notification texts shown when the user edits the set.
const (
	MsgAdded   = "Address added!"
	MsgInvalid = "Invalid address"
)

// Set is an ordered set of distinct, validated addresses. Identity ignores case;
// members are stored in EIP-55 checksum form. It is safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	items []string
	index map[string]struct{}
	sink  notify.Sink
}

// NewSet builds a set from addrs, failing on the first invalid one.
// Duplicates are collapsed.
func NewSet(addrs ...string) (*Set, error) {
	s := &Set{index: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		if _, err := s.add(a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithNotifications makes Add report its outcome through sink.
func (s *Set) WithNotifications(sink notify.Sink) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
	return s
}

// Add validates addr and appends it if new. Adding an address already present
// is not an error; added reports whether the set grew.
func (s *Set) Add(addr string) (bool, error) {
	added, err := s.add(addr)

	s.mu.RLock()
	sink := s.sink
	s.mu.RUnlock()
	if sink != nil {
		if err != nil {
			sink.Show(notify.Error, MsgInvalid, notify.DefaultDuration)
		} else {
			sink.Show(notify.Info, MsgAdded, notify.DefaultDuration)
		}
	}
	return added, err
}

func (s *Set) add(addr string) (bool, error) {
	normalized, err := eth.NormalizeAddress(addr)
	if err != nil {
		return false, err
	}

	key := strings.ToLower(normalized)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.index[key]; dup {
		return false, nil
	}
	s.index[key] = struct{}{}
	s.items = append(s.items, normalized)
	return true, nil
}

// Remove deletes addr from the set and reports whether it was present.
func (s *Set) Remove(addr string) bool {
	key := strings.ToLower(strings.TrimSpace(addr))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[key]; !ok {
		return false
	}
	delete(s.index, key)
	for i, a := range s.items {
		if strings.ToLower(a) == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether addr is in the set.
func (s *Set) Contains(addr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[strings.ToLower(strings.TrimSpace(addr))]
	return ok
}

// Len returns the number of addresses.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IsEmpty reports whether the set has no addresses. A nil set is empty.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

// Slice returns a copy of the addresses in insertion order.
func (s *Set) Slice() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// ErrorMessage returns the user-facing text for an address error.
func ErrorMessage(err error) string {
	if roierr.Is(err, roierr.ErrInvalidAddress) || roierr.Is(err, roierr.ErrInvalidChecksum) {
		return MsgInvalid
	}
	return roierr.UserMessage(err)
}
