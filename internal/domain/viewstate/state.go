// Package viewstate implements the per-screen fetch lifecycle:
// idle -> loading -> ready | empty | failed, re-entering loading on every
// trigger. Results are tagged with the generation that requested them and
// only the newest generation may settle the state.
package viewstate

import (
	"sync"
	"time"

	apperrors "github.com/harvesta/companion/pkg/errors"
	"github.com/harvesta/companion/pkg/metrics"
	"github.com/harvesta/companion/pkg/util"
)

// Status is the display mode of a screen.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
)

// Failure describes why the latest fetch failed.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// State is an immutable copy of a machine at one instant. Data holds the
// last successful payload; it survives later failures and is cleared only
// by an empty result.
type State[T any] struct {
	Status     Status             `json:"status"`
	Data       T                  `json:"data"`
	HasData    bool               `json:"hasData"`
	Failure    *Failure           `json:"failure,omitempty"`
	Generation uint64             `json:"generation"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	Stats      metrics.FetchStats `json:"stats"`
}

// Machine guards one screen's State. Safe for concurrent use.
type Machine[T any] struct {
	mu       sync.Mutex
	state    State[T]
	inflight map[uint64]time.Time
	now      util.Clock
}

// New returns a machine in the idle state.
func New[T any](clock util.Clock) *Machine[T] {
	m := &Machine[T]{
		inflight: make(map[uint64]time.Time),
		now:      clock.OrDefault(),
	}
	m.state.Status = StatusIdle
	m.state.UpdatedAt = m.now()
	return m
}

// Begin enters loading and returns the generation id the caller must
// present when settling.
func (m *Machine[T]) Begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.state.Generation++
	gen := m.state.Generation
	m.inflight[gen] = now
	m.state.Status = StatusLoading
	m.state.Failure = nil
	m.state.UpdatedAt = now
	m.state.Stats.Started++
	return gen
}

// Succeed settles gen with data. It reports false when gen is stale.
func (m *Machine[T]) Succeed(gen uint64, data T) bool {
	return m.settle(gen, func(s *State[T]) {
		s.Status = StatusReady
		s.Data = data
		s.HasData = true
		s.Stats.Completed++
	})
}

// Empty settles gen with a successful but meaningless payload.
func (m *Machine[T]) Empty(gen uint64) bool {
	return m.settle(gen, func(s *State[T]) {
		var zero T
		s.Status = StatusEmpty
		s.Data = zero
		s.HasData = false
		s.Stats.Completed++
	})
}

// Fail settles gen with err, keeping any previously loaded data.
func (m *Machine[T]) Fail(gen uint64, err error) bool {
	return m.settle(gen, func(s *State[T]) {
		s.Status = StatusFailed
		s.Failure = &Failure{
			Code:    apperrors.CodeOf(err, apperrors.CodeUpstream),
			Message: apperrors.MessageOf(err),
		}
		s.Stats.Failed++
	})
}

// Snapshot returns a copy of the current state.
func (m *Machine[T]) Snapshot() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.state
	if m.state.Failure != nil {
		failure := *m.state.Failure
		out.Failure = &failure
	}
	return out
}

func (m *Machine[T]) settle(gen uint64, apply func(*State[T])) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	started, ok := m.inflight[gen]
	if !ok {
		return false
	}
	delete(m.inflight, gen)
	now := m.now()
	if gen != m.state.Generation {
		m.state.Stats.StaleDiscards++
		return false
	}
	apply(&m.state)
	m.state.UpdatedAt = now
	m.state.Stats.LastLatencyMs = now.Sub(started).Milliseconds()
	return true
}
