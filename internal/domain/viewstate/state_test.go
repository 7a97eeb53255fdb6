package viewstate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/harvesta/companion/pkg/errors"
)

func TestMachineStartsIdle(t *testing.T) {
	m := New[string](fixedClock())
	state := m.Snapshot()
	require.Equal(t, StatusIdle, state.Status)
	require.False(t, state.HasData)
	require.Zero(t, state.Generation)
	require.True(t, state.Stats.IsZero())
}

func TestMachineReadyThenFailureKeepsData(t *testing.T) {
	m := New[string](fixedClock())

	gen := m.Begin()
	require.Equal(t, StatusLoading, m.Snapshot().Status)
	require.True(t, m.Succeed(gen, "snapshot-1"))
	require.Equal(t, StatusReady, m.Snapshot().Status)

	gen = m.Begin()
	state := m.Snapshot()
	require.Equal(t, StatusLoading, state.Status)
	require.Equal(t, "snapshot-1", state.Data)

	require.True(t, m.Fail(gen, apperrors.Wrap(apperrors.CodeNetworkUnreachable, "offline", errors.New("dial"))))
	state = m.Snapshot()
	require.Equal(t, StatusFailed, state.Status)
	require.True(t, state.HasData)
	require.Equal(t, "snapshot-1", state.Data)
	require.Equal(t, apperrors.CodeNetworkUnreachable, state.Failure.Code)
	require.Equal(t, "offline", state.Failure.Message)
	require.EqualValues(t, 1, state.Stats.Failed)
}

func TestMachineFirstLoadFailureHasNoData(t *testing.T) {
	m := New[string](fixedClock())
	gen := m.Begin()
	require.True(t, m.Fail(gen, errors.New("boom")))

	state := m.Snapshot()
	require.Equal(t, StatusFailed, state.Status)
	require.False(t, state.HasData)
	require.Equal(t, apperrors.CodeUpstream, state.Failure.Code)
}

func TestMachineEmptyClearsData(t *testing.T) {
	m := New[string](fixedClock())
	require.True(t, m.Succeed(m.Begin(), "old"))
	require.True(t, m.Empty(m.Begin()))

	state := m.Snapshot()
	require.Equal(t, StatusEmpty, state.Status)
	require.False(t, state.HasData)
	require.Empty(t, state.Data)
}

func TestMachineDiscardsStaleGenerations(t *testing.T) {
	m := New[string](fixedClock())
	first := m.Begin()
	second := m.Begin()

	// second completes first, then the slower first request arrives.
	require.True(t, m.Succeed(second, "fresh"))
	require.False(t, m.Succeed(first, "stale"))

	state := m.Snapshot()
	require.Equal(t, StatusReady, state.Status)
	require.Equal(t, "fresh", state.Data)
	require.EqualValues(t, 2, state.Stats.Started)
	require.EqualValues(t, 1, state.Stats.Completed)
	require.EqualValues(t, 1, state.Stats.StaleDiscards)
	require.Zero(t, state.Stats.InFlight())
}

func TestMachineStaleCompletionWhileNewerLoading(t *testing.T) {
	m := New[string](fixedClock())
	first := m.Begin()
	second := m.Begin()

	require.False(t, m.Fail(first, errors.New("late failure")))
	state := m.Snapshot()
	require.Equal(t, StatusLoading, state.Status)
	require.Nil(t, state.Failure)
	require.Equal(t, second, state.Generation)
	require.EqualValues(t, 1, state.Stats.InFlight())
}

func TestMachineIgnoresDoubleSettle(t *testing.T) {
	m := New[string](fixedClock())
	gen := m.Begin()
	require.True(t, m.Succeed(gen, "a"))
	require.False(t, m.Succeed(gen, "b"))
	require.False(t, m.Fail(99, errors.New("unknown")))
	require.Equal(t, "a", m.Snapshot().Data)
}

func TestMachineRecordsLatency(t *testing.T) {
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New[int](func() time.Time { return current })
	gen := m.Begin()
	current = current.Add(250 * time.Millisecond)
	require.True(t, m.Succeed(gen, 1))
	require.EqualValues(t, 250, m.Snapshot().Stats.LastLatencyMs)
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}
