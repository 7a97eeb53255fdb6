package viewstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTrigger(t *testing.T) {
	tests := map[string]Trigger{
		"":        TriggerRefresh,
		"refresh": TriggerRefresh,
		" Mount ": TriggerMount,
		"FOCUS":   TriggerFocus,
	}
	for raw, want := range tests {
		got, err := ParseTrigger(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseTrigger("swipe")
	require.Error(t, err)
}

func TestTasksPending(t *testing.T) {
	var tasks Tasks
	release := make(chan struct{})
	tasks.Go(func() { <-release })
	require.Equal(t, 1, tasks.Pending())

	close(release)
	tasks.Wait()
	require.Zero(t, tasks.Pending())
}
