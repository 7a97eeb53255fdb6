package harvest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/remote"
	"github.com/harvesta/companion/internal/domain/viewstate"
)

func TestHistoryControllerReady(t *testing.T) {
	client := &stubPredictionClient{
		historyFn: func(context.Context) (Series, error) {
			return Series{
				{CapturedAt: "2024-01-03T08:00:00", RipePercentage: float(30)},
				{CapturedAt: "2024-01-01T08:00:00", RipePercentage: float(10)},
				{CapturedAt: "2024-01-02T08:00:00", RipePercentage: float(20)},
			}, nil
		},
	}
	ctrl := NewHistoryController(testConfig(), client, nil, discardLogger())

	state := ctrl.Load(context.Background(), viewstate.TriggerMount)

	require.Equal(t, viewstate.StatusReady, state.Status)
	require.Equal(t, []float64{10, 20, 30}, state.View.Ripe)
	require.Equal(t, []string{"Jan 1", "Jan 2", "Jan 3"}, state.View.Labels)
	require.Equal(t, "2024-01-01T08:00:00", state.Data[0].CapturedAt)
}

func TestHistoryControllerEmptySeries(t *testing.T) {
	client := &stubPredictionClient{
		historyFn: func(context.Context) (Series, error) {
			return Series{}, nil
		},
	}
	ctrl := NewHistoryController(testConfig(), client, nil, discardLogger())

	state := ctrl.Load(context.Background(), viewstate.TriggerMount)

	require.Equal(t, viewstate.StatusEmpty, state.Status)
	require.Zero(t, state.View.Len())
	require.Equal(t, "No data available.", state.View.Message)
}

func TestHistoryControllerPermissionFailureIsModal(t *testing.T) {
	client := &stubPredictionClient{
		historyFn: func(context.Context) (Series, error) {
			return nil, remote.UpstreamStatus(remote.OpFetchHistory, 403, "")
		},
	}
	notifier := &recordingNotifier{}
	ctrl := NewHistoryController(testConfig(), client, notifier, discardLogger())

	state := ctrl.Load(context.Background(), viewstate.TriggerMount)

	require.Equal(t, viewstate.StatusFailed, state.Status)
	require.Equal(t, string(remote.FailurePermissionDenied), state.Failure.Code)
	notices := notifier.all()
	require.Len(t, notices, 1)
	require.Equal(t, notice.KindModal, notices[0].Kind)
	require.Equal(t, notice.ScreenHistory, notices[0].Screen)
	require.Equal(t, "Failed to fetch historical data.", notices[0].Message)
}

func TestHistoryControllerLoadIgnoresCancelledCaller(t *testing.T) {
	client := &stubPredictionClient{
		historyFn: func(ctx context.Context) (Series, error) {
			if err := ctx.Err(); err != nil {
				return nil, remote.NetworkUnreachable(remote.OpFetchHistory, err)
			}
			return Series{{CapturedAt: "2024-01-01T00:00:00", RipePercentage: float(10)}}, nil
		},
	}
	ctrl := NewHistoryController(testConfig(), client, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := ctrl.Load(ctx, viewstate.TriggerMount)

	require.Equal(t, viewstate.StatusReady, state.Status)
	require.Equal(t, []float64{10}, state.View.Ripe)
}
