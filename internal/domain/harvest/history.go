package harvest

import (
	"context"
	"log/slog"

	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/viewstate"
	"github.com/harvesta/companion/pkg/util"
)

// HistoryState is the history screen as the presentation layer sees it.
type HistoryState struct {
	viewstate.State[Series]
	View HistoryView `json:"view"`
}

// HistoryController drives the historical trend screen.
type HistoryController struct {
	cfg      Config
	client   PredictionClient
	notifier notice.Notifier
	machine  *viewstate.Machine[Series]
	tasks    viewstate.Tasks
	now      util.Clock
	logger   *slog.Logger
}

// NewHistoryController builds an idle controller.
func NewHistoryController(cfg Config, client PredictionClient, notifier notice.Notifier, logger *slog.Logger) *HistoryController {
	if notifier == nil {
		notifier = notice.Discard
	}
	now := cfg.Clock.OrDefault()
	return &HistoryController{
		cfg:      cfg,
		client:   client,
		notifier: notifier,
		machine:  viewstate.New[Series](now),
		now:      now,
		logger:   componentLogger(logger, "harvest.history", cfg.Session),
	}
}

// Trigger starts a background fetch and returns its generation.
func (c *HistoryController) Trigger(reason viewstate.Trigger) uint64 {
	gen := c.machine.Begin()
	c.tasks.Go(func() {
		c.run(context.Background(), gen, reason)
	})
	return gen
}

// Load fetches synchronously and returns the resulting state. Cancelling
// ctx does not abort the fetch; only its values are used.
func (c *HistoryController) Load(ctx context.Context, reason viewstate.Trigger) HistoryState {
	gen := c.machine.Begin()
	c.run(context.WithoutCancel(ctx), gen, reason)
	return c.State()
}

// State returns the current screen state with its chart arrays.
func (c *HistoryController) State() HistoryState {
	state := c.machine.Snapshot()
	var series Series
	if state.HasData {
		series = state.Data
	}
	return HistoryState{State: state, View: BuildHistoryView(series, c.cfg.Display)}
}

// Wait blocks until background fetches have settled.
func (c *HistoryController) Wait() {
	c.tasks.Wait()
}

// Pending is the number of fetches still running.
func (c *HistoryController) Pending() int {
	return c.tasks.Pending()
}

func (c *HistoryController) run(ctx context.Context, gen uint64, reason viewstate.Trigger) {
	c.logger.Debug("loading history", "generation", gen, "trigger", reason)
	series, err := c.client.FetchHistory(ctx)
	switch {
	case err != nil:
		if !c.machine.Fail(gen, err) {
			return
		}
		c.logger.Warn("history fetch failed", "generation", gen, "error", err)
		n := notice.FromFailure(c.cfg.Session, notice.ScreenHistory, "Error", "Failed to fetch historical data.", err, c.now())
		if err := c.notifier.Publish(ctx, n); err != nil {
			c.logger.Warn("notice delivery failed", "error", err)
		}
	case len(series) == 0:
		c.machine.Empty(gen)
	default:
		if c.machine.Succeed(gen, series.Ordered()) {
			c.logger.Info("history loaded", "generation", gen, "entries", len(series))
		}
	}
}
