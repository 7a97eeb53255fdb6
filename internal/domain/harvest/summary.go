package harvest

import (
	"context"
	"log/slog"

	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/viewstate"
	"github.com/harvesta/companion/pkg/util"
)

// SummaryState is the harvest summary screen as the presentation layer sees it.
type SummaryState struct {
	viewstate.State[*Snapshot]
	View SummaryView `json:"view"`
}

// SummaryController drives the latest-prediction screen.
type SummaryController struct {
	cfg      Config
	client   PredictionClient
	notifier notice.Notifier
	machine  *viewstate.Machine[*Snapshot]
	tasks    viewstate.Tasks
	now      util.Clock
	logger   *slog.Logger
}

// NewSummaryController builds an idle controller.
func NewSummaryController(cfg Config, client PredictionClient, notifier notice.Notifier, logger *slog.Logger) *SummaryController {
	if notifier == nil {
		notifier = notice.Discard
	}
	now := cfg.Clock.OrDefault()
	return &SummaryController{
		cfg:      cfg,
		client:   client,
		notifier: notifier,
		machine:  viewstate.New[*Snapshot](now),
		now:      now,
		logger:   componentLogger(logger, "harvest.summary", cfg.Session),
	}
}

// Trigger starts a background fetch and returns its generation.
func (c *SummaryController) Trigger(reason viewstate.Trigger) uint64 {
	gen := c.machine.Begin()
	c.tasks.Go(func() {
		c.run(context.Background(), gen, reason)
	})
	return gen
}

// Load fetches synchronously and returns the resulting state. Cancelling
// ctx does not abort the fetch; only its values are used.
func (c *SummaryController) Load(ctx context.Context, reason viewstate.Trigger) SummaryState {
	gen := c.machine.Begin()
	c.run(context.WithoutCancel(ctx), gen, reason)
	return c.State()
}

// State returns the current screen state.
func (c *SummaryController) State() SummaryState {
	state := c.machine.Snapshot()
	var snap *Snapshot
	if state.HasData {
		snap = state.Data
	}
	return SummaryState{State: state, View: BuildSummaryView(snap, c.cfg.Display)}
}

// Wait blocks until background fetches have settled.
func (c *SummaryController) Wait() {
	c.tasks.Wait()
}

// Pending is the number of fetches still running.
func (c *SummaryController) Pending() int {
	return c.tasks.Pending()
}

func (c *SummaryController) run(ctx context.Context, gen uint64, reason viewstate.Trigger) {
	c.logger.Debug("loading latest prediction", "generation", gen, "trigger", reason)
	snap, err := c.client.FetchLatest(ctx)
	switch {
	case err != nil:
		if !c.machine.Fail(gen, err) {
			c.logger.Debug("discarding stale failure", "generation", gen)
			return
		}
		c.logger.Warn("latest prediction fetch failed", "generation", gen, "error", err)
		c.publish(ctx, notice.FromFailure(c.cfg.Session, notice.ScreenHarvest, "Error", "Failed to fetch latest data.", err, c.now()))
	case snap == nil:
		if c.machine.Empty(gen) {
			c.logger.Info("no prediction available yet", "generation", gen)
		}
	default:
		if c.machine.Succeed(gen, snap) {
			c.logger.Info("latest prediction loaded", "generation", gen, "captured_at", snap.CapturedAt)
		}
	}
}

func (c *SummaryController) publish(ctx context.Context, n notice.Notice) {
	if err := c.notifier.Publish(ctx, n); err != nil {
		c.logger.Warn("notice delivery failed", "error", err)
	}
}
