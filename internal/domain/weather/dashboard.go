package weather

import (
	"context"
	"errors"
	"log/slog"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/remote"
	"github.com/harvesta/companion/internal/domain/viewstate"
	apperrors "github.com/harvesta/companion/pkg/errors"
	"github.com/harvesta/companion/pkg/util"
)

// DashboardState is the dashboard as the presentation layer sees it.
type DashboardState struct {
	viewstate.State[Snapshot]
	View DashboardView `json:"view"`
}

// DashboardController drives the home screen's weather card. Weather is
// fetched once per screen session: focus triggers are ignored once data
// is present.
type DashboardController struct {
	cfg          Config
	client       Client
	capabilities capability.Provider
	notifier     notice.Notifier
	machine      *viewstate.Machine[Snapshot]
	tasks        viewstate.Tasks
	now          util.Clock
	logger       *slog.Logger
}

// NewDashboardController builds an idle controller.
func NewDashboardController(cfg Config, client Client, capabilities capability.Provider, notifier notice.Notifier, logger *slog.Logger) *DashboardController {
	if notifier == nil {
		notifier = notice.Discard
	}
	now := cfg.Clock.OrDefault()
	return &DashboardController{
		cfg:          cfg,
		client:       client,
		capabilities: capabilities,
		notifier:     notifier,
		machine:      viewstate.New[Snapshot](now),
		now:          now,
		logger:       componentLogger(logger, cfg.Session),
	}
}

// Trigger starts a background fetch. pos, when set, replaces the position
// reported by the capability provider. It reports false when the trigger
// was ignored.
func (c *DashboardController) Trigger(reason viewstate.Trigger, pos *capability.Coordinates) (uint64, bool) {
	if c.skip(reason) {
		return c.machine.Snapshot().Generation, false
	}
	gen := c.machine.Begin()
	c.tasks.Go(func() {
		c.run(context.Background(), gen, reason, pos)
	})
	return gen, true
}

// Load fetches synchronously unless the trigger is ignored. Cancelling ctx
// does not abort the fetch.
func (c *DashboardController) Load(ctx context.Context, reason viewstate.Trigger, pos *capability.Coordinates) DashboardState {
	if !c.skip(reason) {
		gen := c.machine.Begin()
		c.run(context.WithoutCancel(ctx), gen, reason, pos)
	}
	return c.State()
}

// State returns the current screen state.
func (c *DashboardController) State() DashboardState {
	state := c.machine.Snapshot()
	var snap *Snapshot
	if state.HasData {
		data := state.Data
		snap = &data
	}
	return DashboardState{State: state, View: BuildDashboardView(snap, c.now(), c.cfg.Location)}
}

// Wait blocks until background fetches have settled.
func (c *DashboardController) Wait() {
	c.tasks.Wait()
}

// Pending is the number of fetches still running.
func (c *DashboardController) Pending() int {
	return c.tasks.Pending()
}

func (c *DashboardController) skip(reason viewstate.Trigger) bool {
	if reason != viewstate.TriggerFocus {
		return false
	}
	state := c.machine.Snapshot()
	return state.HasData
}

func (c *DashboardController) run(ctx context.Context, gen uint64, reason viewstate.Trigger, pos *capability.Coordinates) {
	c.logger.Debug("loading weather", "generation", gen, "trigger", reason)
	provider := c.capabilities
	if provider == nil {
		c.fail(ctx, gen, remote.PermissionDenied("location services unavailable"))
		return
	}
	if pos != nil {
		provider = capability.WithPosition(provider, *pos)
	}

	status, err := provider.RequestPermission(ctx, capability.PermissionLocation)
	if err != nil || status != capability.StatusGranted {
		if err != nil {
			c.logger.Warn("location permission request failed", "error", err)
		}
		c.fail(ctx, gen, remote.PermissionDenied("location permission denied"))
		return
	}

	at, err := provider.CurrentPosition(ctx)
	if err == nil {
		err = at.Validate()
	}
	if err != nil {
		if errors.Is(err, capability.ErrPositionUnavailable) {
			err = apperrors.Wrap(apperrors.CodeValidation, "current position unavailable", err)
		} else {
			err = remote.Validation(remote.OpFetchWeather, err.Error())
		}
		c.fail(ctx, gen, err)
		return
	}

	snap, err := c.client.Fetch(ctx, at)
	if err != nil {
		c.fail(ctx, gen, err)
		return
	}
	if snap.Coordinates == (capability.Coordinates{}) {
		snap.Coordinates = at
	}
	if c.machine.Succeed(gen, snap) {
		c.logger.Info("weather loaded", "generation", gen, "description", snap.Description)
	}
}

func (c *DashboardController) fail(ctx context.Context, gen uint64, err error) {
	if !c.machine.Fail(gen, err) {
		c.logger.Debug("discarding stale failure", "generation", gen)
		return
	}
	title, message := "Error", "Failed to fetch weather information."
	switch remote.KindOf(err) {
	case remote.FailurePermissionDenied:
		title, message = "Permission Denied", "Allow location access to get weather information."
	case remote.FailureValidation:
		title, message = "Location Unavailable", "Could not determine your current location."
	}
	c.logger.Warn("weather fetch failed", "generation", gen, "error", err)
	n := notice.FromFailure(c.cfg.Session, notice.ScreenDashboard, title, message, err, c.now())
	if pubErr := c.notifier.Publish(ctx, n); pubErr != nil {
		c.logger.Warn("notice delivery failed", "error", pubErr)
	}
}
