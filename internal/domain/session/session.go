package session

import (
	"context"
	"sync"
	"time"

	"github.com/harvesta/companion/internal/domain/harvest"
	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/viewstate"
	"github.com/harvesta/companion/internal/domain/weather"
)

// Session is one client's set of screens. Each screen has its own
// controller; nothing here is shared with other sessions.
type Session struct {
	ID        string
	CreatedAt time.Time

	Dashboard *weather.DashboardController
	Summary   *harvest.SummaryController
	History   *harvest.HistoryController
	Upload    *harvest.UploadController

	inbox *notice.Inbox

	mu       sync.Mutex
	lastSeen time.Time
}

// Notices drains the session's pending notices.
func (s *Session) Notices() []notice.Notice {
	return s.inbox.Drain()
}

// LastSeen reports the last time the session was used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at.After(s.lastSeen) {
		s.lastSeen = at
	}
}

// SubmitUpload uploads the staged batch. After a successful upload the
// harvest summary is mounted again so it shows the new prediction.
func (s *Session) SubmitUpload(ctx context.Context) (harvest.SubmitOutcome, error) {
	outcome, err := s.Upload.Submit(ctx)
	if err != nil {
		return outcome, err
	}
	if outcome.Navigation.Screen == notice.ScreenHarvest {
		s.Summary.Trigger(viewstate.TriggerMount)
	}
	return outcome, nil
}

// Busy reports whether any background fetch is still running.
func (s *Session) Busy() bool {
	return s.Dashboard.Pending()+s.Summary.Pending()+s.History.Pending() > 0
}

// Wait blocks until every background fetch of the session has settled.
func (s *Session) Wait() {
	s.Dashboard.Wait()
	s.Summary.Wait()
	s.History.Wait()
}

func newSession(id string, deps Dependencies, inboxSize int, now time.Time) *Session {
	inbox := notice.NewInbox(inboxSize)
	notifier := notice.FanOut(inbox, deps.Broadcast)
	clock := deps.Clock.OrDefault()
	hcfg := harvest.Config{Session: id, Display: deps.Display, Clock: clock}

	return &Session{
		ID:        id,
		CreatedAt: now,
		lastSeen:  now,
		inbox:     inbox,
		Dashboard: weather.NewDashboardController(weather.Config{
			Session:  id,
			Location: deps.Display.Location,
			Clock:    clock,
		}, deps.Weather, deps.Capabilities, notifier, deps.Logger),
		Summary: harvest.NewSummaryController(hcfg, deps.Prediction, notifier, deps.Logger),
		History: harvest.NewHistoryController(hcfg, deps.Prediction, notifier, deps.Logger),
		Upload:  harvest.NewUploadController(hcfg, deps.Prediction, deps.Capabilities, notifier, deps.Logger),
	}
}
