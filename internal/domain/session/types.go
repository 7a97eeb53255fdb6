package session

import (
	"log/slog"
	"time"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/harvest"
	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/weather"
	"github.com/harvesta/companion/pkg/util"
)

// Config drives session lifetime.
type Config struct {
	Secret      string
	TokenTTL    time.Duration
	IdleTimeout time.Duration
	InboxSize   int
}

// Dependencies are the collaborators shared by every session's controllers.
// Controllers and inboxes themselves are never shared.
type Dependencies struct {
	Prediction   harvest.PredictionClient
	Weather      weather.Client
	Capabilities capability.Provider
	// Broadcast, when set, receives every notice besides the session inbox.
	Broadcast notice.Notifier
	Display   harvest.DisplayConfig
	Clock     util.Clock
	Logger    *slog.Logger
}

// Token is a signed session credential.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are extracted from a session token.
type Claims struct {
	SessionID string
	ExpiresAt time.Time
}
