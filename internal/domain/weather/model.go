package weather

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/pkg/util"
)

// Snapshot is the current weather at a position.
type Snapshot struct {
	TemperatureC *float64               `json:"temperatureC,omitempty"`
	Description  string                 `json:"description"`
	Location     string                 `json:"location,omitempty"`
	Coordinates  capability.Coordinates `json:"coordinates"`
	ObservedAt   time.Time              `json:"observedAt,omitempty"`
}

// Client fetches current conditions from a weather provider.
type Client interface {
	Fetch(ctx context.Context, at capability.Coordinates) (Snapshot, error)
}

// Feature is a navigation tile on the dashboard.
type Feature struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Target string `json:"target"`
}

// Features are the dashboard tiles in display order.
var Features = []Feature{
	{ID: "1", Title: "Fertilization", Target: "fertilization"},
	{ID: "2", Title: "Disease Detection", Target: "disease-detection"},
	{ID: "3", Title: "Pest Management", Target: "pest-management"},
	{ID: "4", Title: "Harvest", Target: "harvest"},
}

// WeatherCard is the weather block of the dashboard.
type WeatherCard struct {
	Temperature string `json:"temperature"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// DashboardView is the display model of the dashboard.
type DashboardView struct {
	Greeting string       `json:"greeting"`
	Today    string       `json:"today"`
	Weather  *WeatherCard `json:"weather,omitempty"`
	Features []Feature    `json:"features"`
}

// Config wires the dashboard of one session.
type Config struct {
	Session  string
	Location *time.Location
	Clock    util.Clock
}

const (
	greeting        = "Hello, Farmer"
	todayLayout     = "Monday, January 2"
	unknownReadings = "--"
)

// FormatTemperature renders a Celsius reading like the dashboard card does.
func FormatTemperature(c *float64) string {
	if c == nil {
		return unknownReadings + "°C"
	}
	return strconv.FormatFloat(*c, 'f', -1, 64) + "°C"
}

// BuildDashboardView derives the dashboard display model; a nil snapshot
// leaves the weather card out.
func BuildDashboardView(s *Snapshot, now time.Time, loc *time.Location) DashboardView {
	if loc == nil {
		loc = time.UTC
	}
	view := DashboardView{
		Greeting: greeting,
		Today:    now.In(loc).Format(todayLayout),
		Features: Features,
	}
	if s != nil {
		view.Weather = &WeatherCard{
			Temperature: FormatTemperature(s.TemperatureC),
			Description: s.Description,
			Location:    s.Location,
		}
	}
	return view
}

func componentLogger(logger *slog.Logger, session string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "weather.dashboard", "session", session)
}
