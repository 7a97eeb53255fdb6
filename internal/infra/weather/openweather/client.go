package openweather

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/remote"
	"github.com/harvesta/companion/internal/domain/weather"
	"github.com/harvesta/companion/internal/infra/upstream"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	defaultUnits   = "metric"
)

// Client fetches current conditions from OpenWeatherMap.
type Client struct {
	baseURL string
	apiKey  string
	units   string
	caller  *upstream.Caller
	logger  *slog.Logger
}

// NewClient builds a weather client.
func NewClient(baseURL, apiKey, units string, caller *upstream.Caller, logger *slog.Logger) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if strings.TrimSpace(units) == "" {
		units = defaultUnits
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  apiKey,
		units:   units,
		caller:  caller,
		logger:  logger.With("component", "openweather.client"),
	}
}

type apiResponse struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// Fetch returns the current weather at the given coordinates.
func (c *Client) Fetch(ctx context.Context, at capability.Coordinates) (weather.Snapshot, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	query.Set("appid", c.apiKey)
	query.Set("units", c.units)
	endpoint := fmt.Sprintf("%s/weather?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return weather.Snapshot{}, remote.NetworkUnreachable(remote.OpFetchWeather, fmt.Errorf("build request: %w", err))
	}
	resp, err := c.caller.Do(ctx, remote.OpFetchWeather, req)
	if err != nil {
		return weather.Snapshot{}, err
	}

	var raw apiResponse
	if err := upstream.DecodeJSON(remote.OpFetchWeather, resp.Body, &raw); err != nil {
		return weather.Snapshot{}, err
	}
	snap := weather.Snapshot{
		TemperatureC: raw.Main.Temp,
		Location:     raw.Name,
		Coordinates:  at,
	}
	if len(raw.Weather) > 0 {
		snap.Description = raw.Weather[0].Description
	}
	if raw.Dt > 0 {
		snap.ObservedAt = time.Unix(raw.Dt, 0).UTC()
	}
	c.logger.Debug("weather fetched", "location", snap.Location)
	return snap, nil
}
