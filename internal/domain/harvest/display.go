package harvest

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Chart colors shared by the summary and history screens.
const (
	ColorRipe        = "#FF4C4C"
	ColorHalfRipe    = "#FFA500"
	ColorUnripe      = "#4CAF50"
	ColorGrowthSpeed = "#2196F3"
)

// DisplayConfig controls how values are rendered for the presentation layer.
type DisplayConfig struct {
	Location        *time.Location
	TimestampLayout string
	DateLabelLayout string
	Unavailable     string
	NoData          string
}

// DefaultDisplayConfig mirrors the mobile app's en-US rendering.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Location:        time.UTC,
		TimestampLayout: "1/2/2006, 3:04:05 PM",
		DateLabelLayout: "Jan 2",
		Unavailable:     "N/A",
		NoData:          "No data available.",
	}
}

func (c DisplayConfig) withDefaults() DisplayConfig {
	def := DefaultDisplayConfig()
	if c.Location == nil {
		c.Location = def.Location
	}
	if strings.TrimSpace(c.TimestampLayout) == "" {
		c.TimestampLayout = def.TimestampLayout
	}
	if strings.TrimSpace(c.DateLabelLayout) == "" {
		c.DateLabelLayout = def.DateLabelLayout
	}
	if c.Unavailable == "" {
		c.Unavailable = def.Unavailable
	}
	if c.NoData == "" {
		c.NoData = def.NoData
	}
	return c
}

// CoalesceMissing is the charting policy for absent values: missing is zero,
// never an error.
func CoalesceMissing(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// FormatTimestamp renders raw with layout in loc, or "" when raw is absent
// or unparseable.
func FormatTimestamp(raw string, layout string, loc *time.Location) string {
	ts, ok := parseTimestamp(raw)
	if !ok {
		return ""
	}
	if loc != nil {
		ts = ts.In(loc)
	}
	return ts.Format(layout)
}

// ChartSlice is one category of the ripeness pie chart.
type ChartSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// RipenessSlices maps the percentage triple to chart records in the fixed
// order Ripe, Semi-Ripe, Unripe.
func RipenessSlices(s Snapshot) []ChartSlice {
	return []ChartSlice{
		{Label: "Ripe", Value: CoalesceMissing(s.RipePercentage), Color: ColorRipe},
		{Label: "Semi-Ripe", Value: CoalesceMissing(s.HalfRipePercentage), Color: ColorHalfRipe},
		{Label: "Unripe", Value: CoalesceMissing(s.UnripePercentage), Color: ColorUnripe},
	}
}

// RipenessCard holds the pie chart or, without data, a message.
type RipenessCard struct {
	Slices  []ChartSlice `json:"slices,omitempty"`
	Message string       `json:"message,omitempty"`
}

// ConditionsCard lists the recommended environmental setpoints.
type ConditionsCard struct {
	Temperature    string `json:"temperature,omitempty"`
	LightIntensity string `json:"lightIntensity,omitempty"`
	Humidity       string `json:"humidity,omitempty"`
	Message        string `json:"message,omitempty"`
}

// CountdownCard shows the days left until the optimal harvest.
type CountdownCard struct {
	Text string `json:"text"`
}

// SummaryView is the display model of the harvest summary screen.
type SummaryView struct {
	LastUpdate string         `json:"lastUpdate"`
	Ripeness   RipenessCard   `json:"ripeness"`
	Conditions ConditionsCard `json:"conditions"`
	Countdown  CountdownCard  `json:"countdown"`
}

// BuildSummaryView derives the display model; a nil snapshot renders the
// "no data" placeholder on every card.
func BuildSummaryView(s *Snapshot, cfg DisplayConfig) SummaryView {
	cfg = cfg.withDefaults()
	if s == nil {
		return SummaryView{
			Ripeness:   RipenessCard{Message: cfg.NoData},
			Conditions: ConditionsCard{Message: cfg.NoData},
			Countdown:  CountdownCard{Text: cfg.NoData},
		}
	}
	return SummaryView{
		LastUpdate: FormatTimestamp(s.CapturedAt, cfg.TimestampLayout, cfg.Location),
		Ripeness:   RipenessCard{Slices: RipenessSlices(*s)},
		Conditions: ConditionsCard{
			Temperature:    orUnavailable(s.TemperatureSetpoint, cfg.Unavailable),
			LightIntensity: orUnavailable(s.LightIntensitySetpoint, cfg.Unavailable),
			Humidity:       orUnavailable(s.HumiditySetpoint, cfg.Unavailable),
		},
		Countdown: CountdownCard{Text: formatCountdown(s.HarvestTimeDays, cfg.Unavailable)},
	}
}

func orUnavailable(m Measurement, marker string) string {
	if text := m.Display(); text != "" {
		return text
	}
	return marker
}

func formatCountdown(days *float64, marker string) string {
	if days == nil || math.IsNaN(*days) {
		return marker
	}
	rounded := math.Round(math.Max(*days, 0))
	return fmt.Sprintf("%d DAYS", int64(rounded))
}

// SeriesSpec describes one line of a history chart.
type SeriesSpec struct {
	Key    string `json:"key"`
	Legend string `json:"legend"`
	Color  string `json:"color"`
}

// ChartSpec groups the lines drawn on one history chart.
type ChartSpec struct {
	Title  string       `json:"title"`
	Series []SeriesSpec `json:"series"`
}

// HistoryCharts are the charts of the history screen, in display order.
var HistoryCharts = []ChartSpec{
	{
		Title: "Ripeness Distribution Over Time",
		Series: []SeriesSpec{
			{Key: "unripe", Legend: "Unripe", Color: ColorUnripe},
			{Key: "halfRipe", Legend: "Half-Ripe", Color: ColorHalfRipe},
			{Key: "ripe", Legend: "Ripe", Color: ColorRipe},
		},
	},
	{
		Title: "Growth Speed Rate Over Time",
		Series: []SeriesSpec{
			{Key: "growthSpeed", Legend: "Growth Speed", Color: ColorGrowthSpeed},
		},
	},
}

// HistoryView holds index-aligned per-metric arrays: entry i of every
// array belongs to Labels[i].
type HistoryView struct {
	Labels      []string    `json:"labels"`
	Ripe        []float64   `json:"ripe"`
	HalfRipe    []float64   `json:"halfRipe"`
	Unripe      []float64   `json:"unripe"`
	GrowthSpeed []float64   `json:"growthSpeed"`
	Charts      []ChartSpec `json:"charts"`
	Message     string      `json:"message,omitempty"`
}

// Len is the number of plotted points.
func (v HistoryView) Len() int {
	return len(v.Labels)
}

// BuildHistoryView orders the series by capture time and flattens it into
// chart arrays, substituting zero for missing values.
func BuildHistoryView(series Series, cfg DisplayConfig) HistoryView {
	cfg = cfg.withDefaults()
	ordered := series.Ordered()
	view := HistoryView{
		Labels:      make([]string, 0, len(ordered)),
		Ripe:        make([]float64, 0, len(ordered)),
		HalfRipe:    make([]float64, 0, len(ordered)),
		Unripe:      make([]float64, 0, len(ordered)),
		GrowthSpeed: make([]float64, 0, len(ordered)),
		Charts:      HistoryCharts,
	}
	for _, entry := range ordered {
		view.Labels = append(view.Labels, FormatTimestamp(entry.CapturedAt, cfg.DateLabelLayout, cfg.Location))
		view.Ripe = append(view.Ripe, CoalesceMissing(entry.RipePercentage))
		view.HalfRipe = append(view.HalfRipe, CoalesceMissing(entry.HalfRipePercentage))
		view.Unripe = append(view.Unripe, CoalesceMissing(entry.UnripePercentage))
		view.GrowthSpeed = append(view.GrowthSpeed, CoalesceMissing(entry.GrowthSpeedRipe))
	}
	if len(ordered) == 0 {
		view.Message = cfg.NoData
	}
	return view
}
