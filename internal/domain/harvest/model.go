package harvest

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is one point-in-time prediction result. Every field may be
// missing; the percentages are expected to sum to roughly 100 but the
// client never enforces it.
type Snapshot struct {
	CapturedAt             string      `json:"date,omitempty"`
	RipePercentage         *float64    `json:"ripe_percentage,omitempty"`
	HalfRipePercentage     *float64    `json:"half_ripe_percentage,omitempty"`
	UnripePercentage       *float64    `json:"unripe_percentage,omitempty"`
	TemperatureSetpoint    Measurement `json:"temperature_setpoint"`
	LightIntensitySetpoint Measurement `json:"light_intensity_setpoint"`
	HumiditySetpoint       Measurement `json:"humidity_setpoint"`
	HarvestTimeDays        *float64    `json:"harvest_time_days,omitempty"`
	GrowthSpeedRipe        *float64    `json:"growth_speed_ripe,omitempty"`
}

// CapturedTime parses CapturedAt. Timestamps without a zone are taken as UTC,
// which is how the prediction backend records them.
func (s Snapshot) CapturedTime() (time.Time, bool) {
	return parseTimestamp(s.CapturedAt)
}

// Series is a history of snapshots ordered by capture time, oldest first.
type Series []Snapshot

// Ordered returns a copy sorted by capture time. The sort is stable and
// entries without a usable timestamp sort ahead of dated ones, keeping
// their relative order.
func (s Series) Ordered() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		ti, okI := out[i].CapturedTime()
		tj, okJ := out[j].CapturedTime()
		switch {
		case !okI && !okJ:
			return false
		case !okI:
			return true
		case !okJ:
			return false
		default:
			return ti.Before(tj)
		}
	})
	return out
}

// StagedImage is a locally selected image that has not been uploaded yet.
// Content, when set, is sent as is; otherwise the URI is resolved by an
// ImageOpener at upload time.
type StagedImage struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
	Size     int    `json:"size,omitempty"`
	Content  []byte `json:"-"`
}

// UploadResult is the prediction backend's opaque answer to an upload.
type UploadResult struct {
	Images int            `json:"images"`
	Body   map[string]any `json:"body,omitempty"`
	Raw    string         `json:"raw,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
