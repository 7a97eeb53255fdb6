package harvest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Measurement is a setpoint the backend sends either as a bare number or
// as text carrying a unit, e.g. "22.4 °C".
type Measurement struct {
	Value *float64
	Text  string
}

// Present reports whether the backend supplied the measurement at all.
func (m Measurement) Present() bool {
	return m.Value != nil || m.Text != ""
}

// Display renders the measurement as received, or "" when absent.
func (m Measurement) Display() string {
	if m.Text != "" {
		return m.Text
	}
	if m.Value != nil {
		return strconv.FormatFloat(*m.Value, 'f', -1, 64)
	}
	return ""
}

// UnmarshalJSON accepts null, numbers and strings.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	*m = Measurement{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		m.Text = strings.TrimSpace(text)
		m.Value = leadingNumber(m.Text)
		return nil
	default:
		var value float64
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return fmt.Errorf("measurement must be a number or string: %w", err)
		}
		m.Value = &value
		return nil
	}
}

// MarshalJSON writes the original text when there is one, else the number.
func (m Measurement) MarshalJSON() ([]byte, error) {
	switch {
	case m.Text != "":
		return json.Marshal(m.Text)
	case m.Value != nil:
		return json.Marshal(*m.Value)
	default:
		return []byte("null"), nil
	}
}

func leadingNumber(text string) *float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return &value
}
