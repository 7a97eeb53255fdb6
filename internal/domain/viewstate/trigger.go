package viewstate

import (
	"fmt"
	"strings"
)

// Trigger is the event that asked a screen to (re)load.
type Trigger string

const (
	TriggerMount   Trigger = "mount"
	TriggerFocus   Trigger = "focus"
	TriggerRefresh Trigger = "refresh"
)

// ParseTrigger accepts the wire spelling of a trigger; empty means refresh.
func ParseTrigger(raw string) (Trigger, error) {
	switch Trigger(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TriggerRefresh:
		return TriggerRefresh, nil
	case TriggerMount:
		return TriggerMount, nil
	case TriggerFocus:
		return TriggerFocus, nil
	default:
		return "", fmt.Errorf("unknown trigger %q", raw)
	}
}
