// Package capability abstracts device capabilities (permissions, position)
// so screen logic can run without a real device.
package capability

import (
	"context"
	"errors"
	"fmt"
)

// ErrPositionUnavailable is returned when no position can be determined.
var ErrPositionUnavailable = errors.New("current position unavailable")

// Permission names a device capability that requires user consent.
type Permission string

const (
	PermissionLocation Permission = "location"
	PermissionCamera   Permission = "camera"
)

// Status is the outcome of a permission request.
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects coordinates outside the WGS84 range.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %.4f out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %.4f out of range", c.Longitude)
	}
	return nil
}

// Provider is asked for permission on every use; caching grants is the
// platform's business, not ours.
type Provider interface {
	RequestPermission(ctx context.Context, p Permission) (Status, error)
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// WithPosition overrides the position reported by base, leaving
// permission decisions untouched.
func WithPosition(base Provider, pos Coordinates) Provider {
	return positioned{Provider: base, pos: pos}
}

type positioned struct {
	Provider
	pos Coordinates
}

func (p positioned) CurrentPosition(context.Context) (Coordinates, error) {
	return p.pos, nil
}
