// Package capability provides a configuration-driven stand-in for device
// capabilities when the companion runs without a device.
package capability

import (
	"context"
	"log/slog"

	domain "github.com/harvesta/companion/internal/domain/capability"
)

// Config lists the permissions granted and the fixed position, if any.
type Config struct {
	Location bool
	Camera   bool
	Position *domain.Coordinates
}

// Static answers permission requests from configuration.
type Static struct {
	grants map[domain.Permission]bool
	pos    *domain.Coordinates
	logger *slog.Logger
}

// NewStatic builds a provider from cfg.
func NewStatic(cfg Config, logger *slog.Logger) *Static {
	if logger == nil {
		logger = slog.Default()
	}
	return &Static{
		grants: map[domain.Permission]bool{
			domain.PermissionLocation: cfg.Location,
			domain.PermissionCamera:   cfg.Camera,
		},
		pos:    cfg.Position,
		logger: logger.With("component", "capability.static"),
	}
}

// RequestPermission implements domain.Provider.
func (s *Static) RequestPermission(_ context.Context, p domain.Permission) (domain.Status, error) {
	if s.grants[p] {
		return domain.StatusGranted, nil
	}
	s.logger.Debug("permission denied by configuration", "permission", p)
	return domain.StatusDenied, nil
}

// CurrentPosition implements domain.Provider.
func (s *Static) CurrentPosition(context.Context) (domain.Coordinates, error) {
	if s.pos == nil {
		return domain.Coordinates{}, domain.ErrPositionUnavailable
	}
	return *s.pos, nil
}
