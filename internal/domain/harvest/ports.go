package harvest

import (
	"context"
	"io"
	"log/slog"

	"github.com/harvesta/companion/pkg/util"
)

// PredictionClient is the prediction backend as seen by the harvest screens.
// FetchLatest returns nil when the backend holds no snapshot yet.
type PredictionClient interface {
	FetchLatest(ctx context.Context) (*Snapshot, error)
	FetchHistory(ctx context.Context) (Series, error)
	UploadImages(ctx context.Context, images []StagedImage) (UploadResult, error)
}

// ImageOpener resolves a staged image URI to its bytes.
type ImageOpener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Config wires the per-session settings shared by the harvest controllers.
type Config struct {
	Session string
	Display DisplayConfig
	Clock   util.Clock
}

func componentLogger(logger *slog.Logger, component, session string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component, "session", session)
}
