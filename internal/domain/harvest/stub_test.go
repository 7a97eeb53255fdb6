package harvest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/remote"
)

type stubPredictionClient struct {
	mu          sync.Mutex
	latestFn    func(ctx context.Context) (*Snapshot, error)
	historyFn   func(ctx context.Context) (Series, error)
	uploadErr   error
	uploadGate  chan struct{}
	uploadSeen  chan struct{}
	uploads     [][]StagedImage
	latestCalls int
}

func (s *stubPredictionClient) FetchLatest(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	s.latestCalls++
	fn := s.latestFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (s *stubPredictionClient) FetchHistory(ctx context.Context) (Series, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx)
}

func (s *stubPredictionClient) UploadImages(ctx context.Context, images []StagedImage) (UploadResult, error) {
	if s.uploadSeen != nil {
		s.uploadSeen <- struct{}{}
	}
	if s.uploadGate != nil {
		<-s.uploadGate
	}
	if err := ctx.Err(); err != nil {
		return UploadResult{}, remote.NetworkUnreachable(remote.OpUploadImages, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, images)
	if s.uploadErr != nil {
		return UploadResult{}, s.uploadErr
	}
	return UploadResult{Images: len(images), Body: map[string]any{"status": "ok"}}, nil
}

func (s *stubPredictionClient) uploadCalls() [][]StagedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

func (s *stubPredictionClient) latestCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestCalls
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice.Notice
}

func (r *recordingNotifier) Publish(_ context.Context, n notice.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingNotifier) all() []notice.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notice.Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

type stubCapabilities struct {
	camera capability.Status
	asked  []capability.Permission
}

func (s *stubCapabilities) RequestPermission(_ context.Context, p capability.Permission) (capability.Status, error) {
	s.asked = append(s.asked, p)
	if p == capability.PermissionCamera {
		return s.camera, nil
	}
	return capability.StatusGranted, nil
}

func (s *stubCapabilities) CurrentPosition(context.Context) (capability.Coordinates, error) {
	return capability.Coordinates{}, capability.ErrPositionUnavailable
}

func testConfig() Config {
	return Config{
		Session: "session-1",
		Display: DefaultDisplayConfig(),
		Clock: func() time.Time {
			return time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func float(v float64) *float64 {
	return &v
}
