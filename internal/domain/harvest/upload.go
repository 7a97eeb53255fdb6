package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/notice"
	"github.com/harvesta/companion/internal/domain/remote"
	"github.com/harvesta/companion/internal/domain/viewstate"
	apperrors "github.com/harvesta/companion/pkg/errors"
	"github.com/harvesta/companion/pkg/util"
)

const defaultImageMimeType = "image/jpeg"

// UploadPhase is the state of the image batch.
type UploadPhase string

const (
	UploadEmpty     UploadPhase = "empty"
	UploadStaged    UploadPhase = "staged"
	UploadUploading UploadPhase = "uploading"
)

// UploadState is a copy of the batch at one instant.
type UploadState struct {
	Phase      UploadPhase        `json:"phase"`
	Images     []StagedImage      `json:"images"`
	Failure    *viewstate.Failure `json:"failure,omitempty"`
	LastResult *UploadResult      `json:"lastResult,omitempty"`
}

// Navigation asks the presentation layer to move to another screen.
type Navigation struct {
	Action string        `json:"action"`
	Screen notice.Screen `json:"screen"`
}

// SubmitOutcome is returned after a successful upload.
type SubmitOutcome struct {
	Result     UploadResult `json:"result"`
	Navigation Navigation   `json:"navigation"`
}

// UploadController owns one image batch. Images can be added or removed
// only while no upload is running; an upload sends the whole batch or
// nothing.
type UploadController struct {
	cfg          Config
	client       PredictionClient
	capabilities capability.Provider
	notifier     notice.Notifier
	now          util.Clock
	logger       *slog.Logger

	mu         sync.Mutex
	images     []StagedImage
	uploading  bool
	failure    *viewstate.Failure
	lastResult *UploadResult
}

// NewUploadController builds a controller with an empty batch.
func NewUploadController(cfg Config, client PredictionClient, capabilities capability.Provider, notifier notice.Notifier, logger *slog.Logger) *UploadController {
	if notifier == nil {
		notifier = notice.Discard
	}
	return &UploadController{
		cfg:          cfg,
		client:       client,
		capabilities: capabilities,
		notifier:     notifier,
		now:          cfg.Clock.OrDefault(),
		logger:       componentLogger(logger, "harvest.upload", cfg.Session),
	}
}

// State returns a copy of the batch.
func (c *UploadController) State() UploadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Stage adds images picked from the gallery. Picking needs no permission;
// only the camera does.
func (c *UploadController) Stage(images ...StagedImage) (UploadState, error) {
	return c.add("gallery", images)
}

// Capture adds a camera image after asking for camera permission.
func (c *UploadController) Capture(ctx context.Context, image StagedImage) (UploadState, error) {
	if c.capabilities == nil {
		return c.State(), remote.PermissionDenied("camera unavailable")
	}
	status, err := c.capabilities.RequestPermission(ctx, capability.PermissionCamera)
	if err != nil || status != capability.StatusGranted {
		denied := remote.PermissionDenied("camera permission is required to capture images")
		c.publish(ctx, notice.FromFailure(c.cfg.Session, notice.ScreenUpload, "Permission Denied", "Camera permission is required to capture images.", denied, c.now()))
		if err != nil {
			c.logger.Warn("camera permission request failed", "error", err)
		}
		return c.State(), denied
	}
	return c.add("camera", []StagedImage{image})
}

// Remove drops the staged image with the given id.
func (c *UploadController) Remove(id string) (UploadState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return c.stateLocked(), errUploadInProgress()
	}
	for i, img := range c.images {
		if img.ID == id {
			c.images = append(c.images[:i:i], c.images[i+1:]...)
			return c.stateLocked(), nil
		}
	}
	return c.stateLocked(), apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("staged image %s not found", id), nil)
}

// RemoveAt drops the staged image at index.
func (c *UploadController) RemoveAt(index int) (UploadState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return c.stateLocked(), errUploadInProgress()
	}
	if index < 0 || index >= len(c.images) {
		return c.stateLocked(), apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("no staged image at index %d", index), nil)
	}
	c.images = append(c.images[:index:index], c.images[index+1:]...)
	return c.stateLocked(), nil
}

// Clear empties the batch.
func (c *UploadController) Clear() (UploadState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return c.stateLocked(), errUploadInProgress()
	}
	c.images = nil
	c.failure = nil
	return c.stateLocked(), nil
}

// Submit uploads the whole batch in one request. An empty batch fails with
// a validation error without touching the network. On failure the batch is
// kept as it was so the user can retry.
func (c *UploadController) Submit(ctx context.Context) (SubmitOutcome, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return SubmitOutcome{}, errUploadInProgress()
	}
	if len(c.images) == 0 {
		c.mu.Unlock()
		err := remote.Validation(remote.OpUploadImages, "select or capture at least one image")
		c.publish(ctx, notice.FromFailure(c.cfg.Session, notice.ScreenUpload, "No images", "Please select or capture at least one image.", err, c.now()))
		return SubmitOutcome{}, err
	}
	batch := make([]StagedImage, len(c.images))
	copy(batch, c.images)
	c.uploading = true
	c.failure = nil
	c.mu.Unlock()

	c.logger.Info("uploading image batch", "images", len(batch))
	// Uploads run to completion even when the caller goes away.
	ctx = context.WithoutCancel(ctx)
	result, err := c.client.UploadImages(ctx, batch)

	c.mu.Lock()
	c.uploading = false
	if err != nil {
		c.failure = &viewstate.Failure{
			Code:    apperrors.CodeOf(err, apperrors.CodeUpstream),
			Message: apperrors.MessageOf(err),
		}
		c.mu.Unlock()
		c.logger.Warn("image upload failed", "images", len(batch), "error", err)
		c.publish(ctx, notice.FromFailure(c.cfg.Session, notice.ScreenUpload, "Upload Failed", "Could not upload images.", err, c.now()))
		return SubmitOutcome{}, err
	}
	c.images = nil
	c.lastResult = &result
	c.mu.Unlock()

	c.logger.Info("image batch uploaded", "images", len(batch))
	return SubmitOutcome{
		Result:     result,
		Navigation: Navigation{Action: "replace", Screen: notice.ScreenHarvest},
	}, nil
}

func (c *UploadController) add(source string, images []StagedImage) (UploadState, error) {
	prepared := make([]StagedImage, 0, len(images))
	for _, img := range images {
		if strings.TrimSpace(img.URI) == "" && len(img.Content) == 0 {
			return c.State(), remote.Validation(remote.OpUploadImages, "image needs a uri or content")
		}
		prepared = append(prepared, c.prepare(source, img))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploading {
		return c.stateLocked(), errUploadInProgress()
	}
	c.images = append(c.images, prepared...)
	return c.stateLocked(), nil
}

func (c *UploadController) prepare(source string, img StagedImage) StagedImage {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if strings.TrimSpace(img.MimeType) == "" {
		img.MimeType = defaultImageMimeType
	}
	if strings.TrimSpace(img.Filename) == "" {
		img.Filename = fmt.Sprintf("%s_%d.jpg", source, c.now().UnixMilli())
	}
	if img.Size == 0 {
		img.Size = len(img.Content)
	}
	return img
}

func (c *UploadController) stateLocked() UploadState {
	phase := UploadEmpty
	switch {
	case c.uploading:
		phase = UploadUploading
	case len(c.images) > 0:
		phase = UploadStaged
	}
	images := make([]StagedImage, len(c.images))
	copy(images, c.images)
	state := UploadState{Phase: phase, Images: images, LastResult: c.lastResult}
	if c.failure != nil {
		failure := *c.failure
		state.Failure = &failure
	}
	return state
}

func (c *UploadController) publish(ctx context.Context, n notice.Notice) {
	if err := c.notifier.Publish(ctx, n); err != nil {
		c.logger.Warn("notice delivery failed", "error", err)
	}
}

func errUploadInProgress() error {
	return apperrors.Wrap(apperrors.CodeUploadInProgress, "an upload is already in progress", nil)
}
