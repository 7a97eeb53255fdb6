package harvestapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/harvesta/companion/internal/domain/harvest"
	"github.com/harvesta/companion/internal/domain/remote"
	"github.com/harvesta/companion/internal/infra/upstream"
)

const uploadField = "files"

// Client talks to the harvest prediction backend.
type Client struct {
	baseURL string
	caller  *upstream.Caller
	images  harvest.ImageOpener
	logger  *slog.Logger
}

// NewClient builds a prediction API client. images resolves staged image
// URIs that carry no inline content; it may be nil when every image is
// uploaded inline.
func NewClient(baseURL string, caller *upstream.Caller, images harvest.ImageOpener, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		caller:  caller,
		images:  images,
		logger:  logger.With("component", "harvestapi.client"),
	}
}

type latestEnvelope struct {
	LatestData *harvest.Snapshot `json:"latest_data"`
}

type historyEnvelope struct {
	HistoricalData harvest.Series `json:"historical_data"`
}

// FetchLatest returns the newest snapshot, or nil when the backend has
// none. The backend answers 404 in that case.
func (c *Client) FetchLatest(ctx context.Context) (*harvest.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest-data", nil)
	if err != nil {
		return nil, remote.NetworkUnreachable(remote.OpFetchLatest, fmt.Errorf("build request: %w", err))
	}
	resp, err := c.caller.Do(ctx, remote.OpFetchLatest, req)
	if err != nil {
		if resp.Status == http.StatusNotFound {
			c.logger.Info("backend has no prediction yet")
			return nil, nil
		}
		return nil, err
	}
	var env latestEnvelope
	if err := upstream.DecodeJSON(remote.OpFetchLatest, resp.Body, &env); err != nil {
		return nil, err
	}
	return env.LatestData, nil
}

// FetchHistory returns the recent history in backend order.
func (c *Client) FetchHistory(ctx context.Context) (harvest.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/historical-data", nil)
	if err != nil {
		return nil, remote.NetworkUnreachable(remote.OpFetchHistory, fmt.Errorf("build request: %w", err))
	}
	resp, err := c.caller.Do(ctx, remote.OpFetchHistory, req)
	if err != nil {
		return nil, err
	}
	var env historyEnvelope
	if err := upstream.DecodeJSON(remote.OpFetchHistory, resp.Body, &env); err != nil {
		return nil, err
	}
	if env.HistoricalData == nil {
		return harvest.Series{}, nil
	}
	return env.HistoricalData, nil
}

// UploadImages sends every image in one multipart request. An empty batch
// is rejected before any network call.
func (c *Client) UploadImages(ctx context.Context, images []harvest.StagedImage) (harvest.UploadResult, error) {
	if len(images) == 0 {
		return harvest.UploadResult{}, remote.Validation(remote.OpUploadImages, "no images to upload")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i, img := range images {
		if err := c.writeImage(ctx, writer, i, img); err != nil {
			return harvest.UploadResult{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return harvest.UploadResult{}, remote.Validation(remote.OpUploadImages, "encode multipart body: "+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return harvest.UploadResult{}, remote.NetworkUnreachable(remote.OpUploadImages, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.caller.Do(ctx, remote.OpUploadImages, req)
	if err != nil {
		return harvest.UploadResult{}, err
	}
	result := harvest.UploadResult{Images: len(images)}
	if trimmed := bytes.TrimSpace(resp.Body); len(trimmed) > 0 {
		// Any 2xx is a success; the payload is kept as-is when it is not a JSON object.
		if err := upstream.DecodeJSON(remote.OpUploadImages, trimmed, &result.Body); err != nil {
			c.logger.Debug("predict response is not a json object", "error", err)
			result.Body = nil
			result.Raw = string(trimmed)
		}
	}
	c.logger.Info("images uploaded", "images", len(images))
	return result, nil
}

func (c *Client) writeImage(ctx context.Context, writer *multipart.Writer, index int, img harvest.StagedImage) error {
	name := strings.TrimSpace(img.Filename)
	if name == "" {
		name = fmt.Sprintf("image_%d.jpg", index)
	}
	mimeType := strings.TrimSpace(img.MimeType)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, name))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return remote.Validation(remote.OpUploadImages, "create multipart part: "+err.Error())
	}

	if len(img.Content) > 0 {
		_, err = part.Write(img.Content)
		if err != nil {
			return remote.Validation(remote.OpUploadImages, "write image: "+err.Error())
		}
		return nil
	}
	if c.images == nil {
		return remote.Validation(remote.OpUploadImages, fmt.Sprintf("image %s has no content", name))
	}
	src, err := c.images.Open(ctx, img.URI)
	if err != nil {
		return remote.Validation(remote.OpUploadImages, fmt.Sprintf("open image %s: %v", img.URI, err))
	}
	defer src.Close()
	if _, err := io.Copy(part, src); err != nil {
		return remote.Validation(remote.OpUploadImages, fmt.Sprintf("read image %s: %v", img.URI, err))
	}
	return nil
}
