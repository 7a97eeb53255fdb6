package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/harvest"
	"github.com/harvesta/companion/internal/domain/remote"
	"github.com/harvesta/companion/internal/domain/session"
	"github.com/harvesta/companion/internal/domain/weather"
	"github.com/harvesta/companion/internal/infra/config"
)

func TestRouter_Health(t *testing.T) {
	server, _ := newRouterUnderTest(t)

	recorder := performRequest(server, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_RequiresSession(t *testing.T) {
	server, _ := newRouterUnderTest(t)

	recorder := performRequest(server, http.MethodGet, "/api/v1/screens/harvest", "", nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Equal(t, "unauthorized", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])

	recorder = performRequest(server, http.MethodGet, "/api/v1/screens/harvest", "", bearer("not-a-token"))
	require.Equal(t, http.StatusForbidden, recorder.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_HarvestTrigger(t *testing.T) {
	server, _ := newRouterUnderTest(t)
	token := createSession(t, server)

	recorder := performRequest(server, http.MethodGet, "/api/v1/screens/harvest", "", bearer(token))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "idle", decodeJSON(t, recorder)["status"])

	recorder = performRequest(server, http.MethodPost, "/api/v1/screens/harvest/triggers", `{"reason":"mount","wait":true}`, bearer(token))
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeJSON(t, recorder)
	require.Equal(t, "ready", body["status"])
	view := body["view"].(map[string]any)
	require.Equal(t, "3 DAYS", view["countdown"].(map[string]any)["text"])

	recorder = performRequest(server, http.MethodPost, "/api/v1/screens/harvest/triggers", `{"reason":"later"}`, bearer(token))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_HistoryTriggerAsync(t *testing.T) {
	server, registry := newRouterUnderTest(t)
	token := createSession(t, server)

	recorder := performRequest(server, http.MethodPost, "/api/v1/screens/history/triggers", "", bearer(token))
	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.EqualValues(t, 1, decodeJSON(t, recorder)["generation"])

	registry.Wait()
	recorder = performRequest(server, http.MethodGet, "/api/v1/screens/history", "", bearer(token))
	body := decodeJSON(t, recorder)
	require.Equal(t, "ready", body["status"])
	labels := body["view"].(map[string]any)["labels"].([]any)
	require.Equal(t, []any{"Jan 1", "Jan 2"}, labels)
}

func TestRouter_DashboardPosition(t *testing.T) {
	server, _ := newRouterUnderTest(t)
	token := createSession(t, server)

	recorder := performRequest(server, http.MethodPost, "/api/v1/screens/dashboard/triggers", `{"latitude":7.2}`, bearer(token))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = performRequest(server, http.MethodPost, "/api/v1/screens/dashboard/triggers", `{"reason":"mount","wait":true,"latitude":7.2,"longitude":80.6}`, bearer(token))
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeJSON(t, recorder)
	require.Equal(t, "ready", body["status"])
	require.Equal(t, "21.3°C", body["view"].(map[string]any)["weather"].(map[string]any)["temperature"])
}

func TestRouter_EmptyUploadIsRejected(t *testing.T) {
	server, prediction := newRouterUnderTestWithBackend(t)
	token := createSession(t, server)

	recorder := performRequest(server, http.MethodPost, "/api/v1/screens/upload/submit", "", bearer(token))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, "validation_error", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
	require.Zero(t, prediction.uploadCount())

	recorder = performRequest(server, http.MethodGet, "/api/v1/notices", "", bearer(token))
	notices := decodeJSON(t, recorder)["notices"].([]any)
	require.Len(t, notices, 1)
	require.Equal(t, "No images", notices[0].(map[string]any)["title"])
	require.Equal(t, "modal", notices[0].(map[string]any)["kind"])
}

func TestRouter_StageRemoveAndSubmit(t *testing.T) {
	server, prediction := newRouterUnderTestWithBackend(t)
	token := createSession(t, server)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range []string{"a.jpg", "b.jpg"} {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("image-" + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	headers := bearer(token)
	headers["Content-Type"] = writer.FormDataContentType()
	recorder := performRequest(server, http.MethodPost, "/api/v1/screens/upload/images", body.String(), headers)
	require.Equal(t, http.StatusOK, recorder.Code)
	images := decodeJSON(t, recorder)["images"].([]any)
	require.Len(t, images, 2)
	firstID := images[0].(map[string]any)["id"].(string)

	recorder = performRequest(server, http.MethodDelete, "/api/v1/screens/upload/images/"+firstID, "", bearer(token))
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(server, http.MethodDelete, "/api/v1/screens/upload/images/missing", "", bearer(token))
	require.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = performRequest(server, http.MethodPost, "/api/v1/screens/upload/submit", "", bearer(token))
	require.Equal(t, http.StatusOK, recorder.Code)
	navigation := decodeJSON(t, recorder)["navigation"].(map[string]any)
	require.Equal(t, "replace", navigation["action"])
	require.Equal(t, "harvest", navigation["screen"])

	sent := prediction.lastUpload()
	require.Len(t, sent, 1)
	require.Equal(t, "b.jpg", sent[0].Filename)
	require.Equal(t, "image-b.jpg", string(sent[0].Content))
}

func TestRouter_UploadFailureMapsToBadGateway(t *testing.T) {
	server, prediction := newRouterUnderTestWithBackend(t)
	prediction.uploadErr = remote.UpstreamStatus(remote.OpUploadImages, http.StatusInternalServerError, "")
	token := createSession(t, server)

	recorder := performRequest(server, http.MethodPost, "/api/v1/screens/upload/images", `{"images":[{"uri":"file:///a.jpg"}]}`, bearer(token))
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(server, http.MethodPost, "/api/v1/screens/upload/submit", "", bearer(token))
	require.Equal(t, http.StatusBadGateway, recorder.Code)
	require.Equal(t, "upstream_error", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])

	recorder = performRequest(server, http.MethodGet, "/api/v1/screens/upload", "", bearer(token))
	state := decodeJSON(t, recorder)
	require.Equal(t, "staged", state["phase"])
	require.Len(t, state["images"].([]any), 1)
}

func TestRouter_CaptureWithoutCameraPermission(t *testing.T) {
	server, _ := newRouterUnderTest(t)
	token := createSession(t, server)

	recorder := performRequest(server, http.MethodPost, "/api/v1/screens/upload/capture", `{"uri":"file:///camera/1.jpg"}`, bearer(token))
	require.Equal(t, http.StatusForbidden, recorder.Code)
	require.Equal(t, "permission_denied", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_CloseSession(t *testing.T) {
	server, _ := newRouterUnderTest(t)
	token := createSession(t, server)

	recorder := performRequest(server, http.MethodDelete, "/api/v1/sessions/current", "", bearer(token))
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = performRequest(server, http.MethodGet, "/api/v1/notices", "", bearer(token))
	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server, _ := newRouterWithConfig(t, cfg, &stubPrediction{})

	require.Equal(t, http.StatusOK, performRequest(server, http.MethodGet, "/healthz", "", nil).Code)
	recorder := performRequest(server, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func performRequest(server *http.Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func createSession(t *testing.T, server *http.Server) string {
	t.Helper()
	recorder := performRequest(server, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, recorder.Code)
	token, ok := decodeJSON(t, recorder)["token"].(string)
	require.True(t, ok)
	return token
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:        ":0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			MaxUploadBytes: 1 << 20,
		},
	}
}

func newRouterUnderTest(t *testing.T) (*http.Server, *session.Registry) {
	return newRouterWithConfig(t, testConfig(), &stubPrediction{})
}

func newRouterUnderTestWithBackend(t *testing.T) (*http.Server, *stubPrediction) {
	prediction := &stubPrediction{}
	server, _ := newRouterWithConfig(t, testConfig(), prediction)
	return server, prediction
}

func newRouterWithConfig(t *testing.T, cfg *config.Config, prediction *stubPrediction) (*http.Server, *session.Registry) {
	t.Helper()
	logger := newTestLogger()
	registry := session.NewRegistry(session.Config{
		Secret:   "router-test",
		TokenTTL: time.Hour,
	}, session.Dependencies{
		Prediction:   prediction,
		Weather:      stubWeather{},
		Capabilities: locationOnly{},
		Display:      harvest.DefaultDisplayConfig(),
		Logger:       logger,
	})
	t.Cleanup(registry.Wait)
	return NewRouter(cfg, NewHandler(registry, logger)), registry
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubPrediction struct {
	mu        sync.Mutex
	uploadErr error
	uploads   [][]harvest.StagedImage
}

func (s *stubPrediction) FetchLatest(context.Context) (*harvest.Snapshot, error) {
	days := 2.7
	return &harvest.Snapshot{CapturedAt: "2024-01-02T10:00:00", HarvestTimeDays: &days}, nil
}

func (s *stubPrediction) FetchHistory(context.Context) (harvest.Series, error) {
	ripe := 10.0
	return harvest.Series{
		{CapturedAt: "2024-01-02T00:00:00"},
		{CapturedAt: "2024-01-01T00:00:00", RipePercentage: &ripe},
	}, nil
}

func (s *stubPrediction) UploadImages(_ context.Context, images []harvest.StagedImage) (harvest.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, images)
	if s.uploadErr != nil {
		return harvest.UploadResult{}, s.uploadErr
	}
	return harvest.UploadResult{Images: len(images)}, nil
}

func (s *stubPrediction) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

func (s *stubPrediction) lastUpload() []harvest.StagedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.uploads) == 0 {
		return nil
	}
	return s.uploads[len(s.uploads)-1]
}

type stubWeather struct{}

func (stubWeather) Fetch(_ context.Context, at capability.Coordinates) (weather.Snapshot, error) {
	temp := 21.3
	return weather.Snapshot{TemperatureC: &temp, Description: "light rain", Coordinates: at}, nil
}

type locationOnly struct{}

func (locationOnly) RequestPermission(_ context.Context, p capability.Permission) (capability.Status, error) {
	if p == capability.PermissionLocation {
		return capability.StatusGranted, nil
	}
	return capability.StatusDenied, nil
}

func (locationOnly) CurrentPosition(context.Context) (capability.Coordinates, error) {
	return capability.Coordinates{}, capability.ErrPositionUnavailable
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
