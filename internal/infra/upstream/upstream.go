// Package upstream performs single HTTP round trips to external services
// and classifies their failures. It never retries.
package upstream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/harvesta/companion/internal/domain/remote"
)

const (
	defaultTimeout = 15 * time.Second
	errorBodyLimit = 4 << 10
)

// Response is the raw answer to one round trip.
type Response struct {
	Status int
	Body   []byte
}

// Caller wraps an http.Client with failure classification.
type Caller struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCaller builds a caller whose only deadline is timeout.
func NewCaller(timeout time.Duration, logger *slog.Logger) *Caller {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewCallerWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewCallerWithClient reuses an existing client.
func NewCallerWithClient(client *http.Client, logger *slog.Logger) *Caller {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{httpClient: client, logger: logger}
}

// Do sends req once. A transport failure is network_unreachable; a non-2xx
// status is returned alongside an upstream_error (or permission_denied for
// 401/403) so callers can special-case it.
func (c *Caller) Do(ctx context.Context, op remote.Operation, req *http.Request) (Response, error) {
	started := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.logger.Warn("upstream unreachable", "operation", op, "url", redact(req), "error", err)
		return Response{}, remote.NetworkUnreachable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		c.logger.Warn("upstream rejected request", "operation", op, "status", resp.StatusCode, "body", string(payload), "latency_ms", time.Since(started).Milliseconds())
		return Response{Status: resp.StatusCode, Body: payload}, remote.UpstreamStatus(op, resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("upstream body read failed", "operation", op, "error", err)
		return Response{Status: resp.StatusCode}, remote.NetworkUnreachable(op, err)
	}
	c.logger.Debug("upstream call complete", "operation", op, "status", resp.StatusCode, "latency_ms", time.Since(started).Milliseconds())
	return Response{Status: resp.StatusCode, Body: body}, nil
}

// DecodeJSON unmarshals body into out, reporting a malformed response.
func DecodeJSON(op remote.Operation, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return remote.Malformed(op, err)
	}
	return nil
}

func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
