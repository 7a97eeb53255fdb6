package upstream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harvesta/companion/internal/domain/remote"
	apperrors "github.com/harvesta/companion/pkg/errors"
)

func newTestCaller() *Caller {
	return NewCaller(0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCallerClassifiesStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
	}{
		{name: "server error", status: http.StatusInternalServerError, code: apperrors.CodeUpstream},
		{name: "not found", status: http.StatusNotFound, code: apperrors.CodeUpstream},
		{name: "unauthorized", status: http.StatusUnauthorized, code: apperrors.CodePermissionDenied},
		{name: "forbidden", status: http.StatusForbidden, code: apperrors.CodePermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			require.NoError(t, err)
			resp, err := newTestCaller().Do(context.Background(), remote.OpFetchLatest, req)

			require.Error(t, err)
			require.Equal(t, tc.status, resp.Status)
			require.True(t, apperrors.IsCode(err, tc.code))
		})
	}
}

func TestCallerNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	_, err = newTestCaller().Do(context.Background(), remote.OpFetchHistory, req)

	require.True(t, apperrors.IsCode(err, apperrors.CodeNetworkUnreachable))
}

func TestCallerSuccessAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := newTestCaller().Do(context.Background(), remote.OpFetchLatest, req)
	require.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, DecodeJSON(remote.OpFetchLatest, resp.Body, &out))
	require.True(t, out.OK)

	err = DecodeJSON(remote.OpFetchLatest, []byte("<html>"), &out)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))
}
