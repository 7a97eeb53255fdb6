package imagesource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileOpenerReadsBelowRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "photos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "a.jpg"), []byte("jpeg"), 0o600))

	opener, err := NewFileOpener(root)
	require.NoError(t, err)

	rc, err := opener.Open(context.Background(), "file:///photos/a.jpg")
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "jpeg", string(content))
}

func TestFileOpenerRejectsEscape(t *testing.T) {
	opener, err := NewFileOpener(t.TempDir())
	require.NoError(t, err)

	_, err = opener.Open(context.Background(), "file:///../../etc/passwd")
	require.ErrorIs(t, err, ErrOutsideRoot)
}

type staticOpener string

func (s staticOpener) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}

func TestResolverDispatchesOnScheme(t *testing.T) {
	resolver := NewResolver().Register("S3", staticOpener("object")).Register("file", staticOpener("file"))

	rc, err := resolver.Open(context.Background(), "s3://bucket/key.jpg")
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "object", string(content))

	_, err = resolver.Open(context.Background(), "content://media/42")
	require.ErrorContains(t, err, "unsupported image uri scheme")
	require.ElementsMatch(t, []string{"s3", "file"}, resolver.Schemes())
}

func TestParseObjectURI(t *testing.T) {
	bucket, key, err := parseObjectURI("s3://harvest-images/2024/01/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "harvest-images", bucket)
	require.Equal(t, "2024/01/a.jpg", key)

	_, _, err = parseObjectURI("s3://harvest-images")
	require.Error(t, err)
	_, _, err = parseObjectURI("file:///a.jpg")
	require.Error(t, err)
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "minio.local:9000", sanitizeEndpoint("http://minio.local:9000/"))
	require.Equal(t, "acc.r2.cloudflarestorage.com", sanitizeEndpoint("https://acc.r2.cloudflarestorage.com/bucket"))
}
