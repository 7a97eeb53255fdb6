package imagesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for file URIs escaping the configured root.
var ErrOutsideRoot = errors.New("image path outside allowed root")

// FileOpener reads file:// URIs below a root directory.
type FileOpener struct {
	root string
}

// NewFileOpener restricts reads to root.
func NewFileOpener(root string) (*FileOpener, error) {
	abs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return nil, fmt.Errorf("resolve image root: %w", err)
	}
	return &FileOpener{root: filepath.Clean(abs)}, nil
}

// Open implements Opener.
func (f *FileOpener) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse file uri: %w", err)
	}
	if parsed.Scheme != "file" {
		return nil, fmt.Errorf("not a file uri: %s", uri)
	}
	rel := filepath.FromSlash(strings.TrimPrefix(parsed.Path, "/"))
	full := filepath.Join(f.root, rel)
	if full != f.root && !strings.HasPrefix(full, f.root+string(filepath.Separator)) {
		return nil, ErrOutsideRoot
	}
	return os.Open(full)
}
