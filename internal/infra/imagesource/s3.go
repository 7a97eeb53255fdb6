package imagesource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectOpener reads s3://bucket/key URIs from any S3-compatible store.
type ObjectOpener struct {
	client *minio.Client
	logger *slog.Logger
}

// NewObjectOpener builds a MinIO client for endpoint.
func NewObjectOpener(endpoint, accessKey, secretKey, region string, logger *slog.Logger) (*ObjectOpener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       !strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "http://"),
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &ObjectOpener{client: client, logger: logger.With("component", "imagesource.s3")}, nil
}

// Open implements Opener.
func (o *ObjectOpener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := parseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	obj, err := o.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing object now.
	if _, statErr := obj.Stat(); statErr != nil {
		obj.Close()
		o.logger.Warn("image object unavailable", "bucket", bucket, "key", key, "error", statErr)
		return nil, statErr
	}
	return obj, nil
}

func parseObjectURI(uri string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return "", "", fmt.Errorf("parse object uri: %w", err)
	}
	if parsed.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	key := strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %s", uri)
	}
	return parsed.Host, key, nil
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}
