// Package imagesource resolves staged image URIs to their bytes.
package imagesource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Opener reads the object a URI points at.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Resolver dispatches on the URI scheme.
type Resolver struct {
	openers map[string]Opener
}

// NewResolver builds an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{openers: make(map[string]Opener)}
}

// Register routes scheme to opener, replacing any previous one.
func (r *Resolver) Register(scheme string, opener Opener) *Resolver {
	if opener != nil {
		r.openers[strings.ToLower(scheme)] = opener
	}
	return r
}

// Schemes lists the registered schemes.
func (r *Resolver) Schemes() []string {
	out := make([]string, 0, len(r.openers))
	for scheme := range r.openers {
		out = append(out, scheme)
	}
	return out
}

// Open implements harvest.ImageOpener.
func (r *Resolver) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, fmt.Errorf("parse image uri: %w", err)
	}
	opener, ok := r.openers[strings.ToLower(parsed.Scheme)]
	if !ok {
		return nil, fmt.Errorf("unsupported image uri scheme %q", parsed.Scheme)
	}
	return opener.Open(ctx, uri)
}
