// Package objectstore stores uploaded paper files in an S3-compatible
// bucket, or in memory for development and tests.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("object not found")

// Store is the subset of object storage the catalogue needs.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns an address a browser can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
}

// PaperKey returns the object key for a new paper file uploaded at t.
func PaperKey(t time.Time, id uuid.UUID) string {
	t = t.UTC()
	return fmt.Sprintf("papers/%04d/%02d/%s.pdf", t.Year(), int(t.Month()), id)
}

// publicURL joins a base URL and an object key, escaping each path segment.
func publicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
