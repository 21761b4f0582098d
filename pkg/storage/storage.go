// Package storage moves file bytes to and from object storage. The database
// keeps the metadata; these clients only handle the payload.
package storage

import (
	"context"
	"io"
)

// Buckets the application writes to. Keys inside a bucket are prefixed with
// the owning organization's id.
const (
	BucketUploads  = "org-uploads"
	BucketLogos    = "org-logos"
	BucketPalettes = "org-palettes"
)

// ObjectStorage is the payload store behind file uploads.
type ObjectStorage interface {
	// Upload writes an object, replacing any previous content at the key.
	Upload(ctx context.Context, bucket, key, contentType string, r io.Reader) error
	// Download opens an object for reading. The caller closes the reader.
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// PublicURL returns the address an approved object is served from.
	PublicURL(bucket, key string) string
}
