package repository

import (
	"context"
	"io"
)

// BatchResult describes a completed directory upload.
type BatchResult struct {
	// ManifestKey is the object key of the playlist file.
	ManifestKey string
	// SegmentKeys are the object keys of every uploaded segment, in
	// file-name order.
	SegmentKeys []string
}

// ObjectStorage defines the interface for object storage operations.
// Implementations are provided by the infrastructure layer (MinIO/S3).
type ObjectStorage interface {
	// Upload stores a single object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// UploadDir uploads every regular file in dir under keyPrefix,
	// identifying the manifest by its .m3u8 extension. All-or-nothing:
	// if any file fails, no manifest key is returned and objects
	// already written for this attempt are removed best-effort.
	UploadDir(ctx context.Context, keyPrefix, dir string) (*BatchResult, error)

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// Exists checks whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// PublicURL builds the stable, unsigned URL of an object from the
	// configured public base.
	PublicURL(key string) string
}
