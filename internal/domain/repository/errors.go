package repository

import "errors"

var (
	// ErrLessonNotFound is returned when the owning lesson record for
	// an asset update or lookup does not exist.
	ErrLessonNotFound = errors.New("lesson not found")

	// ErrObjectNotFound is returned when a stored object cannot be found.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrStorageUnavailable wraps transport or auth failures talking to
	// the object store. Per-file uploads are idempotent, so callers may
	// retry a bounded number of times.
	ErrStorageUnavailable = errors.New("object storage unavailable")
)
