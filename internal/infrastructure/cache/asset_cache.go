package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssetCache caches the canonical-URL → owning-lesson mapping consulted
// by the re-signing endpoint, so repeated token refreshes for the same
// asset do not hit the database.
type AssetCache interface {
	// GetLesson returns the cached lesson ID for a canonical URL.
	// Returns uuid.Nil and nil error on cache miss.
	GetLesson(ctx context.Context, canonicalURL string) (uuid.UUID, error)

	// SetLesson stores the mapping with the given TTL.
	SetLesson(ctx context.Context, canonicalURL string, lessonID uuid.UUID, ttl time.Duration) error

	// Delete removes a cached mapping, used when a lesson's video
	// reference is replaced by a re-upload.
	Delete(ctx context.Context, canonicalURL string) error
}
