package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lessonlab/vodpipe/internal/domain/model"
)

// AssetRepository persists the durable video reference of a lesson.
// Implementations are provided by the infrastructure layer (PostgreSQL).
type AssetRepository interface {
	// UpdateLessonVideo writes the unsigned canonical manifest URL and
	// probed metadata against exactly one lesson record. Idempotent:
	// re-applying the same asset leaves the row unchanged.
	// Returns ErrLessonNotFound if the lesson does not exist.
	UpdateLessonVideo(ctx context.Context, lessonID uuid.UUID, asset *model.StoredAsset) error

	// FindLessonByVideoURL resolves the lesson owning a canonical
	// manifest URL, used by the re-signing path. Returns uuid.Nil and
	// ErrLessonNotFound when no lesson references the URL.
	FindLessonByVideoURL(ctx context.Context, canonicalURL string) (uuid.UUID, error)
}

// EntitlementChecker answers whether a user may play a lesson's video.
// Enrollment itself is an external concern; this subsystem only
// consults the decision.
type EntitlementChecker interface {
	IsEnrolled(ctx context.Context, userID, lessonID uuid.UUID) (bool, error)
}
