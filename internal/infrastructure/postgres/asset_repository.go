package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lessonlab/vodpipe/internal/domain/model"
	"github.com/lessonlab/vodpipe/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AssetRepository implements repository.AssetRepository and
// repository.EntitlementChecker using PostgreSQL.
type AssetRepository struct {
	db DBTX
}

// NewAssetRepository creates a new AssetRepository instance.
func NewAssetRepository(db DBTX) *AssetRepository {
	return &AssetRepository{db: db}
}

// UpdateLessonVideo writes the canonical manifest URL and probed
// metadata against exactly one lesson record. The statement is a plain
// UPDATE keyed by primary key, so re-applying the same asset is
// idempotent.
func (r *AssetRepository) UpdateLessonVideo(ctx context.Context, lessonID uuid.UUID, asset *model.StoredAsset) error {
	const query = `
		UPDATE lessons
		SET video_url = $2, video_duration_seconds = $3, video_width = $4, video_height = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		lessonID,
		asset.CanonicalURL,
		asset.DurationSeconds,
		asset.Width,
		asset.Height,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrLessonNotFound
	}

	return nil
}

// FindLessonByVideoURL resolves the lesson owning a canonical manifest
// URL. Used by the re-signing path to confirm the asset still belongs
// to a live record before issuing a fresh token.
func (r *AssetRepository) FindLessonByVideoURL(ctx context.Context, canonicalURL string) (uuid.UUID, error) {
	const query = `
		SELECT id
		FROM lessons
		WHERE video_url = $1
	`

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, canonicalURL).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, repository.ErrLessonNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find lesson by video URL: %w", err)
	}

	return id, nil
}

// IsEnrolled reports whether the user holds an active enrollment in
// the course the lesson belongs to.
func (r *AssetRepository) IsEnrolled(ctx context.Context, userID, lessonID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM enrollments e
			JOIN lessons l ON l.course_id = e.course_id
			WHERE e.user_id = $1 AND l.id = $2
		)
	`

	var enrolled bool
	if err := r.db.QueryRow(ctx, query, userID, lessonID).Scan(&enrolled); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return enrolled, nil
}

// Compile-time verification of the implemented interfaces.
var (
	_ repository.AssetRepository     = (*AssetRepository)(nil)
	_ repository.EntitlementChecker = (*AssetRepository)(nil)
)
