package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// VideoProcessedEvent announces a successfully ingested video to
// downstream consumers (progress tracking, notifications). Published
// after the asset record is updated; delivery is best-effort and never
// fails the upload.
type VideoProcessedEvent struct {
	LessonID        uuid.UUID `json:"lesson_id"`
	ManifestURL     string    `json:"manifest_url"`
	DurationSeconds int       `json:"duration_seconds"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	CompletedAt     time.Time `json:"completed_at"`
}

// EventPublisher defines the interface for publishing pipeline events.
// Implementations are provided by the infrastructure layer (RabbitMQ).
type EventPublisher interface {
	// PublishVideoProcessed sends a processed-video event to the queue.
	PublishVideoProcessed(ctx context.Context, event VideoProcessedEvent) error

	// Close gracefully closes the connection to the broker.
	Close() error
}
