// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vodpipe"

var (
	// UploadsTotal tracks ingestion pipeline outcomes.
	// Labels:
	//   - status: accepted, rejected, failed, completed
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of video upload requests by outcome",
		},
		[]string{"status"},
	)

	// TranscodeDuration observes wall-clock transcoding time.
	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Wall-clock duration of transcoding runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// SegmentUploadsTotal tracks per-file object store uploads.
	// Labels:
	//   - status: success, error
	SegmentUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_uploads_total",
			Help:      "Total number of segment and manifest uploads to object storage",
		},
		[]string{"status"},
	)

	// TokenVerificationsTotal tracks playback token checks.
	// Labels:
	//   - result: valid, expired, invalid
	TokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Total number of playback token verifications by result",
		},
		[]string{"result"},
	)
)

// Upload status constants.
const (
	UploadStatusAccepted  = "accepted"
	UploadStatusRejected  = "rejected"
	UploadStatusFailed    = "failed"
	UploadStatusCompleted = "completed"
)

// Segment upload status constants.
const (
	SegmentStatusSuccess = "success"
	SegmentStatusError   = "error"
)

// Token verification result constants.
const (
	TokenResultValid   = "valid"
	TokenResultExpired = "expired"
	TokenResultInvalid = "invalid"
)
