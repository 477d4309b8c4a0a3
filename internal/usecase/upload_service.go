package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/lessonlab/vodpipe/internal/domain/model"
	"github.com/lessonlab/vodpipe/internal/domain/repository"
	"github.com/lessonlab/vodpipe/internal/infrastructure/cache"
	"github.com/lessonlab/vodpipe/internal/infrastructure/metrics"
	"github.com/lessonlab/vodpipe/internal/media"
	"github.com/lessonlab/vodpipe/internal/scratch"
	"github.com/lessonlab/vodpipe/internal/signing"
)

var (
	// ErrUnsupportedType is returned when the declared MIME type is not
	// in the allow-list. Client's fault; never retried.
	ErrUnsupportedType = errors.New("unsupported media type")

	// ErrFileTooLarge is returned when the upload exceeds the size
	// limit. Rejected before any scratch file is written.
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
)

// DefaultAllowedTypes lists the video container MIME types accepted by
// the intake handler.
var DefaultAllowedTypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/webm",
	"video/x-matroska",
	"video/x-msvideo",
	"video/mpeg",
}

// UploadInput contains the parameters of one raw video upload. The
// reader is consumed exactly once and never persisted beyond the
// request.
type UploadInput struct {
	FileName     string
	ContentType  string
	DeclaredSize int64
	Body         io.Reader

	// LessonID optionally identifies the owning lesson record to update
	// after a successful upload.
	LessonID uuid.UUID
}

// UploadOutput is the successful result of the ingestion pipeline.
type UploadOutput struct {
	SignedURL       string
	CanonicalURL    string
	DurationSeconds int
	Width           int
	Height          int
	AssetName       string
	ExpiresAt       int64
}

// UploadService defines the interface for the video ingestion pipeline.
type UploadService interface {
	// ProcessUpload validates the upload, transcodes it, pushes the
	// result to object storage and returns a signed playback URL.
	// Every scratch artifact created along the way is removed before
	// the call returns, on success and on every failure path.
	ProcessUpload(ctx context.Context, input UploadInput) (*UploadOutput, error)
}

// UploadServiceConfig holds configuration for UploadService.
type UploadServiceConfig struct {
	// ScratchDir is the base directory for per-request scratch space.
	ScratchDir string
	// MaxUploadBytes caps the accepted raw file size.
	MaxUploadBytes int64
	// AllowedTypes is the MIME allow-list for the intake check.
	AllowedTypes []string
	// TranscodeTimeout bounds the external engine run; on expiry the
	// subprocess is killed and the scratch tree removed.
	TranscodeTimeout time.Duration
	// TokenTTL is the validity window of issued playback URLs.
	TokenTTL time.Duration
}

// DefaultUploadServiceConfig returns the default configuration.
func DefaultUploadServiceConfig() UploadServiceConfig {
	return UploadServiceConfig{
		ScratchDir:       os.TempDir(),
		MaxUploadBytes:   500 << 20,
		AllowedTypes:     DefaultAllowedTypes,
		TranscodeTimeout: 30 * time.Minute,
		TokenTTL:         6 * time.Hour,
	}
}

type uploadService struct {
	engine  media.Engine
	storage repository.ObjectStorage
	signer  *signing.Signer
	assets  repository.AssetRepository
	events  repository.EventPublisher
	cache   cache.AssetCache
	logger  *slog.Logger

	cfg UploadServiceConfig
}

// NewUploadService creates a new UploadService instance. The asset
// repository, event publisher and cache may be nil when record updates
// and event fan-out are not wired.
func NewUploadService(
	engine media.Engine,
	storage repository.ObjectStorage,
	signer *signing.Signer,
	assets repository.AssetRepository,
	events repository.EventPublisher,
	assetCache cache.AssetCache,
	logger *slog.Logger,
	cfg UploadServiceConfig,
) UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultAllowedTypes
	}
	return &uploadService{
		engine:  engine,
		storage: storage,
		signer:  signer,
		assets:  assets,
		events:  events,
		cache:   assetCache,
		logger:  logger,
		cfg:     cfg,
	}
}

// ProcessUpload runs the five-step pipeline sequentially: scratch
// write, probe, transcode, batch upload, sign. Each step's failure
// aborts everything after it; the deferred scratch removal runs on
// every exit path.
func (s *uploadService) ProcessUpload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	if err := s.validate(input); err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.UploadStatusRejected).Inc()
		return nil, err
	}
	metrics.UploadsTotal.WithLabelValues(metrics.UploadStatusAccepted).Inc()

	dir, err := scratch.NewDir(s.cfg.ScratchDir)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.UploadStatusFailed).Inc()
		return nil, fmt.Errorf("create scratch space: %w", err)
	}
	defer func() {
		if err := dir.Remove(); err != nil {
			s.logger.Error("scratch cleanup failed",
				slog.String("dir", dir.Path()),
				slog.String("error", err.Error()),
			)
		}
	}()

	output, err := s.runPipeline(ctx, dir, input)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.UploadStatusFailed).Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues(metrics.UploadStatusCompleted).Inc()
	return output, nil
}

func (s *uploadService) runPipeline(ctx context.Context, dir *scratch.Dir, input UploadInput) (*UploadOutput, error) {
	rawPath, err := s.writeScratchFile(dir, input)
	if err != nil {
		return nil, err
	}

	info, err := s.engine.Probe(ctx, rawPath)
	if err != nil {
		return nil, err
	}

	outputDir, err := dir.Subdir("hls")
	if err != nil {
		return nil, err
	}

	transcodeCtx := ctx
	if s.cfg.TranscodeTimeout > 0 {
		var cancel context.CancelFunc
		transcodeCtx, cancel = context.WithTimeout(ctx, s.cfg.TranscodeTimeout)
		defer cancel()
	}

	start := time.Now()
	if _, err := s.engine.TranscodeToHLS(transcodeCtx, rawPath, outputDir); err != nil {
		return nil, err
	}
	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())

	keyPrefix := path.Join("hls", uuid.NewString())
	batch, err := s.storage.UploadDir(ctx, keyPrefix, outputDir)
	if err != nil {
		metrics.SegmentUploadsTotal.WithLabelValues(metrics.SegmentStatusError).Inc()
		return nil, err
	}
	metrics.SegmentUploadsTotal.WithLabelValues(metrics.SegmentStatusSuccess).
		Add(float64(len(batch.SegmentKeys) + 1))

	canonicalURL := s.storage.PublicURL(batch.ManifestKey)

	signed, err := s.signer.Sign(canonicalURL, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign manifest URL: %w", err)
	}

	asset, err := model.NewStoredAsset(canonicalURL, info.DurationSeconds, info.Width, info.Height)
	if err != nil {
		return nil, err
	}

	if input.LessonID != uuid.Nil {
		s.attachToLesson(ctx, input.LessonID, asset)
	}

	return &UploadOutput{
		SignedURL:       signed.URL,
		CanonicalURL:    canonicalURL,
		DurationSeconds: asset.DurationSeconds,
		Width:           asset.Width,
		Height:          asset.Height,
		AssetName:       scratch.SanitizeName(input.FileName),
		ExpiresAt:       signed.ExpiresAt,
	}, nil
}

// validate applies the type and size checks before any scratch file is
// written.
func (s *uploadService) validate(input UploadInput) error {
	allowed := false
	for _, t := range s.cfg.AllowedTypes {
		if input.ContentType == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, input.ContentType)
	}

	if input.DeclaredSize > s.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, input.DeclaredSize)
	}

	return nil
}

// writeScratchFile streams the upload body into the scratch directory.
// The copy is capped one byte past the limit so an undeclared oversize
// body is still caught even when the declared size lied.
func (s *uploadService) writeScratchFile(dir *scratch.Dir, input UploadInput) (string, error) {
	dest := dir.File(input.FileName)

	file, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}

	written, err := io.Copy(file, io.LimitReader(input.Body, s.cfg.MaxUploadBytes+1))
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if written > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: body larger than declared", ErrFileTooLarge)
	}

	return dest, nil
}

// attachToLesson persists the asset against the owning lesson and fans
// out the processed event. Both are best-effort: the asset already
// exists in storage, so a failure here is reported but never rolls the
// upload back.
func (s *uploadService) attachToLesson(ctx context.Context, lessonID uuid.UUID, asset *model.StoredAsset) {
	if s.assets != nil {
		if err := s.assets.UpdateLessonVideo(ctx, lessonID, asset); err != nil {
			s.logger.Error("failed to update lesson video reference",
				slog.String("lesson_id", lessonID.String()),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	if s.cache != nil {
		if err := s.cache.SetLesson(ctx, asset.CanonicalURL, lessonID, s.cfg.TokenTTL); err != nil {
			s.logger.Warn("failed to cache asset lesson mapping",
				slog.String("lesson_id", lessonID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.events != nil {
		event := repository.VideoProcessedEvent{
			LessonID:        lessonID,
			ManifestURL:     asset.CanonicalURL,
			DurationSeconds: asset.DurationSeconds,
			Width:           asset.Width,
			Height:          asset.Height,
			CompletedAt:     time.Now().UTC(),
		}
		if err := s.events.PublishVideoProcessed(ctx, event); err != nil {
			s.logger.Warn("failed to publish video processed event",
				slog.String("lesson_id", lessonID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}
