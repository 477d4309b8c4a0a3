package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lessonlab/vodpipe/internal/domain/repository"
	"github.com/lessonlab/vodpipe/internal/infrastructure/cache"
	"github.com/lessonlab/vodpipe/internal/infrastructure/metrics"
	"github.com/lessonlab/vodpipe/internal/signing"
)

var (
	// ErrNotEntitled is returned when the requesting user holds no
	// enrollment covering the lesson that owns the asset.
	ErrNotEntitled = errors.New("user is not entitled to this content")

	// ErrUnknownAsset is returned when a re-sign request references a
	// canonical URL no lesson record points at.
	ErrUnknownAsset = errors.New("unknown asset URL")
)

// PlaybackService defines the playback-side operations: stateless
// token verification and re-signing of expired URLs.
type PlaybackService interface {
	// Verify checks a presented playback URL, token and expiry against
	// the current time and, when a user is identified, against their
	// enrollment. Returns nil only for a fully valid request.
	Verify(ctx context.Context, rawURL, token string, expiresAt int64, userID uuid.UUID) error

	// Resign issues a fresh signed URL for an existing asset without
	// re-running transcoding.
	Resign(ctx context.Context, canonicalURL string) (*signing.SignedURL, error)
}

// PlaybackServiceConfig holds configuration for PlaybackService.
type PlaybackServiceConfig struct {
	// TokenTTL is the validity window of re-issued playback URLs.
	TokenTTL time.Duration
	// LessonCacheTTL bounds the cached URL → lesson mapping.
	LessonCacheTTL time.Duration
}

// DefaultPlaybackServiceConfig returns the default configuration.
func DefaultPlaybackServiceConfig() PlaybackServiceConfig {
	return PlaybackServiceConfig{
		TokenTTL:       6 * time.Hour,
		LessonCacheTTL: 10 * time.Minute,
	}
}

type playbackService struct {
	signer       *signing.Signer
	assets       repository.AssetRepository
	entitlements repository.EntitlementChecker
	cache        cache.AssetCache
	logger       *slog.Logger
	sfGroup      singleflight.Group

	cfg PlaybackServiceConfig
}

// NewPlaybackService creates a new PlaybackService instance. The
// entitlement checker and cache may be nil; verification then skips
// the enrollment cross-check and lesson lookups always hit the
// repository.
func NewPlaybackService(
	signer *signing.Signer,
	assets repository.AssetRepository,
	entitlements repository.EntitlementChecker,
	assetCache cache.AssetCache,
	logger *slog.Logger,
	cfg PlaybackServiceConfig,
) PlaybackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &playbackService{
		signer:       signer,
		assets:       assets,
		entitlements: entitlements,
		cache:        assetCache,
		logger:       logger,
		cfg:          cfg,
	}
}

// Verify delegates signature and expiry checking to the signer, then
// optionally cross-checks the requesting user's enrollment in the
// owning lesson. The cryptographic check always runs first so an
// attacker cannot use entitlement responses as an oracle for forged
// URLs.
func (s *playbackService) Verify(ctx context.Context, rawURL, token string, expiresAt int64, userID uuid.UUID) error {
	if err := s.signer.Verify(rawURL, token, expiresAt); err != nil {
		switch {
		case errors.Is(err, signing.ErrTokenExpired):
			metrics.TokenVerificationsTotal.WithLabelValues(metrics.TokenResultExpired).Inc()
		default:
			metrics.TokenVerificationsTotal.WithLabelValues(metrics.TokenResultInvalid).Inc()
		}
		return err
	}

	if userID != uuid.Nil && s.entitlements != nil {
		lessonID, err := s.lookupLesson(ctx, canonicalForm(rawURL))
		switch {
		case errors.Is(err, repository.ErrLessonNotFound):
			// Asset not attached to any lesson; nothing to gate on.
		case err != nil:
			return fmt.Errorf("resolve lesson for entitlement check: %w", err)
		default:
			entitled, err := s.entitlements.IsEnrolled(ctx, userID, lessonID)
			if err != nil {
				return fmt.Errorf("check entitlement: %w", err)
			}
			if !entitled {
				metrics.TokenVerificationsTotal.WithLabelValues(metrics.TokenResultInvalid).Inc()
				return ErrNotEntitled
			}
		}
	}

	metrics.TokenVerificationsTotal.WithLabelValues(metrics.TokenResultValid).Inc()
	return nil
}

// Resign issues a fresh token for an asset that already exists. The
// canonical URL must resolve to a lesson record, so expired links to
// deleted content cannot be refreshed.
func (s *playbackService) Resign(ctx context.Context, canonicalURL string) (*signing.SignedURL, error) {
	canonical := canonicalForm(canonicalURL)

	if _, err := s.lookupLesson(ctx, canonical); err != nil {
		if errors.Is(err, repository.ErrLessonNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, canonical)
		}
		return nil, err
	}

	signed, err := s.signer.Sign(canonical, s.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("re-sign manifest URL: %w", err)
	}
	return signed, nil
}

// lookupLesson resolves the lesson owning a canonical URL through the
// cache-aside path, coalescing concurrent lookups for the same URL
// behind singleflight so a burst of re-sign requests after a token
// expiry does not stampede the database.
func (s *playbackService) lookupLesson(ctx context.Context, canonicalURL string) (uuid.UUID, error) {
	result, err, _ := s.sfGroup.Do(canonicalURL, func() (any, error) {
		if s.cache != nil {
			id, err := s.cache.GetLesson(ctx, canonicalURL)
			if err != nil {
				s.logger.Warn("asset cache get failed, falling back to database",
					slog.String("error", err.Error()),
				)
			} else if id != uuid.Nil {
				return id, nil
			}
		}

		id, err := s.assets.FindLessonByVideoURL(ctx, canonicalURL)
		if err != nil {
			return uuid.Nil, err
		}

		if s.cache != nil {
			if err := s.cache.SetLesson(ctx, canonicalURL, id, s.cfg.LessonCacheTTL); err != nil {
				s.logger.Warn("asset cache set failed",
					slog.String("error", err.Error()),
				)
			}
		}
		return id, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return result.(uuid.UUID), nil
}

// canonicalForm strips any token parameters so lookups key on the
// unsigned URL the asset records store.
func canonicalForm(rawURL string) string {
	stripped, err := signing.StripSignatureParams(rawURL)
	if err != nil {
		return rawURL
	}
	return stripped
}
