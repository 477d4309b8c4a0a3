package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/lessonlab/vodpipe/internal/domain/model"
	"github.com/lessonlab/vodpipe/internal/domain/repository"
	"github.com/lessonlab/vodpipe/internal/media"
)

// mockEngine provides a configurable mock for media.Engine.
type mockEngine struct {
	probeFn     func(ctx context.Context, inputPath string) (*media.MediaInfo, error)
	transcodeFn func(ctx context.Context, inputPath, outputDir string) (*media.HLSOutput, error)
}

func (m *mockEngine) Probe(ctx context.Context, inputPath string) (*media.MediaInfo, error) {
	if m.probeFn != nil {
		return m.probeFn(ctx, inputPath)
	}
	return &media.MediaInfo{DurationSeconds: 10, Width: 1280, Height: 720}, nil
}

func (m *mockEngine) TranscodeToHLS(ctx context.Context, inputPath, outputDir string) (*media.HLSOutput, error) {
	if m.transcodeFn != nil {
		return m.transcodeFn(ctx, inputPath, outputDir)
	}
	return &media.HLSOutput{ManifestPath: outputDir + "/playlist.m3u8"}, nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	uploadFn    func(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	uploadDirFn func(ctx context.Context, keyPrefix, dir string) (*repository.BatchResult, error)
	deleteFn    func(ctx context.Context, key string) error
	existsFn    func(ctx context.Context, key string) (bool, error)
	publicURLFn func(key string) string
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, size, contentType)
	}
	return nil
}

func (m *mockObjectStorage) UploadDir(ctx context.Context, keyPrefix, dir string) (*repository.BatchResult, error) {
	if m.uploadDirFn != nil {
		return m.uploadDirFn(ctx, keyPrefix, dir)
	}
	return &repository.BatchResult{
		ManifestKey: keyPrefix + "/playlist.m3u8",
		SegmentKeys: []string{keyPrefix + "/segment_00000.ts"},
	}, nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return true, nil
}

func (m *mockObjectStorage) PublicURL(key string) string {
	if m.publicURLFn != nil {
		return m.publicURLFn(key)
	}
	return "https://cdn.example.com/" + key
}

// mockAssetRepository provides a configurable mock for AssetRepository.
type mockAssetRepository struct {
	updateLessonVideoFn    func(ctx context.Context, lessonID uuid.UUID, asset *model.StoredAsset) error
	findLessonByVideoURLFn func(ctx context.Context, canonicalURL string) (uuid.UUID, error)
}

func (m *mockAssetRepository) UpdateLessonVideo(ctx context.Context, lessonID uuid.UUID, asset *model.StoredAsset) error {
	if m.updateLessonVideoFn != nil {
		return m.updateLessonVideoFn(ctx, lessonID, asset)
	}
	return nil
}

func (m *mockAssetRepository) FindLessonByVideoURL(ctx context.Context, canonicalURL string) (uuid.UUID, error) {
	if m.findLessonByVideoURLFn != nil {
		return m.findLessonByVideoURLFn(ctx, canonicalURL)
	}
	return uuid.Nil, repository.ErrLessonNotFound
}

// mockEntitlementChecker provides a configurable mock for EntitlementChecker.
type mockEntitlementChecker struct {
	isEnrolledFn func(ctx context.Context, userID, lessonID uuid.UUID) (bool, error)
}

func (m *mockEntitlementChecker) IsEnrolled(ctx context.Context, userID, lessonID uuid.UUID) (bool, error) {
	if m.isEnrolledFn != nil {
		return m.isEnrolledFn(ctx, userID, lessonID)
	}
	return true, nil
}

// mockEventPublisher provides a configurable mock for EventPublisher.
type mockEventPublisher struct {
	publishFn func(ctx context.Context, event repository.VideoProcessedEvent) error
	published []repository.VideoProcessedEvent
}

func (m *mockEventPublisher) PublishVideoProcessed(ctx context.Context, event repository.VideoProcessedEvent) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, event); err != nil {
			return err
		}
	}
	m.published = append(m.published, event)
	return nil
}

func (m *mockEventPublisher) Close() error {
	return nil
}

// mockAssetCache provides a configurable mock for cache.AssetCache.
type mockAssetCache struct {
	getLessonFn func(ctx context.Context, canonicalURL string) (uuid.UUID, error)
	setLessonFn func(ctx context.Context, canonicalURL string, lessonID uuid.UUID, ttl time.Duration) error
	deleteFn    func(ctx context.Context, canonicalURL string) error
}

func (m *mockAssetCache) GetLesson(ctx context.Context, canonicalURL string) (uuid.UUID, error) {
	if m.getLessonFn != nil {
		return m.getLessonFn(ctx, canonicalURL)
	}
	return uuid.Nil, nil
}

func (m *mockAssetCache) SetLesson(ctx context.Context, canonicalURL string, lessonID uuid.UUID, ttl time.Duration) error {
	if m.setLessonFn != nil {
		return m.setLessonFn(ctx, canonicalURL, lessonID, ttl)
	}
	return nil
}

func (m *mockAssetCache) Delete(ctx context.Context, canonicalURL string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, canonicalURL)
	}
	return nil
}
