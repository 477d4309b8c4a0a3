package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/lessonlab/vodpipe/internal/domain/repository"
)

// minioClient defines the interface for MinIO operations.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// minioClientAdapter wraps *minio.Client to implement minioClient.
type minioClientAdapter struct {
	client *minio.Client
}

func (a *minioClientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

func (a *minioClientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a *minioClientAdapter) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return a.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

// contentTypes maps output file extensions to the MIME types segments
// and manifests are served with.
var contentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
}

const manifestExt = ".m3u8"

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// PublicBaseURL is the externally reachable prefix canonical
	// object URLs are built from.
	PublicBaseURL string

	// Concurrency bounds parallel per-file uploads in UploadDir.
	Concurrency int

	// MaxRetries and RetryBackoff govern the bounded per-file retry of
	// transient storage failures. Per-file puts are idempotent, so
	// retrying is safe.
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client wraps a MinIO client and implements repository.ObjectStorage.
type Client struct {
	client        minioClient
	bucket        string
	publicBaseURL string
	concurrency   int
	maxRetries    int
	retryBackoff  time.Duration
	logger        *slog.Logger
}

// Compile-time verification that Client implements repository.ObjectStorage.
var _ repository.ObjectStorage = (*Client)(nil)

// NewClient creates a new MinIO client.
// It verifies the bucket exists during initialization to fail fast on
// misconfiguration.
func NewClient(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newClientWithMinioClient(ctx, &minioClientAdapter{client: client}, cfg, logger)
}

// newClientWithMinioClient creates a Client with a given minioClient
// implementation. This is used for dependency injection in tests.
func newClientWithMinioClient(ctx context.Context, client minioClient, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, cfg.Bucket)
	}

	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		concurrency:   concurrency,
		maxRetries:    retries,
		retryBackoff:  cfg.RetryBackoff,
		logger:        logger,
	}, nil
}

// Upload stores a single object, retrying transient failures a bounded
// number of times with backoff.
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", repository.ErrStorageUnavailable, key, err)
	}
	return nil
}

// UploadDir uploads every regular file in dir under keyPrefix in
// file-name order, identifying the manifest by its extension. The
// batch is all-or-nothing: any per-file failure (after its bounded
// retries) cancels the remaining uploads and removes the objects this
// attempt already wrote, so a partial manifest is never exposed.
func (c *Client) UploadDir(ctx context.Context, keyPrefix, dir string) (*repository.BatchResult, error) {
	files, manifestName, err := listBatch(dir)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		uploaded []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, name := range files {
		name := name
		g.Go(func() error {
			key := path.Join(keyPrefix, name)
			if err := c.uploadFileWithRetry(gctx, key, filepath.Join(dir, name)); err != nil {
				return err
			}
			mu.Lock()
			uploaded = append(uploaded, key)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.removeKeys(uploaded)
		return nil, err
	}

	manifestKey := path.Join(keyPrefix, manifestName)
	segmentKeys := make([]string, 0, len(files)-1)
	for _, name := range files {
		if name != manifestName {
			segmentKeys = append(segmentKeys, path.Join(keyPrefix, name))
		}
	}

	return &repository.BatchResult{
		ManifestKey: manifestKey,
		SegmentKeys: segmentKeys,
	}, nil
}

// uploadFileWithRetry opens and uploads one local file, retrying
// transient failures up to the configured bound.
func (c *Client) uploadFileWithRetry(ctx context.Context, key, localPath string) error {
	contentType := contentTypes[strings.ToLower(filepath.Ext(localPath))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		lastErr = c.uploadFile(ctx, key, localPath, contentType)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		c.logger.Warn("segment upload failed, retrying",
			slog.String("key", key),
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()),
		)
	}

	return lastErr
}

func (c *Client) uploadFile(ctx context.Context, key, localPath, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	return c.Upload(ctx, key, file, info.Size(), contentType)
}

// removeKeys deletes objects written by a failed batch attempt.
// Best-effort compensating cleanup: a failure here leaks orphaned
// segments but the manifest URL was never returned, so nothing ever
// references them.
func (c *Client) removeKeys(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			c.logger.Warn("failed to remove object after aborted batch",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Delete removes an object from the storage.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove %s: %v", repository.ErrStorageUnavailable, key, err)
	}
	return nil
}

// Exists checks if an object exists in the storage.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %v", repository.ErrStorageUnavailable, key, err)
	}
	return true, nil
}

// PublicURL builds the stable, unsigned URL of an object.
func (c *Client) PublicURL(key string) string {
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return c.publicBaseURL + "/" + strings.Join(escaped, "/")
}

// Ping verifies the MinIO connection is alive by checking bucket access.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.BucketExists(ctx, c.bucket); err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// listBatch enumerates the regular files of a transcode output
// directory in file-name order and identifies the single manifest.
func listBatch(dir string) ([]string, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("read output directory: %w", err)
	}

	var (
		files    []string
		manifest string
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.EqualFold(filepath.Ext(name), manifestExt) {
			if manifest != "" {
				return nil, "", fmt.Errorf("multiple manifest files in %s", dir)
			}
			manifest = name
		}
		files = append(files, name)
	}

	if manifest == "" {
		return nil, "", errors.New("no manifest file in transcode output")
	}

	sort.Strings(files)
	return files, manifest, nil
}
