package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore is the subset of the S3 client used for artifacts.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Config holds connection settings for an S3-compatible store.
type S3Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
}

// NewS3Client creates a MinIO/S3 client from cfg. An https endpoint URL
// enables TLS.
func NewS3Client(cfg S3Config) (*minio.Client, error) {
	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("endpoint URL is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("credentials are required")
	}

	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.EndpointURL
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: u.Scheme == "https",
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return client, nil
}

// ArtifactStore uploads run outputs under runs/{run_id}/.
type ArtifactStore struct {
	client ObjectStore
	bucket string
	region string
	runID  string
	logger *zap.SugaredLogger
}

// NewArtifactStore creates a store writing into bucket.
func NewArtifactStore(client ObjectStore, bucket, region, runID string, logger *zap.Logger) *ArtifactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactStore{client: client, bucket: bucket, region: region, runID: runID, logger: logger.Sugar()}
}

// EnsureBucket creates the bucket if it does not exist.
func (s *ArtifactStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Key returns the object key for an artifact name.
func (s *ArtifactStore) Key(name string) string {
	return path.Join("runs", s.runID, name)
}

// Upload stores data under the run prefix and returns its key.
func (s *ArtifactStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := s.Key(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		exportFailures.WithLabelValues("s3").Inc()
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	rowsExported.WithLabelValues("s3").Inc()
	s.logger.Infow("Uploaded artifact", "bucket", s.bucket, "key", key, "bytes", len(data))
	return key, nil
}

// UploadFile uploads a local file under its base name.
func (s *ArtifactStore) UploadFile(ctx context.Context, file, contentType string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return s.Upload(ctx, filepath.Base(file), data, contentType)
}
