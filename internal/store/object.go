package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"github.com/ppiankov/fraudscrape/internal/model"
)

// ObjectStore is a write-only blob store
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Close() error
}

// OpenObjectStore builds the backend named by cfg.Backend
func OpenObjectStore(ctx context.Context, cfg model.StorageConfig, awsCfg aws.Config) (ObjectStore, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket), nil
	case "gcs":
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return NewGCSStore(client, cfg.Bucket), nil
	case "local":
		return NewLocalStore(cfg.LocalDir), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", model.ErrInvalidConfig, cfg.Backend)
	}
}

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes objects to an S3 bucket
type S3Store struct {
	client S3API
	bucket string
}

// NewS3Store creates an S3-backed store
func NewS3Store(client S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Put uploads body at key
func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Close is a no-op
func (s *S3Store) Close() error { return nil }

// GCSStore writes objects to a Google Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a GCS-backed store that owns client
func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket}
}

// Put uploads body at key. The object only exists once the writer closes.
func (s *GCSStore) Put(ctx context.Context, key string, body []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType(key)
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Close releases the GCS client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// LocalStore writes objects as files under a directory, mirroring keys as
// relative paths
type LocalStore struct {
	dir string
}

// NewLocalStore creates a directory-backed store
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Put writes body to dir/key, creating parent directories
func (s *LocalStore) Put(_ context.Context, key string, body []byte) error {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}

	target := filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

// Close is a no-op
func (s *LocalStore) Close() error { return nil }

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
