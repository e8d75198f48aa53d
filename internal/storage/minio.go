// Package storage persists generated schema documents as versioned artifacts
// in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig contains object storage connection settings
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
}

// MinIOClient stores and retrieves schema artifacts
type MinIOClient struct {
	client     *minio.Client
	bucketName string
}

// schemaPrefix roots all schema artifacts inside the bucket
const schemaPrefix = "schemas"

// NewMinIOClient creates a new object storage client
func NewMinIOClient(cfg MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &MinIOClient{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// EnsureBucket creates the artifact bucket if it doesn't exist
func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("checking bucket existence: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
	}

	return nil
}

// Upload stores an object and returns its S3-style URI
func (m *MinIOClient) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading object: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", m.bucketName, key), nil
}

// UploadJSON stores a JSON document
func (m *MinIOClient) UploadJSON(ctx context.Context, key string, data []byte) (string, error) {
	return m.Upload(ctx, key, data, "application/json")
}

// SchemaKey builds the artifact key for one extraction run's schema document
func SchemaKey(runID string) string {
	return path.Join(schemaPrefix, runID, "form_schema.json")
}

// Download retrieves an object's content
func (m *MinIOClient) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

// Delete removes an object
func (m *MinIOClient) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
}

// GetPresignedURL returns a time-limited download URL for an artifact
func (m *MinIOClient) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucketName, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("generating presigned URL: %w", err)
	}
	return url.String(), nil
}

// ListSchemas lists the stored schema artifact keys, newest runs included
func (m *MinIOClient) ListSchemas(ctx context.Context) ([]string, error) {
	var keys []string

	objectCh := m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    schemaPrefix + "/",
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("listing schema artifacts: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}
