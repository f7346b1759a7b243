// Package artifact archives batch request and result files to object storage.
package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/amishk599/jobenrich/internal/model"
)

const defaultBucket = "jobenrich-batches"

// Ensure MinIOArchiver implements model.Archiver.
var _ model.Archiver = (*MinIOArchiver)(nil)

// Options configure a MinIOArchiver.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOArchiver uploads files to an S3-compatible bucket, creating it on first use.
type MinIOArchiver struct {
	client *minio.Client
	bucket string
	ready  bool
}

// NewMinIOArchiver builds a client for opts.Endpoint. No request is made until Archive.
func NewMinIOArchiver(opts Options) (*MinIOArchiver, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("artifact endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		bucket = defaultBucket
	}
	return &MinIOArchiver{client: client, bucket: bucket}, nil
}

// Archive uploads localPath as objectName and returns the s3:// location.
func (a *MinIOArchiver) Archive(ctx context.Context, objectName, localPath string) (string, error) {
	if !a.ready {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			return "", fmt.Errorf("check bucket %s: %w", a.bucket, err)
		}
		if !exists {
			if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
				return "", fmt.Errorf("create bucket %s: %w", a.bucket, err)
			}
		}
		a.ready = true
	}

	_, err := a.client.FPutObject(ctx, a.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, objectName), nil
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}

// Ensure NopArchiver implements model.Archiver.
var _ model.Archiver = NopArchiver{}

// NopArchiver is used when no object store is configured.
type NopArchiver struct{}

func (NopArchiver) Archive(_ context.Context, _, localPath string) (string, error) {
	return localPath, nil
}
