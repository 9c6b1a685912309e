package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound reports that no object exists under the requested key.
var ErrNotFound = errors.New("object not found")

// ObjectStore persists raw file contents keyed by owner and mapping id.
type ObjectStore interface {
	Upload(ctx context.Context, userID, id int64, contents []byte, contentType string) error
	Download(ctx context.Context, userID, id int64) ([]byte, error)
}

// MinioStore implements ObjectStore on MinIO/S3 compatible storage.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Upload stores the contents under {userID}/{id}.
func (m *MinioStore) Upload(ctx context.Context, userID, id int64, contents []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectKey(userID, id),
		bytes.NewReader(contents), int64(len(contents)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Download fetches the contents stored under {userID}/{id}.
func (m *MinioStore) Download(ctx context.Context, userID, id int64) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey(userID, id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	contents, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("get object %s: %w", objectKey(userID, id), ErrNotFound)
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return contents, nil
}

func objectKey(userID, id int64) string {
	return fmt.Sprintf("%d/%d", userID, id)
}
