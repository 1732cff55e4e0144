// Package archive mirrors submitted scans to S3-compatible storage so a
// clinic keeps an audit copy of everything sent for analysis. Archiving is
// optional and never blocks or fails an upload.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive writes audit copies of submitted scans.
type Archive struct {
	client *minio.Client
	bucket string
}

// New connects to the archive endpoint and ensures the bucket exists.
func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check archive bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create archive bucket: %w", err)
		}
	}
	return &Archive{client: client, bucket: bucket}, nil
}

// StoreScan uploads a copy of a submitted image under a per-user key and
// returns the object key.
func (a *Archive) StoreScan(ctx context.Context, userID int, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := fmt.Sprintf("scans/%d/%s-%s", userID, uuid.NewString(), filename)
	_, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("archive scan: %w", err)
	}
	return key, nil
}
