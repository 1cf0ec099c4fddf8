package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the minimal object storage operations the judge
// pipeline needs: fetching test data packs and submitted sources, and
// archiving judge artifacts. It is intentionally small so we can swap
// MinIO/AWS-S3 implementations without touching business logic.
type ObjectStorage interface {
	// GetObject opens a reader for an object.
	// Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

	// PutObject uploads an object. Pass sizeBytes = -1 when unknown.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// StatObject returns size and ETag for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)

	// RemoveObject deletes an object.
	RemoveObject(ctx context.Context, bucket, objectKey string) error
}

// ObjectStat contains object metadata used for validation.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}
