package port

import (
	"context"
	"io"
)

// ArchiveObject is one file of a saved-example snapshot.
type ArchiveObject struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	// Metadata is stored alongside the object (x-amz-meta-* on S3).
	Metadata map[string]string
}

// ArchivedObject is where a snapshot file ended up.
type ArchivedObject struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts the archive that example snapshots are copied to.
type ObjectStorage interface {
	Upload(ctx context.Context, obj ArchiveObject) (*ArchivedObject, error)
	// GetPresignedURL returns a time-limited download link. The link names
	// the key's base name as the download filename.
	GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
}
