package noop

import (
	"context"
	"fmt"
	"io"
	"log"

	"scandesk/internal/port"
)

type noopStorage struct{}

// NewNoopStorage creates a no-op ObjectStorage that logs archive writes to
// stdout and discards the bytes.
func NewNoopStorage() port.ObjectStorage {
	return &noopStorage{}
}

func (s *noopStorage) Upload(_ context.Context, input port.ArchiveObject) (*port.ArchivedObject, error) {
	n, err := io.Copy(io.Discard, input.Body)
	if err != nil {
		return nil, fmt.Errorf("noop upload read: %w", err)
	}
	location := fmt.Sprintf("noop://%s/%s", input.Bucket, input.Key)
	log.Printf("[NOOP ARCHIVE] %s (%s, %d bytes)", location, input.ContentType, n)
	return &port.ArchivedObject{Location: location}, nil
}

func (s *noopStorage) GetPresignedURL(_ context.Context, bucket, key string, _ int64) (string, error) {
	return fmt.Sprintf("noop://%s/%s", bucket, key), nil
}
