package noop_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scandesk/internal/port"
	"scandesk/internal/storage/noop"
)

func TestNoopStorage(t *testing.T) {
	s := noop.NewNoopStorage()

	out, err := s.Upload(context.Background(), port.ArchiveObject{
		Bucket:      "samples",
		Key:         "cv_samples/demo/ocr.json",
		Body:        strings.NewReader(`{"ok":true}`),
		ContentType: "application/json",
	})
	require.NoError(t, err)
	assert.Equal(t, "noop://samples/cv_samples/demo/ocr.json", out.Location)

	url, err := s.GetPresignedURL(context.Background(), "samples", "k", 60)
	require.NoError(t, err)
	assert.Equal(t, "noop://samples/k", url)
}
