package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scandesk/internal/config"
	"scandesk/internal/port"
	s3storage "scandesk/internal/storage/s3"
)

func newArchiveConfig(endpoint string) *config.ArchiveConfig {
	return &config.ArchiveConfig{
		Provider:  config.ArchiveS3,
		Region:    "us-east-1",
		Bucket:    "samples",
		Endpoint:  endpoint,
		AccessKey: "test-access",
		SecretKey: "test-secret",
	}
}

func TestS3Client_UploadDefaultsBucketAndSendsMetadata(t *testing.T) {
	var gotPath, gotContentType, gotBody, gotFolder string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotFolder = r.Header.Get("X-Amz-Meta-Remote-Folder")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := s3storage.NewS3Client(newArchiveConfig(server.URL))
	require.NoError(t, err)

	out, err := client.Upload(context.Background(), port.ArchiveObject{
		Key:         "cv_samples/demo/ocr.json",
		Body:        strings.NewReader(`{"best_variant":"scan"}`),
		ContentType: "application/json",
		Metadata:    map[string]string{"remote-folder": "/srv/cv_samples/demo"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/samples/cv_samples/demo/ocr.json", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "/srv/cv_samples/demo", gotFolder)
	assert.Contains(t, gotBody, `{"best_variant":"scan"}`)
	assert.Equal(t, `"abc123"`, out.ETag)
	assert.Contains(t, out.Location, "/samples/cv_samples/demo/ocr.json")
}

func TestS3Client_PresignedURL(t *testing.T) {
	client, err := s3storage.NewS3Client(newArchiveConfig("http://localhost:9000"))
	require.NoError(t, err)

	url, err := client.GetPresignedURL(context.Background(), "samples", "cv_samples/demo/full_response.json", 600)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/samples/cv_samples/demo/full_response.json?"))
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=600")
	assert.Contains(t, url, "response-content-disposition=attachment")
	assert.Contains(t, url, "full_response.json%22")
}
