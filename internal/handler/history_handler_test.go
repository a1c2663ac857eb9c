package handler_test

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"scandesk/internal/domain"
	"scandesk/internal/historyexport"
)

func TestHistoryHandler_List(t *testing.T) {
	f := newDesk(t)
	items := []domain.HistoryItem{{ID: "job-1", Filename: "a.png", Status: domain.JobStatusDone, ScoreInt: 90}}
	f.history.On("List", mock.Anything, 5).Return(items, nil).Once()

	w, env := f.doJSON(t, http.MethodGet, "/api/v1/history?limit=5", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"job-1"`)
	f.history.AssertExpectations(t)
}

func TestHistoryHandler_InvalidLimit(t *testing.T) {
	f := newDesk(t)

	w, env := f.doJSON(t, http.MethodGet, "/api/v1/history?limit=abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LIMIT", env.Error.Code)
	f.history.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestHistoryHandler_ServiceUnavailable(t *testing.T) {
	f := newDesk(t)
	f.history.On("List", mock.Anything, 0).
		Return(nil, &domain.ServiceError{StatusCode: 503, Message: "Service Unavailable"})

	w, env := f.doJSON(t, http.MethodGet, "/api/v1/history", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "SERVICE_ERROR", env.Error.Code)
	assert.Equal(t, "Service Unavailable", env.Error.Message)
}

func TestHistoryHandler_ExportCSV(t *testing.T) {
	f := newDesk(t)
	csvData := append(append([]byte{}, historyexport.BOM...), []byte("Job ID,Filename\n")...)
	f.history.On("Export", mock.Anything, domain.ExportCSV, 0).Return(csvData, nil).Once()

	w, _ := f.doJSON(t, http.MethodGet, "/api/v1/history/export?format=csv&name=Front+Desk", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Front_Desk_")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), historyexport.BOM))
}

func TestHistoryHandler_ExportUnsupported(t *testing.T) {
	f := newDesk(t)
	f.history.On("Export", mock.Anything, domain.ExportFormat("pdf"), 0).
		Return(nil, domain.ErrUnsupportedExportFormat)

	w, env := f.doJSON(t, http.MethodGet, "/api/v1/history/export?format=pdf", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", env.Error.Code)
}

func TestHistoryHandler_GetJob(t *testing.T) {
	f := newDesk(t)
	f.history.On("GetJob", mock.Anything, "job-9").
		Return(&domain.Job{ID: "job-9", Status: domain.JobStatusRunning}, nil)
	f.history.On("GetJob", mock.Anything, "missing").Return(nil, domain.ErrJobNotFound)

	w, env := f.doJSON(t, http.MethodGet, "/api/v1/jobs/job-9", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"running"`)

	w, env = f.doJSON(t, http.MethodGet, "/api/v1/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "JOB_NOT_FOUND", env.Error.Code)
}

func TestHealthHandler(t *testing.T) {
	f := newDesk(t)
	f.health.On("Health", mock.Anything).Return(nil).Once()
	f.health.On("Health", mock.Anything).Return(errors.New("connection refused")).Once()

	w, _ := f.doJSON(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.doJSON(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.doJSON(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
