package handler_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"scandesk/internal/domain"
	"scandesk/internal/handler"
	"scandesk/internal/router"
	"scandesk/internal/service"
	"scandesk/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *handler.APIError `json:"error"`
}

type deskFixture struct {
	engine   *gin.Engine
	analyzer *mocks.MockAnalyzer
	archive  *mocks.MockArchiveService
	history  *mocks.MockHistoryService
	health   *mocks.MockHealthChecker
	sessions *service.SessionRegistry
}

func newDesk(t *testing.T) *deskFixture {
	t.Helper()
	f := &deskFixture{
		analyzer: new(mocks.MockAnalyzer),
		archive:  new(mocks.MockArchiveService),
		history:  new(mocks.MockHistoryService),
		health:   new(mocks.MockHealthChecker),
	}
	f.sessions = service.NewSessionRegistry(f.analyzer)
	t.Cleanup(f.sessions.CloseAll)
	f.engine = router.Setup(
		[]string{"http://localhost:3000"},
		handler.NewSessionHandler(f.sessions, f.archive),
		handler.NewHistoryHandler(f.history),
		handler.NewHealthHandler(f.health),
	)
	return f
}

func (f *deskFixture) do(t *testing.T, method, path string, body io.Reader, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	f.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (f *deskFixture) doJSON(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	return f.do(t, method, path, r, "application/json")
}

func viewModel(t *testing.T, env envelope) service.ViewModel {
	t.Helper()
	var vm service.ViewModel
	require.NoError(t, json.Unmarshal(env.Data, &vm))
	return vm
}

func (f *deskFixture) createSession(t *testing.T) string {
	t.Helper()
	w, env := f.doJSON(t, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	return viewModel(t, env).SessionID
}

func (f *deskFixture) upload(t *testing.T, id string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "receipt.png")
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	writer.Close()

	w, env := f.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/file", body, writer.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code)
	vm := viewModel(t, env)
	require.NotNil(t, vm.File)
	assert.Equal(t, "image/png", vm.File.ContentType)
}

func (f *deskFixture) analyze(t *testing.T, id string, result *domain.AnalysisResult) {
	t.Helper()
	f.analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(in service.AnalyzeInput) bool {
		return in.Options.Kind == domain.RequestAnalyze
	})).Return(result, nil).Once()

	w, env := f.doJSON(t, http.MethodPost, "/api/v1/sessions/"+id+"/analyze", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, env.Success)

	ctrl, err := f.sessions.Get(id)
	require.NoError(t, err)
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Snapshot().Loading {
		require.True(t, time.Now().Before(deadline), "analysis did not finish")
		time.Sleep(2 * time.Millisecond)
	}
}

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Quality:         domain.QualityResult{Score: 84},
		OCR:             domain.OCRResult{Text: "TOTAL 9.99"},
		OriginalPreview: &domain.OriginalPreview{ImgB64: "aW1n", Width: 800, Height: 600},
		Boundary:        &domain.BoundaryDetection{Found: false},
	}
}

func TestSessionHandler_CreateAndGet(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)
	assert.NotEmpty(t, id)

	w, env := f.doJSON(t, http.MethodGet, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, id, viewModel(t, env).SessionID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSessionHandler_UnknownSession(t *testing.T) {
	f := newDesk(t)

	w, env := f.doJSON(t, http.MethodGet, "/api/v1/sessions/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestSessionHandler_AnalyzeWithoutFile(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)

	w, env := f.doJSON(t, http.MethodPost, "/api/v1/sessions/"+id+"/analyze", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_FILE", env.Error.Code)
	f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestSessionHandler_UploadRequiresFile(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)

	w, env := f.doJSON(t, http.MethodPost, "/api/v1/sessions/"+id+"/file", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", env.Error.Code)
}

func TestSessionHandler_AnalyzeSeedsCorners(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)
	f.upload(t, id)

	f.analyze(t, id, sampleResult())

	_, env := f.doJSON(t, http.MethodGet, "/api/v1/sessions/"+id, "")
	vm := viewModel(t, env)
	assert.Equal(t, []domain.Point{{X: 80, Y: 60}, {X: 720, Y: 60}, {X: 720, Y: 540}, {X: 80, Y: 540}}, vm.Corners)
	assert.Equal(t, domain.EditorModeViewing, vm.Mode)
	assert.Equal(t, "TOTAL 9.99", vm.Result.OCR.Text)
}

func TestSessionHandler_AnalyzeFailureSurfacesError(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)
	f.upload(t, id)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Return(nil, &domain.UploadError{StatusCode: 413, Message: "File too large. Max 10MB."}).Once()

	w, _ := f.doJSON(t, http.MethodPost, "/api/v1/sessions/"+id+"/analyze", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	ctrl, _ := f.sessions.Get(id)
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Snapshot().Loading && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, "File too large. Max 10MB.", ctrl.Snapshot().Error)
}

func TestSessionHandler_ModeAndDrag(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)
	f.upload(t, id)
	f.analyze(t, id, sampleResult())
	base := "/api/v1/sessions/" + id

	w, env := f.doJSON(t, http.MethodPost, base+"/mode", `{"mode":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_MODE", env.Error.Code)

	w, env = f.doJSON(t, http.MethodPost, base+"/drag/begin", `{"index":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EDITOR_CONSTRAINT", env.Error.Code)

	w, _ = f.doJSON(t, http.MethodPost, base+"/layout", `{"rendered_width":400,"rendered_height":300}`)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = f.doJSON(t, http.MethodPost, base+"/mode", `{"mode":"adjusting"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.EditorModeAdjusting, viewModel(t, env).Mode)

	w, env = f.doJSON(t, http.MethodPost, base+"/drag/begin", `{"index":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, viewModel(t, env).ActiveCorner)

	w, env = f.doJSON(t, http.MethodPost, base+"/drag/move", `{"x":300,"y":250}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Point{X: 600, Y: 500}, viewModel(t, env).Corners[2])

	w, env = f.doJSON(t, http.MethodPost, base+"/drag/end", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -1, viewModel(t, env).ActiveCorner)

	w, env = f.doJSON(t, http.MethodPost, base+"/drag/move", `{"x":1,"y":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EDITOR_CONSTRAINT", env.Error.Code)

	w, env = f.doJSON(t, http.MethodPost, base+"/corners/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Point{X: 720, Y: 540}, viewModel(t, env).Corners[2])
}

func TestSessionHandler_SaveExample(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)
	base := "/api/v1/sessions/" + id

	w, env := f.doJSON(t, http.MethodPost, base+"/save-example", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_RESULT", env.Error.Code)

	f.upload(t, id)
	f.analyze(t, id, sampleResult())
	f.archive.On("SaveExample", mock.Anything, mock.AnythingOfType("*domain.AnalysisResult"), "front").
		Return(&domain.SavedExample{FolderPath: "cv_samples/front_20261019_101500", SavedFiles: []string{"ocr.json"}}, nil).Once()

	w, env = f.doJSON(t, http.MethodPost, base+"/save-example", `{"filename_prefix":"front"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var saved domain.SavedExample
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.Equal(t, "cv_samples/front_20261019_101500", saved.FolderPath)
	f.archive.AssertExpectations(t)
}

func TestSessionHandler_ResultJSON(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)

	w, _ := f.doJSON(t, http.MethodGet, "/api/v1/sessions/"+id+"/result.json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.upload(t, id)
	f.analyze(t, id, sampleResult())

	w, _ = f.doJSON(t, http.MethodGet, "/api/v1/sessions/"+id+"/result.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "intake_result.json")
	assert.Contains(t, w.Body.String(), "\n  \"quality\"")

	var got domain.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "TOTAL 9.99", got.OCR.Text)
}

func TestSessionHandler_Delete(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)

	w, _ := f.doJSON(t, http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := f.doJSON(t, http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestSessionHandler_EventsStream(t *testing.T) {
	f := newDesk(t)
	id := f.createSession(t)
	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sessions/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan service.ViewModel, 8)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var vm service.ViewModel
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &vm) == nil {
				events <- vm
			}
		}
	}()

	first := <-events
	assert.Equal(t, id, first.SessionID)
	assert.False(t, first.Closed)

	require.NoError(t, f.sessions.Delete(id))

	var last service.ViewModel
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case vm, ok := <-events:
			if !ok {
				done = true
				break
			}
			last = vm
		case <-timeout:
			t.Fatal("stream did not end after session close")
		}
	}
	assert.True(t, last.Closed)
}
