// Package intakeapi is the HTTP client for the remote document analysis
// service.
package intakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"scandesk/internal/config"
	"scandesk/internal/domain"
)

const (
	pathDocument    = "/intake/document"
	pathJobs        = "/intake/jobs"
	pathHistory     = "/intake/history"
	pathSaveExample = "/cv/save-example"
	pathHealth      = "/health"

	// RequestIDHeader is sent with every call so service logs can be
	// correlated with desk logs.
	RequestIDHeader = "X-Request-ID"

	defaultHTTPTimeout = 120 * time.Second
)

// Client implements the analysis, job, history, sample and health ports
// against the service's REST API. Each call issues exactly one request.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg *config.ServiceConfig) *Client {
	return NewClientWithHTTP(cfg.BaseURL, &http.Client{Timeout: defaultHTTPTimeout})
}

// NewClientWithHTTP creates a client using a caller-supplied http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// Submit uploads img for synchronous analysis and returns the full result.
func (c *Client) Submit(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
	body, contentType, err := buildIntakeForm(img, opts)
	if err != nil {
		return nil, fmt.Errorf("building intake form: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, pathDocument, contentType, body, classifyUpload)
	if err != nil {
		return nil, err
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling analysis result: %w", err)
	}
	return &result, nil
}

// RerunOCR re-submits img for an OCR-only pass in the given mode.
func (c *Client) RerunOCR(ctx context.Context, img domain.ImageFile, mode domain.OCRMode) (*domain.AnalysisResult, error) {
	return c.Submit(ctx, img, domain.RerunOCRRequest(mode))
}

// CreateJob uploads img and enqueues an asynchronous analysis job.
func (c *Client) CreateJob(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (*domain.JobTicket, error) {
	body, contentType, err := buildIntakeForm(img, opts)
	if err != nil {
		return nil, fmt.Errorf("building intake form: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, pathJobs, contentType, body, classifyUpload)
	if err != nil {
		return nil, err
	}

	var ticket domain.JobTicket
	if err := json.Unmarshal(respBody, &ticket); err != nil {
		return nil, fmt.Errorf("unmarshaling job ticket: %w", err)
	}
	if ticket.JobID == "" {
		return nil, &domain.ServiceError{StatusCode: http.StatusOK, Message: "job created without an id"}
	}
	return &ticket, nil
}

// GetJob reads the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	respBody, err := c.do(ctx, http.MethodGet, pathJobs+"/"+url.PathEscape(jobID), "", nil, classifyJobRead)
	if err != nil {
		return nil, err
	}

	var job domain.Job
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job: %w", err)
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

// ListHistory returns up to limit recent intake jobs, newest first.
func (c *Client) ListHistory(ctx context.Context, limit int) ([]domain.HistoryItem, error) {
	path := pathHistory
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	respBody, err := c.do(ctx, http.MethodGet, path, "", nil, classifyService)
	if err != nil {
		return nil, err
	}

	items := []domain.HistoryItem{}
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling history: %w", err)
	}
	return items, nil
}

type saveExampleRequest struct {
	IntakeResult   *domain.AnalysisResult `json:"intake_result"`
	FilenamePrefix *string                `json:"filename_prefix,omitempty"`
}

// SaveExample asks the service to persist result as a labelled sample.
func (c *Client) SaveExample(ctx context.Context, result *domain.AnalysisResult, filenamePrefix string) (*domain.SavedExample, error) {
	if result == nil {
		return nil, domain.ErrNoResult
	}
	reqBody := saveExampleRequest{IntakeResult: result}
	if filenamePrefix != "" {
		reqBody.FilenamePrefix = &filenamePrefix
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, pathSaveExample, "application/json", bodyBytes, classifyService)
	if err != nil {
		return nil, err
	}

	var saved domain.SavedExample
	if err := json.Unmarshal(respBody, &saved); err != nil {
		return nil, fmt.Errorf("unmarshaling saved example: %w", err)
	}
	return &saved, nil
}

// Health returns nil when the service answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, pathHealth, "", nil, classifyService)
	return err
}

// classifier turns a non-2xx response into the error surfaced to callers.
type classifier func(status int, body []byte) error

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, classify classifier) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.New().String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling analysis service %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func classifyUpload(status int, body []byte) error {
	if status >= 400 && status < 500 {
		return &domain.UploadError{StatusCode: status, Message: errorDetail(status, body)}
	}
	return classifyService(status, body)
}

func classifyJobRead(status int, body []byte) error {
	if status == http.StatusNotFound {
		return domain.ErrJobNotFound
	}
	return classifyService(status, body)
}

func classifyService(status int, body []byte) error {
	return &domain.ServiceError{StatusCode: status, Message: errorDetail(status, body)}
}

// errorDetail extracts the service's `detail` string. Anything else falls
// back to the raw body, then to the status text.
func errorDetail(status int, body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
			return detail
		}
	}
	if raw := strings.TrimSpace(string(body)); raw != "" {
		return raw
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func buildIntakeForm(img domain.ImageFile, opts domain.AnalyzeOptions) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := img.Name
	if name == "" {
		name = "upload"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}

	engine := opts.Engine
	if engine == "" {
		engine = domain.DefaultOCREngine
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.OCRModeBasic
	}
	fields := []struct{ key, value string }{
		{"ocr_engine", engine},
		{"ocr_mode", string(mode)},
		{"return_preview", strconv.FormatBool(opts.ReturnPreview)},
		{"run_ablation", strconv.FormatBool(opts.RunAblation)},
		{"include_debug_overlays", strconv.FormatBool(opts.IncludeDebugOverlays)},
	}
	if opts.CornersOverride != nil {
		corners, err := json.Marshal(opts.CornersOverride.Points())
		if err != nil {
			return nil, "", fmt.Errorf("marshaling corners: %w", err)
		}
		fields = append(fields, struct{ key, value string }{"corners_override", string(corners)})
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.key, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
