package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"scandesk/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *ListMeta   `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListMeta holds list metadata.
type ListMeta struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 response for work continuing in the background.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondList sends a 200 success response with list metadata.
func RespondList(c *gin.Context, data interface{}, meta ListMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var (
		uploadErr  *domain.UploadError
		timeoutErr *domain.TimeoutError
		jobErr     *domain.JobFailure
		svcErr     *domain.ServiceError
	)

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found"
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "JOB_NOT_FOUND", "job not found"
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone, "SESSION_CLOSED", "session is closed"
	case errors.Is(err, domain.ErrNoFile):
		return http.StatusBadRequest, "NO_FILE", "select a file first"
	case errors.Is(err, domain.ErrNoResult):
		return http.StatusBadRequest, "NO_RESULT", "analyze the file first"
	case errors.Is(err, domain.ErrActionPending):
		return http.StatusConflict, "ACTION_PENDING", "another action is already in progress"
	case errors.Is(err, domain.ErrStaleResponse):
		return http.StatusConflict, "STALE_RESPONSE", "the file changed while the request was running"
	case errors.Is(err, domain.ErrPollerBusy):
		return http.StatusConflict, "POLLER_BUSY", "a job is already being polled"
	case domain.IsEditorConstraint(err):
		return http.StatusConflict, "EDITOR_CONSTRAINT", err.Error()
	case errors.Is(err, domain.ErrUnsupportedExportFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "unsupported export format; allowed: csv, xlsx"
	case errors.As(err, &uploadErr):
		return http.StatusUnprocessableEntity, "UPLOAD_REJECTED", uploadErr.Message
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "TIMEOUT", domain.UserMessage(err)
	case errors.As(err, &jobErr):
		return http.StatusBadGateway, "JOB_FAILED", jobErr.Reason
	case errors.As(err, &svcErr):
		return http.StatusBadGateway, "SERVICE_ERROR", svcErr.Message
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] %s: %v", requestID, code, err)
	}
	RespondError(c, status, code, msg)
}
