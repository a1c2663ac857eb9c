package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scandesk/internal/domain"
	"scandesk/internal/historyexport"
	"scandesk/internal/service"
)

// HistoryHandler handles intake history and job lookup endpoints.
type HistoryHandler struct {
	historyService service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// List handles GET /api/v1/history
func (h *HistoryHandler) List(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	items, err := h.historyService.List(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondList(c, items, ListMeta{Total: len(items), Limit: limit})
}

// Export handles GET /api/v1/history/export?format=csv|xlsx
func (h *HistoryHandler) Export(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	format := domain.ExportFormat(c.DefaultQuery("format", string(domain.ExportCSV)))

	data, err := h.historyService.Export(c.Request.Context(), format, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := historyexport.BuildFilename(c.Query("name"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, domain.ExportContentTypes[format], data)
}

// GetJob handles GET /api/v1/jobs/:id
func (h *HistoryHandler) GetJob(c *gin.Context) {
	job, err := h.historyService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// parseLimit reads the optional limit query parameter. Zero means the
// service default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
