package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scandesk/internal/domain"
	"scandesk/internal/geometry"
	"scandesk/internal/service"
)

// MaxUploadSize caps the image accepted by POST /sessions/:id/file.
const MaxUploadSize = 25 << 20

// SessionHandler exposes intake controller sessions over HTTP.
type SessionHandler struct {
	sessions       *service.SessionRegistry
	archiveService service.ArchiveService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionRegistry, archiveService service.ArchiveService) *SessionHandler {
	return &SessionHandler{sessions: sessions, archiveService: archiveService}
}

// LayoutRequest reports the viewer's rendered and natural image size.
type LayoutRequest struct {
	RenderedWidth  float64 `json:"rendered_width"`
	RenderedHeight float64 `json:"rendered_height"`
	NaturalWidth   float64 `json:"natural_width"`
	NaturalHeight  float64 `json:"natural_height"`
}

// ModeRequest switches the corner editor mode.
type ModeRequest struct {
	Mode domain.EditorMode `json:"mode" binding:"required"`
}

// DragBeginRequest selects the corner to drag.
type DragBeginRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SaveExampleRequest carries the optional folder prefix.
type SaveExampleRequest struct {
	FilenamePrefix string `json:"filename_prefix"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	ctrl := h.sessions.Create()
	RespondCreated(c, ctrl.Snapshot())
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	ids := h.sessions.IDs()
	RespondList(c, ids, ListMeta{Total: len(ids)})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	RespondOK(c, ctrl.Snapshot())
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "session closed"})
}

// Events handles GET /api/v1/sessions/:id/events. It streams the latest
// view model as server-sent events until the client leaves or the session
// closes.
func (h *SessionHandler) Events(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	// Streams outlive the server write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Printf("sessionHandler: clearing write deadline for %s: %v", ctrl.ID(), err)
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case vm, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("view", vm)
			return !vm.Closed
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// SelectFile handles POST /api/v1/sessions/:id/file
func (h *SessionHandler) SelectFile(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", fmt.Sprintf("file exceeds %d MB", MaxUploadSize>>20))
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", fmt.Sprintf("file exceeds %d MB", MaxUploadSize>>20))
		return
	}

	img := domain.NewImageFile(header.Filename, header.Header.Get("Content-Type"), data)
	if err := ctrl.SelectFile(img); err != nil {
		HandleError(c, err)
		return
	}
	log.Printf("sessionHandler: session %s selected %s (%s, %d bytes)", ctrl.ID(), img.Name, img.ContentType, len(img.Data))
	RespondOK(c, ctrl.Snapshot())
}

// Layout handles POST /api/v1/sessions/:id/layout
func (h *SessionHandler) Layout(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req LayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	rendered := geometry.Size{Width: req.RenderedWidth, Height: req.RenderedHeight}
	natural := geometry.Size{Width: req.NaturalWidth, Height: req.NaturalHeight}
	if err := ctrl.UpdateLayout(rendered, natural); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ctrl.Snapshot())
}

// Analyze handles POST /api/v1/sessions/:id/analyze
func (h *SessionHandler) Analyze(c *gin.Context) {
	h.start(c, domain.ActionAnalyze)
}

// ApplyCorners handles POST /api/v1/sessions/:id/corners/apply
func (h *SessionHandler) ApplyCorners(c *gin.Context) {
	h.start(c, domain.ActionApplyCorners)
}

// RerunOCR handles POST /api/v1/sessions/:id/ocr/rerun
func (h *SessionHandler) RerunOCR(c *gin.Context) {
	h.start(c, domain.ActionRerunOCR)
}

// SetMode handles POST /api/v1/sessions/:id/mode
func (h *SessionHandler) SetMode(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !domain.ValidEditorMode(req.Mode) {
		RespondError(c, http.StatusBadRequest, "INVALID_MODE", "mode must be viewing or adjusting")
		return
	}

	var err error
	if req.Mode == domain.EditorModeAdjusting {
		err = ctrl.EnterAdjustMode()
	} else {
		err = ctrl.ExitAdjustMode()
	}
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ctrl.Snapshot())
}

// ResetCorners handles POST /api/v1/sessions/:id/corners/reset
func (h *SessionHandler) ResetCorners(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if err := ctrl.ResetCorners(); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ctrl.Snapshot())
}

// DragBegin handles POST /api/v1/sessions/:id/drag/begin
func (h *SessionHandler) DragBegin(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req DragBeginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if _, err := ctrl.BeginDrag(*req.Index); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ctrl.Snapshot())
}

// DragMove handles POST /api/v1/sessions/:id/drag/move. The point is in
// display space.
func (h *SessionHandler) DragMove(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var p domain.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	drag := ctrl.ActiveDrag()
	if drag == nil {
		HandleError(c, domain.ErrDragEnded)
		return
	}
	if err := drag.Move(p); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ctrl.Snapshot())
}

// DragEnd handles POST /api/v1/sessions/:id/drag/end
func (h *SessionHandler) DragEnd(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if drag := ctrl.ActiveDrag(); drag != nil {
		drag.End()
	}
	RespondOK(c, ctrl.Snapshot())
}

// SaveExample handles POST /api/v1/sessions/:id/save-example
func (h *SessionHandler) SaveExample(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req SaveExampleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	result := ctrl.Snapshot().Result
	if result == nil {
		HandleError(c, domain.ErrNoResult)
		return
	}
	saved, err := h.archiveService.SaveExample(c.Request.Context(), result, req.FilenamePrefix)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, saved)
}

// ResultJSON handles GET /api/v1/sessions/:id/result.json
func (h *SessionHandler) ResultJSON(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	result := ctrl.Snapshot().Result
	if result == nil {
		HandleError(c, domain.ErrNoResult)
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		HandleError(c, fmt.Errorf("encoding result: %w", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="intake_result.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *SessionHandler) start(c *gin.Context, action domain.Action) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if err := ctrl.Start(action); err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, ctrl.Snapshot())
}

func (h *SessionHandler) session(c *gin.Context) (*service.IntakeController, bool) {
	ctrl, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return ctrl, true
}
