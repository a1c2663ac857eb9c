package router

import (
	"github.com/gin-gonic/gin"

	"scandesk/internal/handler"
	"scandesk/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	allowedOrigins []string,
	sessionH *handler.SessionHandler,
	historyH *handler.HistoryHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger("/healthz", "/readyz", "/api/v1/sessions/:id/events"))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Intake sessions
	sessions := v1.Group("/sessions")
	sessions.POST("", sessionH.Create)
	sessions.GET("", sessionH.List)
	sessions.GET("/:id", sessionH.Get)
	sessions.DELETE("/:id", sessionH.Delete)
	sessions.GET("/:id/events", sessionH.Events)
	sessions.POST("/:id/file", sessionH.SelectFile)
	sessions.POST("/:id/layout", sessionH.Layout)
	sessions.POST("/:id/analyze", sessionH.Analyze)
	sessions.POST("/:id/corners/apply", sessionH.ApplyCorners)
	sessions.POST("/:id/corners/reset", sessionH.ResetCorners)
	sessions.POST("/:id/ocr/rerun", sessionH.RerunOCR)
	sessions.POST("/:id/mode", sessionH.SetMode)
	sessions.POST("/:id/drag/begin", sessionH.DragBegin)
	sessions.POST("/:id/drag/move", sessionH.DragMove)
	sessions.POST("/:id/drag/end", sessionH.DragEnd)
	sessions.POST("/:id/save-example", sessionH.SaveExample)
	sessions.GET("/:id/result.json", sessionH.ResultJSON)

	// History and jobs
	v1.GET("/history", historyH.List)
	v1.GET("/history/export", historyH.Export)
	v1.GET("/jobs/:id", historyH.GetJob)

	return r
}
