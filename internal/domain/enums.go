package domain

// OCRMode selects the quality of the OCR pipeline run by the service.
type OCRMode string

const (
	OCRModeBasic    OCRMode = "basic"
	OCRModeEnhanced OCRMode = "enhanced"
)

// RequestKind tags which user action produced an analysis request.
type RequestKind string

const (
	RequestAnalyze      RequestKind = "analyze"
	RequestApplyCorners RequestKind = "apply_corners"
	RequestRerunOCR     RequestKind = "rerun_ocr"
)

// Action is the controller action currently awaiting the network.
type Action string

const (
	ActionNone         Action = ""
	ActionAnalyze      Action = "analyze"
	ActionApplyCorners Action = "apply_corners"
	ActionRerunOCR     Action = "rerun_ocr"
)

// EditorMode controls whether corner handles are interactive.
type EditorMode string

const (
	EditorModeViewing   EditorMode = "viewing"
	EditorModeAdjusting EditorMode = "adjusting"
)

// ValidEditorMode reports whether m is a known editor mode.
func ValidEditorMode(m EditorMode) bool {
	return m == EditorModeViewing || m == EditorModeAdjusting
}

// JobStatus is the server-side lifecycle of an asynchronous analysis job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// IsTerminal reports whether polling should stop at this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// PollState is the client-side lifecycle of a JobPoller.
type PollState string

const (
	PollStateIdle       PollState = "idle"
	PollStateSubmitting PollState = "submitting"
	PollStatePolling    PollState = "polling"
	PollStateDone       PollState = "done"
	PollStateFailed     PollState = "failed"
	PollStateCancelled  PollState = "cancelled"
)

// IsTerminal reports whether the poller has stopped for good.
func (s PollState) IsTerminal() bool {
	return s == PollStateDone || s == PollStateFailed || s == PollStateCancelled
}

// ResultField names a top-level member of AnalysisResult. Values match the
// JSON keys used by the analysis service.
type ResultField string

const (
	FieldQuality         ResultField = "quality"
	FieldOCR             ResultField = "ocr"
	FieldPreview         ResultField = "preview"
	FieldBoundary        ResultField = "boundary"
	FieldScanMeta        ResultField = "scan_meta"
	FieldOriginalPreview ResultField = "original_preview"
	FieldOCRVariants     ResultField = "ocr_variants"
	FieldBestVariant     ResultField = "best_variant"
	FieldDebugOverlays   ResultField = "debug_overlays"
)

// AllResultFields lists every mergeable field in schema order.
var AllResultFields = []ResultField{
	FieldQuality,
	FieldOCR,
	FieldPreview,
	FieldBoundary,
	FieldScanMeta,
	FieldOriginalPreview,
	FieldOCRVariants,
	FieldBestVariant,
	FieldDebugOverlays,
}

// QualityBand buckets a quality score for display.
type QualityBand string

const (
	QualityGood QualityBand = "good"
	QualityFair QualityBand = "fair"
	QualityPoor QualityBand = "poor"
)

// ApprovalState is the review outcome recorded for a history entry.
type ApprovalState string

const (
	ApprovalAutoApproved ApprovalState = "auto_approved"
	ApprovalNeedsReview  ApprovalState = "needs_review"
)

// ExportFormat selects the history export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportContentTypes maps export formats to their MIME types.
var ExportContentTypes = map[ExportFormat]string{
	ExportCSV:  "text/csv; charset=utf-8",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// AllowedImageTypes lists the content types the analysis service accepts.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}
