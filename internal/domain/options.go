package domain

// Submission defaults sent with every analysis request.
const (
	DefaultOCREngine            = "tesseract"
	DefaultReturnPreview        = true
	DefaultRunAblation          = true
	DefaultIncludeDebugOverlays = false
)

// AnalyzeOptions is the single tagged request value for every analysis
// variant (plain analyze, corner override, enhanced OCR re-run).
type AnalyzeOptions struct {
	Kind                 RequestKind
	Mode                 OCRMode
	CornersOverride      *Quadrilateral
	Engine               string
	ReturnPreview        bool
	RunAblation          bool
	IncludeDebugOverlays bool
}

func baseOptions(kind RequestKind, mode OCRMode) AnalyzeOptions {
	return AnalyzeOptions{
		Kind:                 kind,
		Mode:                 mode,
		Engine:               DefaultOCREngine,
		ReturnPreview:        DefaultReturnPreview,
		RunAblation:          DefaultRunAblation,
		IncludeDebugOverlays: DefaultIncludeDebugOverlays,
	}
}

// AnalyzeRequest is a basic-mode analysis with server-side corner detection.
func AnalyzeRequest() AnalyzeOptions {
	return baseOptions(RequestAnalyze, OCRModeBasic)
}

// ApplyCornersRequest re-submits with user-supplied corners.
func ApplyCornersRequest(q Quadrilateral) AnalyzeOptions {
	opts := baseOptions(RequestApplyCorners, OCRModeBasic)
	opts.CornersOverride = &q
	return opts
}

// RerunOCRRequest asks for an OCR-only re-run in the given mode.
func RerunOCRRequest(mode OCRMode) AnalyzeOptions {
	return baseOptions(RequestRerunOCR, mode)
}
