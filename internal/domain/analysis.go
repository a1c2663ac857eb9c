package domain

// AnalysisResult is the aggregate returned by the analysis service for one
// document image.
type AnalysisResult struct {
	Quality         QualityResult      `json:"quality"`
	OCR             OCRResult          `json:"ocr"`
	Preview         *ScanPreview       `json:"preview,omitempty"`
	Boundary        *BoundaryDetection `json:"boundary,omitempty"`
	ScanMeta        *ScanMeta          `json:"scan_meta,omitempty"`
	OriginalPreview *OriginalPreview   `json:"original_preview,omitempty"`
	OCRVariants     []OCRVariant       `json:"ocr_variants,omitempty"`
	BestVariant     *string            `json:"best_variant,omitempty"`
	DebugOverlays   *DebugOverlays     `json:"debug_overlays,omitempty"`
}

// QualityResult is the capture-quality assessment.
type QualityResult struct {
	Score          float64  `json:"score"`
	Issues         []string `json:"issues"`
	Tips           []string `json:"tips"`
	BlurScore      float64  `json:"blur_score,omitempty"`
	BrightnessMean float64  `json:"brightness_mean,omitempty"`
	GlareRatio     float64  `json:"glare_ratio,omitempty"`
	DocConfidence  float64  `json:"doc_confidence"`
}

// Band buckets the score the way the viewer colours it.
func (q QualityResult) Band() QualityBand {
	switch {
	case q.Score > 80:
		return QualityGood
	case q.Score > 50:
		return QualityFair
	default:
		return QualityPoor
	}
}

// OCRResult is the primary OCR output with engine metadata.
type OCRResult struct {
	Text              string         `json:"text"`
	Confidence        float64        `json:"confidence"`
	Engine            string         `json:"engine"`
	TesseractFound    bool           `json:"tesseract_found"`
	TesseractPathUsed *string        `json:"tesseract_path_used,omitempty"`
	OCRError          *string        `json:"ocr_error,omitempty"`
	DebugNotes        []string       `json:"debug_notes,omitempty"`
	Mode              OCRMode        `json:"mode,omitempty"`
	TimingMS          int            `json:"timing_ms,omitempty"`
	Debug             map[string]any `json:"debug,omitempty"`
}

// ScanPreview is the perspective-corrected scan.
type ScanPreview struct {
	ImgB64    string `json:"img_b64"`
	IsScanned bool   `json:"is_scanned"`
}

// OriginalPreview is the uploaded image with its native dimensions.
type OriginalPreview struct {
	ImgB64 string `json:"img_b64"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// BoundaryDetection is the service's document-boundary guess. Found=false
// means the client must fall back to synthetic corners.
type BoundaryDetection struct {
	Found      bool     `json:"found"`
	Corners    []Point  `json:"corners"`
	Confidence float64  `json:"confidence"`
	DebugNotes []string `json:"debug_notes"`
}

// Quad returns the detected corners when they are usable.
func (b *BoundaryDetection) Quad() (Quadrilateral, bool) {
	if b == nil || !b.Found {
		return Quadrilateral{}, false
	}
	return QuadFromPoints(b.Corners)
}

// ScanMeta describes the warp the service performed.
type ScanMeta struct {
	UsedAutoCorners bool    `json:"used_auto_corners"`
	CornersUsed     []Point `json:"corners_used"`
	ScanWarpSuccess bool    `json:"scan_warp_success"`
	ScanError       *string `json:"scan_error"`
}

// OCRVariant is one alternative OCR pipeline run for comparison.
type OCRVariant struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	TextPreview string  `json:"text_preview"`
	TextFull    string  `json:"text_full"`
	TimingMS    int     `json:"timing_ms"`
	CharCount   int     `json:"char_count"`
}

// DebugOverlays are optional visual overlays, base64 encoded.
type DebugOverlays struct {
	GlareOverlay *string `json:"glare_overlay,omitempty"`
	EdgeOverlay  *string `json:"edge_overlay,omitempty"`
}

var variantLabels = map[string]string{
	"raw":           "Raw (Original)",
	"scan":          "Scanned",
	"scan_enhanced": "Scan + Enhanced",
}

// VariantLabel returns the display label for an OCR variant name.
func VariantLabel(name string) string {
	if label, ok := variantLabels[name]; ok {
		return label
	}
	return name
}

// BestOCRVariant returns the variant named by BestVariant, if present.
func (r *AnalysisResult) BestOCRVariant() (OCRVariant, bool) {
	if r == nil || r.BestVariant == nil {
		return OCRVariant{}, false
	}
	for _, v := range r.OCRVariants {
		if v.Name == *r.BestVariant {
			return v, true
		}
	}
	return OCRVariant{}, false
}

// NativeSize returns the original image dimensions when the service
// reported them.
func (r *AnalysisResult) NativeSize() (width, height int, ok bool) {
	if r == nil || r.OriginalPreview == nil {
		return 0, 0, false
	}
	if r.OriginalPreview.Width <= 0 || r.OriginalPreview.Height <= 0 {
		return 0, 0, false
	}
	return r.OriginalPreview.Width, r.OriginalPreview.Height, true
}
