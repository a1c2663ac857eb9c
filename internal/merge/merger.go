// Package merge combines a partial analysis response with the previous
// full result.
package merge

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"

	"scandesk/internal/domain"
)

// Merge returns a fresh result equal to prev with each named field taken
// from partial. Neither input is modified and the output shares no memory
// with either. Naming a field that is absent from partial clears it in the
// output.
func Merge(prev *domain.AnalysisResult, partial *domain.AnalysisResult, fields ...domain.ResultField) (*domain.AnalysisResult, error) {
	if prev == nil {
		return nil, domain.ErrNilResult
	}
	if partial == nil {
		partial = &domain.AnalysisResult{}
	}

	var out domain.AnalysisResult
	if err := deepcopy.Copy(&out, prev); err != nil {
		return nil, fmt.Errorf("copying previous result: %w", err)
	}
	var src domain.AnalysisResult
	if err := deepcopy.Copy(&src, partial); err != nil {
		return nil, fmt.Errorf("copying partial result: %w", err)
	}

	for _, f := range fields {
		if err := take(&out, &src, f); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// OCRRerun merges an OCR-only response into prev. Only the ocr member is
// replaced.
func OCRRerun(prev, partial *domain.AnalysisResult) (*domain.AnalysisResult, error) {
	return Merge(prev, partial, domain.FieldOCR)
}

func take(dst, src *domain.AnalysisResult, f domain.ResultField) error {
	switch f {
	case domain.FieldQuality:
		dst.Quality = src.Quality
	case domain.FieldOCR:
		dst.OCR = src.OCR
	case domain.FieldPreview:
		dst.Preview = src.Preview
	case domain.FieldBoundary:
		dst.Boundary = src.Boundary
	case domain.FieldScanMeta:
		dst.ScanMeta = src.ScanMeta
	case domain.FieldOriginalPreview:
		dst.OriginalPreview = src.OriginalPreview
	case domain.FieldOCRVariants:
		dst.OCRVariants = src.OCRVariants
	case domain.FieldBestVariant:
		dst.BestVariant = src.BestVariant
	case domain.FieldDebugOverlays:
		dst.DebugOverlays = src.DebugOverlays
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownResultField, f)
	}
	return nil
}
