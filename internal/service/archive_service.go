package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"slices"
	"strings"
	"time"

	"scandesk/internal/domain"
	"scandesk/internal/historyexport"
	"scandesk/internal/port"
)

// placeholder written in place of image payloads in full_response.json.
const savedAsImage = "<saved as image>"

// ArchiveConfig holds settings for the example snapshot archive.
type ArchiveConfig struct {
	Bucket        string
	Prefix        string
	PresignExpiry int64
}

// ArchiveService saves analysis results as labelled examples.
type ArchiveService interface {
	SaveExample(ctx context.Context, result *domain.AnalysisResult, filenamePrefix string) (*domain.SavedExample, error)
}

type archiveService struct {
	samples port.SampleGateway
	storage port.ObjectStorage
	cfg     ArchiveConfig
	now     func() time.Time
}

// NewArchiveService creates a new ArchiveService implementation. The remote
// save always runs; the snapshot is then mirrored into storage.
func NewArchiveService(samples port.SampleGateway, storage port.ObjectStorage, cfg ArchiveConfig) ArchiveService {
	return &archiveService{samples: samples, storage: storage, cfg: cfg, now: time.Now}
}

// NewArchiveServiceWithClock is NewArchiveService with a fixed clock, for
// deterministic folder names.
func NewArchiveServiceWithClock(samples port.SampleGateway, storage port.ObjectStorage, cfg ArchiveConfig, now func() time.Time) ArchiveService {
	return &archiveService{samples: samples, storage: storage, cfg: cfg, now: now}
}

func (s *archiveService) SaveExample(ctx context.Context, result *domain.AnalysisResult, filenamePrefix string) (*domain.SavedExample, error) {
	if result == nil {
		return nil, domain.ErrNoResult
	}
	prefix := historyexport.SanitizeFilename(filenamePrefix)

	saved, err := s.samples.SaveExample(ctx, result, prefix)
	if err != nil {
		return nil, fmt.Errorf("saving example: %w", err)
	}

	files, err := snapshotFiles(result)
	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}

	folder := path.Join(s.cfg.Prefix, folderName(prefix, s.now()))
	for _, f := range files {
		key := path.Join(folder, f.name)
		_, err := s.storage.Upload(ctx, port.ArchiveObject{
			Bucket:      s.cfg.Bucket,
			Key:         key,
			Body:        bytes.NewReader(f.data),
			ContentType: f.contentType,
			Size:        int64(len(f.data)),
			Metadata: map[string]string{
				"remote-folder": saved.FolderPath,
				"source":        "scandesk",
			},
		})
		if err != nil {
			// Remote save already succeeded; keep going with a partial snapshot.
			log.Printf("archiveService: upload %s failed: %v", key, err)
			continue
		}
		saved.ArchiveKeys = append(saved.ArchiveKeys, key)
	}

	fullKey := path.Join(folder, fullResponseFile)
	if slices.Contains(saved.ArchiveKeys, fullKey) {
		url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, fullKey, s.cfg.PresignExpiry)
		if err != nil {
			log.Printf("archiveService: presign %s failed: %v", fullKey, err)
		} else {
			saved.ArchiveURL = url
		}
	}

	log.Printf("archiveService: saved example %s (%d remote files, %d archived)", saved.FolderPath, len(saved.SavedFiles), len(saved.ArchiveKeys))
	return saved, nil
}

const fullResponseFile = "full_response.json"

type snapshotFile struct {
	name        string
	contentType string
	data        []byte
}

// snapshotFiles mirrors the service's sample folder layout.
func snapshotFiles(r *domain.AnalysisResult) ([]snapshotFile, error) {
	var files []snapshotFile

	addImage := func(name string, b64 *string) {
		if b64 == nil || *b64 == "" {
			return
		}
		data, err := decodeImage(*b64)
		if err != nil {
			log.Printf("archiveService: skipping %s: %v", name, err)
			return
		}
		files = append(files, snapshotFile{name: name, contentType: "image/png", data: data})
	}
	addJSON := func(name string, v any) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", name, err)
		}
		files = append(files, snapshotFile{name: name, contentType: "application/json", data: data})
		return nil
	}

	if r.OriginalPreview != nil {
		addImage("input.png", &r.OriginalPreview.ImgB64)
	}
	if r.Preview != nil {
		addImage("scan.png", &r.Preview.ImgB64)
	}
	if r.DebugOverlays != nil {
		addImage("glare.png", r.DebugOverlays.GlareOverlay)
		addImage("edges.png", r.DebugOverlays.EdgeOverlay)
	}

	if r.Boundary != nil {
		if err := addJSON("boundary.json", r.Boundary); err != nil {
			return nil, err
		}
	}

	ocrSlice := map[string]any{"primary_ocr": r.OCR}
	if len(r.OCRVariants) > 0 {
		ocrSlice["ocr_variants"] = r.OCRVariants
	}
	if r.BestVariant != nil && *r.BestVariant != "" {
		ocrSlice["best_variant"] = *r.BestVariant
	}
	if err := addJSON("ocr.json", ocrSlice); err != nil {
		return nil, err
	}

	full, err := strippedResponse(r)
	if err != nil {
		return nil, err
	}
	if err := addJSON(fullResponseFile, full); err != nil {
		return nil, err
	}
	return files, nil
}

// strippedResponse returns the result as generic JSON with image payloads
// replaced by a placeholder.
func strippedResponse(r *domain.AnalysisResult) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	var full map[string]json.RawMessage
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, fmt.Errorf("unmarshaling result: %w", err)
	}
	placeholder, _ := json.Marshal(savedAsImage)
	for _, key := range []domain.ResultField{domain.FieldOriginalPreview, domain.FieldPreview, domain.FieldDebugOverlays} {
		if _, ok := full[string(key)]; ok {
			full[string(key)] = placeholder
		}
	}
	return full, nil
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(b64 string) ([]byte, error) {
	if i := strings.Index(b64, ","); i >= 0 {
		b64 = b64[i+1:]
	}
	return base64.StdEncoding.DecodeString(b64)
}

func folderName(prefix string, now time.Time) string {
	ts := now.Format("20060102_150405")
	if prefix == "" {
		return ts
	}
	return prefix + "_" + ts
}
