package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scandesk/internal/config"
	"scandesk/internal/domain"
	"scandesk/internal/historyexport"
	"scandesk/internal/intakeapi"
	"scandesk/internal/merge"
	"scandesk/internal/service"
	"scandesk/internal/storage/noop"
	s3storage "scandesk/internal/storage/s3"
)

type cli struct {
	analyzer service.Analyzer
	history  service.HistoryService
	archive  service.ArchiveService
	out      io.Writer
}

func (a *cli) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	corners := fs.String("corners", "", "manual corners in native pixels: x1,y1,x2,y2,x3,y3,x4,y4 (TL TR BR BL)")
	out := fs.String("out", "", "write the full result JSON to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	img, err := readImage(fs)
	if err != nil {
		return err
	}

	opts := domain.AnalyzeRequest()
	if *corners != "" {
		q, err := parseCorners(*corners)
		if err != nil {
			return err
		}
		opts = domain.ApplyCornersRequest(q)
	}

	result, err := a.run(ctx, img, opts)
	if err != nil {
		return err
	}
	return a.report(result, *out)
}

func (a *cli) rerun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rerun", flag.ContinueOnError)
	mode := fs.String("mode", string(domain.OCRModeEnhanced), "OCR mode for the re-run (basic or enhanced)")
	out := fs.String("out", "", "write the merged result JSON to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	img, err := readImage(fs)
	if err != nil {
		return err
	}
	ocrMode := domain.OCRMode(*mode)
	if ocrMode != domain.OCRModeBasic && ocrMode != domain.OCRModeEnhanced {
		return fmt.Errorf("invalid mode %q", *mode)
	}

	prev, err := a.run(ctx, img, domain.AnalyzeRequest())
	if err != nil {
		return err
	}
	partial, err := a.run(ctx, img, domain.RerunOCRRequest(ocrMode))
	if err != nil {
		return err
	}
	merged, err := merge.OCRRerun(prev, partial)
	if err != nil {
		return fmt.Errorf("merging ocr re-run: %w", err)
	}
	return a.report(merged, *out)
}

func (a *cli) exportHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "number of recent items (0 uses the configured default)")
	format := fs.String("format", string(domain.ExportCSV), "export format: csv or xlsx")
	out := fs.String("out", "", "output file (defaults to a dated name in the current directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}

	exportFormat := domain.ExportFormat(*format)
	data, err := a.history.Export(ctx, exportFormat, *limit)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = historyexport.BuildFilename("", exportFormat)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func (a *cli) job(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: intake job <job-id>")
	}
	job, err := a.history.GetJob(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "job %s: %s\n", job.ID, job.Status)
	if job.Status == domain.JobStatusFailed {
		fmt.Fprintf(a.out, "error: %s\n", job.ErrorMessage())
	}
	return nil
}

func (a *cli) saveExample(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save-example", flag.ContinueOnError)
	prefix := fs.String("prefix", "", "folder name prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: intake save-example [-prefix name] <result.json>")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading result: %w", err)
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	saved, err := a.archive.SaveExample(ctx, &result, *prefix)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved to %s (%d files)\n", saved.FolderPath, len(saved.SavedFiles))
	if saved.ArchiveURL != "" {
		fmt.Fprintf(a.out, "archive: %s\n", saved.ArchiveURL)
	}
	return nil
}

func (a *cli) run(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
	result, err := a.analyzer.Analyze(ctx, service.AnalyzeInput{
		Image:   img,
		Options: opts,
		Progress: func(jobID string, status domain.JobStatus) {
			log.Printf("intake: job %s %s", jobID, status)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %s", opts.Kind, domain.UserMessage(err))
	}
	return result, nil
}

// report prints the summary and optionally writes the full result.
func (a *cli) report(result *domain.AnalysisResult, out string) error {
	q := result.Quality
	fmt.Fprintf(a.out, "quality: %.0f (%s)\n", q.Score, q.Band())
	for _, issue := range q.Issues {
		fmt.Fprintf(a.out, "  issue: %s\n", issue)
	}
	if result.Boundary != nil {
		fmt.Fprintf(a.out, "boundary: found=%t confidence=%.2f\n", result.Boundary.Found, result.Boundary.Confidence)
	}
	if v, ok := result.BestOCRVariant(); ok {
		fmt.Fprintf(a.out, "best variant: %s\n", domain.VariantLabel(v.Name))
	}
	fmt.Fprintf(a.out, "ocr (%s, confidence %.2f):\n%s\n", result.OCR.Engine, result.OCR.Confidence, result.OCR.Text)

	if out == "" {
		return nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(a.out, "wrote %s\n", out)
	return nil
}

func readImage(fs *flag.FlagSet) (domain.ImageFile, error) {
	if fs.NArg() != 1 {
		return domain.ImageFile{}, fmt.Errorf("usage: intake %s [flags] <image>", fs.Name())
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageFile{}, fmt.Errorf("reading image: %w", err)
	}
	return domain.NewImageFile(filepath.Base(path), "", data), nil
}

// parseCorners reads eight comma-separated numbers as TL, TR, BR, BL.
func parseCorners(s string) (domain.Quadrilateral, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 8 {
		return domain.Quadrilateral{}, fmt.Errorf("corners: want 8 numbers, got %d", len(parts))
	}
	pts := make([]domain.Point, 4)
	for i := range pts {
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[2*i]), 64)
		if err != nil {
			return domain.Quadrilateral{}, fmt.Errorf("corners: %w", err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[2*i+1]), 64)
		if err != nil {
			return domain.Quadrilateral{}, fmt.Errorf("corners: %w", err)
		}
		pts[i] = domain.Point{X: x, Y: y}
	}
	q, _ := domain.QuadFromPoints(pts)
	return q, nil
}

func newArchiveService(cfg *config.Config, client *intakeapi.Client) (service.ArchiveService, error) {
	storage := noop.NewNoopStorage()
	if cfg.Archive.Provider == config.ArchiveS3 {
		s3Client, err := s3storage.NewS3Client(&cfg.Archive)
		if err != nil {
			return nil, err
		}
		storage = s3Client
	}
	return service.NewArchiveService(client, storage, service.ArchiveConfig{
		Bucket:        cfg.Archive.Bucket,
		Prefix:        cfg.Archive.Prefix,
		PresignExpiry: cfg.Archive.PresignExpiry,
	}), nil
}
