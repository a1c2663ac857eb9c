package service

import (
	"bytes"
	"context"
	"fmt"

	"scandesk/internal/domain"
	"scandesk/internal/historyexport"
	"scandesk/internal/port"
)

// HistoryService reads past intake jobs and exports them.
type HistoryService interface {
	List(ctx context.Context, limit int) ([]domain.HistoryItem, error)
	Export(ctx context.Context, format domain.ExportFormat, limit int) ([]byte, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

type historyService struct {
	history      port.HistoryGateway
	jobs         port.JobGateway
	defaultLimit int
}

// NewHistoryService creates a new HistoryService implementation.
func NewHistoryService(history port.HistoryGateway, jobs port.JobGateway, defaultLimit int) HistoryService {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &historyService{history: history, jobs: jobs, defaultLimit: defaultLimit}
}

func (s *historyService) List(ctx context.Context, limit int) ([]domain.HistoryItem, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	items, err := s.history.ListHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return items, nil
}

func (s *historyService) Export(ctx context.Context, format domain.ExportFormat, limit int) ([]byte, error) {
	if _, ok := domain.ExportContentTypes[format]; !ok {
		return nil, domain.ErrUnsupportedExportFormat
	}

	items, err := s.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	if format == domain.ExportXLSX {
		return historyexport.WriteXLSX(items)
	}

	var buf bytes.Buffer
	buf.Write(historyexport.BOM)
	w := historyexport.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	if err := w.WriteItems(items); err != nil {
		return nil, fmt.Errorf("writing csv rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *historyService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}
