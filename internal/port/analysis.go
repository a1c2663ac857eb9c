package port

import (
	"context"

	"scandesk/internal/domain"
)

// AnalysisGateway submits a document image to the remote analysis service
// and waits for the full response.
type AnalysisGateway interface {
	Submit(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error)
	RerunOCR(ctx context.Context, img domain.ImageFile, mode domain.OCRMode) (*domain.AnalysisResult, error)
}

// JobGateway creates and reads server-tracked analysis jobs.
type JobGateway interface {
	CreateJob(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (*domain.JobTicket, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// HistoryGateway lists recent intake jobs.
type HistoryGateway interface {
	ListHistory(ctx context.Context, limit int) ([]domain.HistoryItem, error)
}

// SampleGateway stores an analysis result as a labelled example on the
// service side.
type SampleGateway interface {
	SaveExample(ctx context.Context, result *domain.AnalysisResult, filenamePrefix string) (*domain.SavedExample, error)
}

// HealthChecker probes the remote service.
type HealthChecker interface {
	Health(ctx context.Context) error
}
