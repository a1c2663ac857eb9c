package service

import (
	"context"
	"time"

	"scandesk/internal/config"
	"scandesk/internal/domain"
	"scandesk/internal/port"
)

// AnalyzeInput carries one analysis request.
type AnalyzeInput struct {
	Image   domain.ImageFile
	Options domain.AnalyzeOptions
	// Progress, when set, receives the job id and status as they are
	// observed. Synchronous analyzers never call it.
	Progress func(jobID string, status domain.JobStatus)
}

// Analyzer runs one analysis request to completion. Implementations differ
// in transport only; both honour the same terminal contract.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalyzeInput) (*domain.AnalysisResult, error)
}

type syncAnalyzer struct {
	gw      port.AnalysisGateway
	timeout time.Duration
}

// NewSyncAnalyzer creates an Analyzer that waits on a single request with
// the AnalyzeTimeout budget.
func NewSyncAnalyzer(gw port.AnalysisGateway) Analyzer {
	return &syncAnalyzer{gw: gw, timeout: AnalyzeTimeout}
}

// NewSyncAnalyzerWithTimeout is NewSyncAnalyzer with a custom budget.
func NewSyncAnalyzerWithTimeout(gw port.AnalysisGateway, timeout time.Duration) Analyzer {
	if timeout <= 0 {
		timeout = AnalyzeTimeout
	}
	return &syncAnalyzer{gw: gw, timeout: timeout}
}

func (a *syncAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) (*domain.AnalysisResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		result *domain.AnalysisResult
		err    error
	)
	if in.Options.Kind == domain.RequestRerunOCR {
		result, err = a.gw.RerunOCR(reqCtx, in.Image, in.Options.Mode)
	} else {
		result, err = a.gw.Submit(reqCtx, in.Image, in.Options)
	}
	if err != nil {
		return nil, asTimeout(ctx, err, string(in.Options.Kind), a.timeout)
	}
	return result, nil
}

type asyncAnalyzer struct {
	jobs port.JobGateway
	cfg  PollerConfig
}

// NewAsyncAnalyzer creates an Analyzer that submits a job and polls it with
// a fresh JobPoller per call.
func NewAsyncAnalyzer(jobs port.JobGateway, cfg PollerConfig) Analyzer {
	return &asyncAnalyzer{jobs: jobs, cfg: cfg.withDefaults()}
}

func (a *asyncAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) (*domain.AnalysisResult, error) {
	poller := NewJobPoller(a.jobs, a.cfg)
	if in.Progress != nil {
		poller.OnUpdate(in.Progress)
	}
	if _, err := poller.Submit(ctx, in.Image, in.Options); err != nil {
		return nil, err
	}
	return poller.Wait(ctx)
}

// NewAnalyzer selects the Analyzer implementation named by the service
// transport setting.
func NewAnalyzer(cfg *config.ServiceConfig, gw port.AnalysisGateway, jobs port.JobGateway) Analyzer {
	if cfg.Transport == config.TransportAsync {
		return NewAsyncAnalyzer(jobs, PollerConfig{Interval: cfg.PollInterval})
	}
	return NewSyncAnalyzer(gw)
}
