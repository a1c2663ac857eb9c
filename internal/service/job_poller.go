package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"scandesk/internal/domain"
	"scandesk/internal/port"
)

const (
	// DefaultPollInterval is the fixed delay between job status checks.
	DefaultPollInterval = 2 * time.Second
	// AnalyzeTimeout bounds every single request to the analysis service.
	AnalyzeTimeout = 30 * time.Second
)

// PollerConfig holds settings for a JobPoller.
type PollerConfig struct {
	Interval       time.Duration
	RequestTimeout time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = AnalyzeTimeout
	}
	return c
}

// JobPoller submits one asynchronous job at a time and polls its status
// until it reaches a terminal state or is cancelled.
type JobPoller struct {
	jobs port.JobGateway
	cfg  PollerConfig

	mu       sync.Mutex
	state    domain.PollState
	gen      uint64
	jobID    string
	result   *domain.AnalysisResult
	err      error
	done     chan struct{}
	stop     context.CancelFunc
	onUpdate func(jobID string, status domain.JobStatus)
}

// NewJobPoller creates an idle JobPoller.
func NewJobPoller(jobs port.JobGateway, cfg PollerConfig) *JobPoller {
	return &JobPoller{
		jobs:  jobs,
		cfg:   cfg.withDefaults(),
		state: domain.PollStateIdle,
	}
}

// OnUpdate registers fn to be called with every job status observed,
// including the status returned at creation. fn runs outside the poller's
// lock.
func (p *JobPoller) OnUpdate(fn func(jobID string, status domain.JobStatus)) {
	p.mu.Lock()
	p.onUpdate = fn
	p.mu.Unlock()
}

// State returns the poller's lifecycle state.
func (p *JobPoller) State() domain.PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// JobID returns the id of the current job, or "" before one is accepted.
func (p *JobPoller) JobID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobID
}

// Done returns a channel closed once the current job reaches a terminal
// state. It is nil while the poller is idle.
func (p *JobPoller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Submit creates a job for img and starts polling it. It may only be called
// while idle or after the previous job finished.
func (p *JobPoller) Submit(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (string, error) {
	p.mu.Lock()
	if p.state != domain.PollStateIdle && !p.state.IsTerminal() {
		p.mu.Unlock()
		return "", domain.ErrPollerBusy
	}
	p.gen++
	gen := p.gen
	loopCtx, stop := context.WithCancel(context.Background())
	p.state = domain.PollStateSubmitting
	p.jobID = ""
	p.result = nil
	p.err = nil
	p.done = make(chan struct{})
	p.stop = stop
	p.mu.Unlock()

	reqCtx, cancelReq := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	unlink := context.AfterFunc(loopCtx, cancelReq)
	ticket, err := p.jobs.CreateJob(reqCtx, img, opts)
	unlink()
	cancelReq()

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return "", context.Canceled
	}
	if err != nil {
		err = asTimeout(ctx, err, "create job", p.cfg.RequestTimeout)
		p.finishLocked(domain.PollStateFailed, nil, err)
		p.mu.Unlock()
		return "", err
	}
	p.jobID = ticket.JobID
	p.state = domain.PollStatePolling
	notify := p.onUpdate
	p.mu.Unlock()

	log.Printf("jobPoller: job %s accepted (status=%s, poll=%s)", ticket.JobID, ticket.Status, p.cfg.Interval)
	if notify != nil {
		notify(ticket.JobID, ticket.Status)
	}

	go p.run(loopCtx, gen, ticket.JobID)
	return ticket.JobID, nil
}

// Wait blocks until the current job finishes and returns its result or
// terminal error. If ctx ends first the poller is cancelled.
func (p *JobPoller) Wait(ctx context.Context) (*domain.AnalysisResult, error) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil, domain.ErrPollerIdle
	}

	select {
	case <-done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err
	case <-ctx.Done():
		p.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel stops polling. Responses that arrive afterwards are ignored.
func (p *JobPoller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == domain.PollStateIdle || p.state.IsTerminal() {
		return
	}
	p.gen++
	log.Printf("jobPoller: cancelled job %q in state %s", p.jobID, p.state)
	p.finishLocked(domain.PollStateCancelled, nil, context.Canceled)
}

func (p *JobPoller) run(ctx context.Context, gen uint64, jobID string) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.poll(ctx, gen, jobID) {
				return
			}
		}
	}
}

// poll performs one status check and reports whether the loop should stop.
func (p *JobPoller) poll(ctx context.Context, gen uint64, jobID string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	job, err := p.jobs.GetJob(reqCtx, jobID)
	cancel()

	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		log.Printf("jobPoller: %v", &domain.TransientPollError{JobID: jobID, Err: err})
		return false
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return true
	}
	notify := p.onUpdate
	p.mu.Unlock()

	// Observers see the terminal status before Wait returns.
	if notify != nil {
		notify(jobID, job.Status)
	}
	if !job.Status.IsTerminal() {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return true
	}
	switch job.Status {
	case domain.JobStatusDone:
		if job.Result == nil {
			p.finishLocked(domain.PollStateFailed, nil, domain.NewJobFailure(jobID, "Job finished without a result"))
		} else {
			p.finishLocked(domain.PollStateDone, job.Result, nil)
		}
	case domain.JobStatusFailed:
		p.finishLocked(domain.PollStateFailed, nil, domain.NewJobFailure(jobID, job.ErrorMessage()))
	}
	return true
}

func (p *JobPoller) finishLocked(state domain.PollState, result *domain.AnalysisResult, err error) {
	p.state = state
	p.result = result
	p.err = err
	if p.done != nil {
		close(p.done)
	}
	if p.stop != nil {
		p.stop()
	}
}

// asTimeout converts a deadline hit by the per-request budget into a
// TimeoutError. A deadline or cancellation from the caller's own context is
// returned as is.
func asTimeout(parent context.Context, err error, op string, budget time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return &domain.TimeoutError{Operation: op, Budget: budget, Err: err}
	}
	return err
}
