package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"scandesk/internal/domain"
	"scandesk/internal/service"
	"scandesk/mocks"
)

var testImage = domain.ImageFile{Name: "receipt.png", ContentType: "image/png", Data: []byte("png")}

func fastPoller(jobs *mocks.MockJobGateway) *service.JobPoller {
	return service.NewJobPoller(jobs, service.PollerConfig{Interval: 10 * time.Millisecond, RequestTimeout: time.Second})
}

func doneResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{OCR: domain.OCRResult{Text: "TOTAL 12.00"}}
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []domain.JobStatus
}

func (r *statusRecorder) record(_ string, s domain.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) get() []domain.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.JobStatus(nil), r.statuses...)
}

func TestJobPoller_QueuedRunningDone(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, testImage, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-1", Status: domain.JobStatusQueued}, nil).Once()
	jobs.On("GetJob", mock.Anything, "job-1").Return(&domain.Job{ID: "job-1", Status: domain.JobStatusQueued}, nil).Once()
	jobs.On("GetJob", mock.Anything, "job-1").Return(&domain.Job{ID: "job-1", Status: domain.JobStatusRunning}, nil).Once()
	jobs.On("GetJob", mock.Anything, "job-1").Return(&domain.Job{ID: "job-1", Status: domain.JobStatusDone, Result: doneResult()}, nil).Once()

	p := fastPoller(jobs)
	rec := &statusRecorder{}
	p.OnUpdate(rec.record)

	id, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	assert.Equal(t, "job-1", p.JobID())

	result, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TOTAL 12.00", result.OCR.Text)
	assert.Equal(t, domain.PollStateDone, p.State())

	// No polls after the terminal status.
	time.Sleep(50 * time.Millisecond)
	jobs.AssertNumberOfCalls(t, "GetJob", 3)
	assert.Equal(t, []domain.JobStatus{
		domain.JobStatusQueued, domain.JobStatusQueued, domain.JobStatusRunning, domain.JobStatusDone,
	}, rec.get())

	select {
	case <-p.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestJobPoller_FailedJobUsesDefaultMessage(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-2", Status: domain.JobStatusQueued}, nil)
	jobs.On("GetJob", mock.Anything, "job-2").Return(&domain.Job{ID: "job-2", Status: domain.JobStatusFailed}, nil).Once()

	p := fastPoller(jobs)
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	require.NoError(t, err)

	result, err := p.Wait(context.Background())

	assert.Nil(t, result)
	var jobErr *domain.JobFailure
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "Job failed", jobErr.Reason)
	assert.Equal(t, domain.PollStateFailed, p.State())
}

func TestJobPoller_FailedJobReason(t *testing.T) {
	reason := "OCR engine crashed"
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-3", Status: domain.JobStatusQueued}, nil)
	jobs.On("GetJob", mock.Anything, "job-3").Return(&domain.Job{ID: "job-3", Status: domain.JobStatusFailed, Error: &reason}, nil).Once()

	p := fastPoller(jobs)
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	require.NoError(t, err)

	_, err = p.Wait(context.Background())

	assert.Equal(t, reason, domain.UserMessage(err))
}

func TestJobPoller_TransientErrorKeepsPolling(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-4", Status: domain.JobStatusQueued}, nil)
	jobs.On("GetJob", mock.Anything, "job-4").Return(nil, errors.New("connection reset")).Once()
	jobs.On("GetJob", mock.Anything, "job-4").Return(nil, &domain.ServiceError{StatusCode: 502, Message: "Bad Gateway"}).Once()
	jobs.On("GetJob", mock.Anything, "job-4").Return(&domain.Job{ID: "job-4", Status: domain.JobStatusDone, Result: doneResult()}, nil).Once()

	p := fastPoller(jobs)
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	require.NoError(t, err)

	result, err := p.Wait(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, result)
	jobs.AssertNumberOfCalls(t, "GetJob", 3)
}

func TestJobPoller_SubmitFailure(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &domain.UploadError{StatusCode: 400, Message: "Invalid file type. Only JPEG/PNG allowed."})

	p := fastPoller(jobs)
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())

	var uploadErr *domain.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, domain.PollStateFailed, p.State())

	_, waitErr := p.Wait(context.Background())
	assert.ErrorAs(t, waitErr, &uploadErr)
	jobs.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
}

func TestJobPoller_SubmitTimeout(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	p := service.NewJobPoller(jobs, service.PollerConfig{Interval: 10 * time.Millisecond, RequestTimeout: 20 * time.Millisecond})
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())

	var timeoutErr *domain.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Budget)
	assert.Equal(t, domain.PollStateFailed, p.State())
}

func TestJobPoller_FirstPollAfterOneInterval(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-5", Status: domain.JobStatusQueued}, nil)
	jobs.On("GetJob", mock.Anything, "job-5").Return(&domain.Job{ID: "job-5", Status: domain.JobStatusRunning}, nil).Maybe()

	p := service.NewJobPoller(jobs, service.PollerConfig{Interval: 200 * time.Millisecond})
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	require.NoError(t, err)
	defer p.Cancel()

	time.Sleep(40 * time.Millisecond)
	jobs.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
	assert.Equal(t, domain.PollStatePolling, p.State())
}

func TestJobPoller_BusyAndCancel(t *testing.T) {
	var polls atomic.Int32
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-6", Status: domain.JobStatusQueued}, nil)
	jobs.On("GetJob", mock.Anything, "job-6").
		Run(func(mock.Arguments) { polls.Add(1) }).
		Return(&domain.Job{ID: "job-6", Status: domain.JobStatusRunning}, nil).Maybe()

	p := fastPoller(jobs)
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	assert.ErrorIs(t, err, domain.ErrPollerBusy)

	time.Sleep(35 * time.Millisecond)
	p.Cancel()
	assert.Equal(t, domain.PollStateCancelled, p.State())

	// Allow an in-flight poll to drain, then make sure polling stopped.
	time.Sleep(15 * time.Millisecond)
	after := polls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, polls.Load())

	_, err = p.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobPoller_WaitContextCancelsPoller(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-7", Status: domain.JobStatusQueued}, nil)
	jobs.On("GetJob", mock.Anything, "job-7").Return(&domain.Job{ID: "job-7", Status: domain.JobStatusRunning}, nil).Maybe()

	p := fastPoller(jobs)
	_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = p.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.PollStateCancelled, p.State())
}

func TestJobPoller_ResubmitAfterTerminal(t *testing.T) {
	jobs := new(mocks.MockJobGateway)
	jobs.On("CreateJob", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.JobTicket{JobID: "job-8", Status: domain.JobStatusQueued}, nil)
	jobs.On("GetJob", mock.Anything, "job-8").Return(&domain.Job{ID: "job-8", Status: domain.JobStatusDone, Result: doneResult()}, nil)

	p := fastPoller(jobs)
	for i := 0; i < 2; i++ {
		_, err := p.Submit(context.Background(), testImage, domain.AnalyzeRequest())
		require.NoError(t, err)
		_, err = p.Wait(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, domain.PollStateDone, p.State())
}

func TestJobPoller_WaitWhileIdle(t *testing.T) {
	p := fastPoller(new(mocks.MockJobGateway))

	_, err := p.Wait(context.Background())

	assert.ErrorIs(t, err, domain.ErrPollerIdle)
	assert.Equal(t, domain.PollStateIdle, p.State())
	assert.Nil(t, p.Done())
}
