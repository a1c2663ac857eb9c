package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scandesk/internal/domain"
)

// MockJobGateway is a mock implementation of port.JobGateway.
type MockJobGateway struct {
	mock.Mock
}

func (m *MockJobGateway) CreateJob(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (*domain.JobTicket, error) {
	args := m.Called(ctx, img, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobTicket), args.Error(1)
}

func (m *MockJobGateway) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}
