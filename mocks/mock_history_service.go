package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scandesk/internal/domain"
)

// MockHistoryService is a mock implementation of service.HistoryService.
type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) List(ctx context.Context, limit int) ([]domain.HistoryItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HistoryItem), args.Error(1)
}

func (m *MockHistoryService) Export(ctx context.Context, format domain.ExportFormat, limit int) ([]byte, error) {
	args := m.Called(ctx, format, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockHistoryService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}
