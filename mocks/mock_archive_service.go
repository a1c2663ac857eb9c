package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scandesk/internal/domain"
)

// MockArchiveService is a mock implementation of service.ArchiveService.
type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) SaveExample(ctx context.Context, result *domain.AnalysisResult, filenamePrefix string) (*domain.SavedExample, error) {
	args := m.Called(ctx, result, filenamePrefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SavedExample), args.Error(1)
}
