package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scandesk/internal/domain"
)

// MockAnalysisGateway is a mock implementation of port.AnalysisGateway.
type MockAnalysisGateway struct {
	mock.Mock
}

func (m *MockAnalysisGateway) Submit(ctx context.Context, img domain.ImageFile, opts domain.AnalyzeOptions) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, img, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisResult), args.Error(1)
}

func (m *MockAnalysisGateway) RerunOCR(ctx context.Context, img domain.ImageFile, mode domain.OCRMode) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, img, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisResult), args.Error(1)
}
