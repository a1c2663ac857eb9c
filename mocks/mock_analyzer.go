package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scandesk/internal/domain"
	"scandesk/internal/service"
)

// MockAnalyzer is a mock implementation of service.Analyzer.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, in service.AnalyzeInput) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisResult), args.Error(1)
}
