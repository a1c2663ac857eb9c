package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scandesk/internal/domain"
)

// MockHistoryGateway is a mock implementation of port.HistoryGateway.
type MockHistoryGateway struct {
	mock.Mock
}

func (m *MockHistoryGateway) ListHistory(ctx context.Context, limit int) ([]domain.HistoryItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HistoryItem), args.Error(1)
}
