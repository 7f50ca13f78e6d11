package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

type MockActivityEmitter struct {
	mock.Mock
}

func (m *MockActivityEmitter) Emit(ctx context.Context, event models.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
