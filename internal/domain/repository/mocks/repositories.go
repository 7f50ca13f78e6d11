// Package mocks provides testify mocks for the repository ports.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/publora/platform/backend/services/social-service/internal/domain/models"
)

type MockConnectedAccountRepository struct {
	mock.Mock
}

func (m *MockConnectedAccountRepository) Upsert(ctx context.Context, acc *models.ConnectedAccount) (*models.ConnectedAccount, error) {
	args := m.Called(ctx, acc)
	if rf, ok := args.Get(0).(func(context.Context, *models.ConnectedAccount) *models.ConnectedAccount); ok {
		return rf(ctx, acc), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectedAccount), args.Error(1)
}

func (m *MockConnectedAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ConnectedAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectedAccount), args.Error(1)
}

func (m *MockConnectedAccountRepository) FindByTriple(ctx context.Context, brandID uuid.UUID, platform models.Platform, platformAccountID string) (*models.ConnectedAccount, error) {
	args := m.Called(ctx, brandID, platform, platformAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectedAccount), args.Error(1)
}

func (m *MockConnectedAccountRepository) ListByBrand(ctx context.Context, brandID uuid.UUID) ([]*models.ConnectedAccount, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ConnectedAccount), args.Error(1)
}

func (m *MockConnectedAccountRepository) CountByBrandPlatform(ctx context.Context, brandID uuid.UUID, platform models.Platform) (int, error) {
	args := m.Called(ctx, brandID, platform)
	return args.Int(0), args.Error(1)
}

func (m *MockConnectedAccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus, errorCode, errorMessage *string) error {
	args := m.Called(ctx, id, status, errorCode, errorMessage)
	return args.Error(0)
}

func (m *MockConnectedAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockBrandRepository struct {
	mock.Mock
}

func (m *MockBrandRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Brand), args.Error(1)
}

type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

type MockPendingSelectionRepository struct {
	mock.Mock
}

func (m *MockPendingSelectionRepository) Upsert(ctx context.Context, p *models.PendingSelection) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPendingSelectionRepository) FindByBrandPlatform(ctx context.Context, brandID uuid.UUID, platform models.Platform) (*models.PendingSelection, error) {
	args := m.Called(ctx, brandID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingSelection), args.Error(1)
}

func (m *MockPendingSelectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
