package storage

import (
	"context"

	"github.com/MosinFAM/content-registry/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) AppendOperation(ctx context.Context, op *models.Operation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockStorage) GetOperations(ctx context.Context) ([]models.Operation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Operation), args.Error(1)
}

func (m *MockStorage) SubscribeToOperations(ctx context.Context) (<-chan models.Operation, error) {
	args := m.Called(ctx)
	return args.Get(0).(chan models.Operation), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}
