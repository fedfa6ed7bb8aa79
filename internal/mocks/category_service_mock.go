package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

type CategoryService struct{ mock.Mock }

func (m *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *CategoryService) Create(ctx context.Context, id service.Identity, name string) (*model.Category, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *CategoryService) Delete(ctx context.Context, id service.Identity, categoryID uint) error {
	return m.Called(ctx, id, categoryID).Error(0)
}
