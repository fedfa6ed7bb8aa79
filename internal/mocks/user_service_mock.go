package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"task-manager/internal/repository"
	"task-manager/internal/service"
)

type UserService struct{ mock.Mock }

func (m *UserService) List(ctx context.Context, id service.Identity) ([]repository.UserSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UserSummary), args.Error(1)
}

func (m *UserService) Delete(ctx context.Context, id service.Identity, userID uint) error {
	return m.Called(ctx, id, userID).Error(0)
}
