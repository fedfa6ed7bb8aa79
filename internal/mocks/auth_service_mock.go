package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

type AuthService struct{ mock.Mock }

func (m *AuthService) Authenticate(raw string) (service.Identity, error) {
	args := m.Called(raw)
	return args.Get(0).(service.Identity), args.Error(1)
}

func (m *AuthService) Register(ctx context.Context, input service.RegisterInput) (*model.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *AuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}
