package handlers

import (
	"context"
	"iter"

	"task-manager/internal/model"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

// Authenticator turns a bearer token into a caller identity.
type Authenticator interface {
	Authenticate(raw string) (service.Identity, error)
}

type AuthService interface {
	Authenticator
	Register(ctx context.Context, input service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

type TaskService interface {
	CreateTask(ctx context.Context, id service.Identity, input service.CreateTaskInput) (*model.Task, error)
	UpdateStatus(ctx context.Context, id service.Identity, taskID uint, status model.TaskStatus) (*model.Task, error)
	AdminUpdate(ctx context.Context, id service.Identity, taskID uint, patch service.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id service.Identity, taskID uint) error
	GetTask(ctx context.Context, id service.Identity, taskID uint) (*model.Task, error)
	ListTasks(ctx context.Context, id service.Identity, q service.TaskQuery) (iter.Seq2[model.TaskSummary, error], error)
	ListAllTasks(ctx context.Context, id service.Identity) ([]model.Task, error)
	ListUnassignedTasks(ctx context.Context, id service.Identity) ([]model.Task, error)
	History(ctx context.Context, id service.Identity) ([]model.TaskHistory, error)
	Dashboard(ctx context.Context, id service.Identity) (*service.Dashboard, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, id service.Identity, name string) (*model.Category, error)
	Delete(ctx context.Context, id service.Identity, categoryID uint) error
}

type UserService interface {
	List(ctx context.Context, id service.Identity) ([]repository.UserSummary, error)
	Delete(ctx context.Context, id service.Identity, userID uint) error
}
