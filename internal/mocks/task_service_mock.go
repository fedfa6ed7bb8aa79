package mocks

import (
	"context"
	"iter"

	"github.com/stretchr/testify/mock"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

type TaskService struct{ mock.Mock }

func (m *TaskService) CreateTask(ctx context.Context, id service.Identity, input service.CreateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, id, input)
	return task(args)
}

func (m *TaskService) UpdateStatus(ctx context.Context, id service.Identity, taskID uint, status model.TaskStatus) (*model.Task, error) {
	args := m.Called(ctx, id, taskID, status)
	return task(args)
}

func (m *TaskService) AdminUpdate(ctx context.Context, id service.Identity, taskID uint, patch service.TaskPatch) (*model.Task, error) {
	args := m.Called(ctx, id, taskID, patch)
	return task(args)
}

func (m *TaskService) DeleteTask(ctx context.Context, id service.Identity, taskID uint) error {
	return m.Called(ctx, id, taskID).Error(0)
}

func (m *TaskService) GetTask(ctx context.Context, id service.Identity, taskID uint) (*model.Task, error) {
	args := m.Called(ctx, id, taskID)
	return task(args)
}

func (m *TaskService) ListTasks(ctx context.Context, id service.Identity, q service.TaskQuery) (iter.Seq2[model.TaskSummary, error], error) {
	args := m.Called(ctx, id, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(iter.Seq2[model.TaskSummary, error]), args.Error(1)
}

func (m *TaskService) ListAllTasks(ctx context.Context, id service.Identity) ([]model.Task, error) {
	args := m.Called(ctx, id)
	return tasks(args)
}

func (m *TaskService) ListUnassignedTasks(ctx context.Context, id service.Identity) ([]model.Task, error) {
	args := m.Called(ctx, id)
	return tasks(args)
}

func (m *TaskService) History(ctx context.Context, id service.Identity) ([]model.TaskHistory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TaskHistory), args.Error(1)
}

func (m *TaskService) Dashboard(ctx context.Context, id service.Identity) (*service.Dashboard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Dashboard), args.Error(1)
}

// Summaries adapts a fixed slice to the sequence ListTasks returns.
func Summaries(items ...model.TaskSummary) iter.Seq2[model.TaskSummary, error] {
	return func(yield func(model.TaskSummary, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

func task(args mock.Arguments) (*model.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func tasks(args mock.Arguments) ([]model.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}
