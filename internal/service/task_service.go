package service

import (
	"context"
	"fmt"
	"html"
	"iter"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"task-manager/internal/model"
	"task-manager/internal/notify"
	"task-manager/internal/repository"
)

// MaxTitleLength bounds task titles, in characters.
const MaxTitleLength = 50

const defaultNotifyTimeout = 5 * time.Second

// CreateTaskInput represents data required to create a task.
type CreateTaskInput struct {
	Title          string
	Description    *string
	Status         model.TaskStatus
	Deadline       *time.Time
	AssignedUserID uint
	CategoryID     uint
}

// TaskPatch is a partial admin update. Nil fields are left untouched.
type TaskPatch struct {
	Title          *string
	Description    *string
	Status         *model.TaskStatus
	Deadline       *time.Time
	AssignedUserID *uint
	CategoryID     *uint
}

// Dashboard aggregates task counts per status.
type Dashboard struct {
	StatusCounts map[model.TaskStatus]int64
	TotalTasks   int64
}

// TaskService owns the task lifecycle: creation, updates, status history and visibility.
type TaskService struct {
	taskRepo      *repository.TaskRepository
	userRepo      *repository.UserRepository
	categoryRepo  *repository.CategoryRepository
	notifier      notify.Notifier
	now           func() time.Time
	// notifyTimeout bounds how long a request waits on the notifier after commit.
	notifyTimeout time.Duration
}

func NewTaskService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, categoryRepo *repository.CategoryRepository, notifier notify.Notifier) *TaskService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &TaskService{
		taskRepo:      taskRepo,
		userRepo:      userRepo,
		categoryRepo:  categoryRepo,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: defaultNotifyTimeout,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, id Identity, input CreateTaskInput) (*model.Task, error) {
	if err := authorize(id, capAdmin, nil); err != nil {
		return nil, err
	}
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = model.StatusNew
	}
	if !status.Valid() {
		return nil, newError(ErrValidation, "Invalid status '%s'.", status)
	}

	assignee, err := s.userRepo.FindByID(ctx, input.AssignedUserID)
	if err != nil {
		return nil, translateStoreError(err, "User with Id %d does not exist.", input.AssignedUserID)
	}
	if _, err := s.categoryRepo.GetByID(ctx, input.CategoryID); err != nil {
		return nil, translateStoreError(err, "Category with Id %d does not exist.", input.CategoryID)
	}

	now := s.now()
	task := model.Task{
		Title:          title,
		Description:    input.Description,
		Status:         status,
		Deadline:       utcDeadline(input.Deadline),
		AssignedUserID: &assignee.ID,
		CategoryID:     &input.CategoryID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}

	log.Printf("[info] task created id=%d assignee=%d by=%d", task.ID, assignee.ID, id.UserID)
	s.notify(ctx, fmt.Sprintf("📌 New task #%d <b>%s</b> assigned to %s",
		task.ID, html.EscapeString(task.Title), html.EscapeString(assignee.Name)))

	return &task, nil
}

// UpdateStatus moves a task to newStatus. Resubmitting the current status is a no-op:
// no history row is written and updatedAt is left alone.
func (s *TaskService) UpdateStatus(ctx context.Context, id Identity, taskID uint, newStatus model.TaskStatus) (*model.Task, error) {
	if !newStatus.Valid() {
		return nil, newError(ErrValidation, "Invalid status '%s'.", newStatus)
	}

	var recorded *model.TaskHistory
	task, err := s.taskRepo.Update(ctx, taskID, func(task *model.Task) (*model.TaskHistory, bool, error) {
		if err := authorize(id, capAssigneeOrAdmin, task); err != nil {
			return nil, false, err
		}
		recorded = s.transition(task, newStatus, id)
		return recorded, recorded != nil, nil
	})
	if err != nil {
		return nil, translateStoreError(err, "Task with id %d not found.", taskID)
	}

	if recorded != nil {
		s.notifyTransition(ctx, task, recorded)
	}
	return task, nil
}

// AdminUpdate applies a partial update. Status changes are audited like UpdateStatus;
// every other present field overwrites the stored value.
func (s *TaskService) AdminUpdate(ctx context.Context, id Identity, taskID uint, patch TaskPatch) (*model.Task, error) {
	if err := authorize(id, capAdmin, nil); err != nil {
		return nil, err
	}

	var title string
	if patch.Title != nil {
		t, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, newError(ErrValidation, "Invalid status '%s'.", *patch.Status)
	}

	var assignee *model.User
	if patch.AssignedUserID != nil {
		u, err := s.userRepo.FindByID(ctx, *patch.AssignedUserID)
		if err != nil {
			return nil, translateStoreError(err, "User with Id %d not found.", *patch.AssignedUserID)
		}
		assignee = u
	}
	if patch.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *patch.CategoryID); err != nil {
			return nil, translateStoreError(err, "Category with Id %d not found.", *patch.CategoryID)
		}
	}

	var (
		recorded   *model.TaskHistory
		reassigned bool
	)
	task, err := s.taskRepo.Update(ctx, taskID, func(task *model.Task) (*model.TaskHistory, bool, error) {
		if patch.Status != nil {
			recorded = s.transition(task, *patch.Status, id)
		}
		if assignee != nil {
			reassigned = task.AssignedUserID == nil || *task.AssignedUserID != assignee.ID
			task.AssignedUserID = &assignee.ID
		}
		if patch.CategoryID != nil {
			task.CategoryID = patch.CategoryID
		}
		if patch.Title != nil {
			task.Title = title
		}
		if patch.Description != nil {
			task.Description = patch.Description
		}
		if patch.Deadline != nil {
			task.Deadline = utcDeadline(patch.Deadline)
		}
		task.UpdatedAt = s.now()
		return recorded, true, nil
	})
	if err != nil {
		return nil, translateStoreError(err, "Task with Id %d not found.", taskID)
	}

	log.Printf("[info] task updated id=%d by=%d", task.ID, id.UserID)
	if recorded != nil {
		s.notifyTransition(ctx, task, recorded)
	}
	if reassigned {
		s.notify(ctx, fmt.Sprintf("📌 Task #%d <b>%s</b> reassigned to %s",
			task.ID, html.EscapeString(task.Title), html.EscapeString(assignee.Name)))
	}
	return task, nil
}

// transition sets the new status and returns the history row to record, or nil when
// the status does not change.
func (s *TaskService) transition(task *model.Task, newStatus model.TaskStatus, by Identity) *model.TaskHistory {
	if task.Status == newStatus {
		return nil
	}
	now := s.now()
	entry := &model.TaskHistory{
		TaskID:          task.ID,
		OldStatus:       task.Status,
		NewStatus:       newStatus,
		ChangedAt:       now,
		ChangedByUserID: &by.UserID,
	}
	task.Status = newStatus
	task.UpdatedAt = now
	return entry
}

func (s *TaskService) DeleteTask(ctx context.Context, id Identity, taskID uint) error {
	if err := authorize(id, capAdmin, nil); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return translateStoreError(err, "Task with id %d not found.", taskID)
	}
	log.Printf("[info] task deleted id=%d by=%d", taskID, id.UserID)
	return nil
}

// GetTask returns a task with assignee, category and chronological history.
func (s *TaskService) GetTask(ctx context.Context, id Identity, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindDetail(ctx, taskID)
	if err != nil {
		return nil, translateStoreError(err, "Task with id %d not found.", taskID)
	}
	if err := authorize(id, capAssigneeOrAdmin, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns the summaries visible to id, filtered and sorted per q.
func (s *TaskService) ListTasks(ctx context.Context, id Identity, q TaskQuery) (iter.Seq2[model.TaskSummary, error], error) {
	filter, err := q.filterFor(id)
	if err != nil {
		return nil, err
	}
	return s.taskRepo.List(ctx, filter), nil
}

func (s *TaskService) ListAllTasks(ctx context.Context, id Identity) ([]model.Task, error) {
	if err := authorize(id, capAdmin, nil); err != nil {
		return nil, err
	}
	return s.taskRepo.ListAll(ctx)
}

// ListUnassignedTasks returns tasks lacking an assignee or a category.
func (s *TaskService) ListUnassignedTasks(ctx context.Context, id Identity) ([]model.Task, error) {
	if err := authorize(id, capAdmin, nil); err != nil {
		return nil, err
	}
	return s.taskRepo.ListUnassigned(ctx)
}

// History returns the full status audit log, newest first.
func (s *TaskService) History(ctx context.Context, id Identity) ([]model.TaskHistory, error) {
	if err := authorize(id, capAdmin, nil); err != nil {
		return nil, err
	}
	return s.taskRepo.ListHistory(ctx)
}

// Dashboard counts visible tasks per status; every status is present, zero-filled.
func (s *TaskService) Dashboard(ctx context.Context, id Identity) (*Dashboard, error) {
	counts, err := s.taskRepo.CountByStatus(ctx, id.visibleTo())
	if err != nil {
		return nil, err
	}

	out := &Dashboard{StatusCounts: make(map[model.TaskStatus]int64, len(model.Statuses))}
	for _, st := range model.Statuses {
		out.StatusCounts[st] = counts[st]
		out.TotalTasks += counts[st]
	}
	return out, nil
}

func (s *TaskService) notifyTransition(ctx context.Context, task *model.Task, entry *model.TaskHistory) {
	s.notify(ctx, fmt.Sprintf("🔄 Task #%d <b>%s</b>: %s → %s",
		task.ID, html.EscapeString(task.Title), entry.OldStatus, entry.NewStatus))
}

// notify is best effort: a failed or slow notification never fails the request.
// The change is already committed, so a client hanging up does not cancel it.
func (s *TaskService) notify(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, text); err != nil {
		log.Printf("[warn] notify: %v", err)
	}
}

// utcDeadline stores deadlines as UTC so the database orders them as instants.
func utcDeadline(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	u := d.UTC()
	return &u
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", newError(ErrValidation, "Title is required.")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", newError(ErrValidation, "Title must be at most %d characters.", MaxTitleLength)
	}
	return title, nil
}
