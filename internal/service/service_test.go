package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type env struct {
	ctx        context.Context
	db         *gorm.DB
	clock      *clock
	notifier   *recordingNotifier
	userRepo   *repository.UserRepository
	catRepo    *repository.CategoryRepository
	taskRepo   *repository.TaskRepository
	tasks      *TaskService
	categories *CategoryService
	users      *UserService

	admin Identity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(repository.DriverSQLite, fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	e := &env{
		ctx:      context.Background(),
		db:       db,
		clock:    &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
		userRepo: repository.NewUserRepository(db),
		catRepo:  repository.NewCategoryRepository(db),
		taskRepo: repository.NewTaskRepository(db),
	}
	e.tasks = NewTaskService(e.taskRepo, e.userRepo, e.catRepo, e.notifier)
	e.tasks.now = e.clock.now
	e.categories = NewCategoryService(e.catRepo)
	e.users = NewUserService(e.userRepo)

	admin := e.addUser(t, 1, "Admin", model.RoleAdmin)
	e.admin = identityOf(admin)
	return e
}

func (e *env) addUser(t *testing.T, id uint, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{ID: id, Name: name, Email: strings.ToLower(name) + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, e.userRepo.Create(e.ctx, u))
	return u
}

func (e *env) addCategory(t *testing.T, id uint, name string) *model.Category {
	t.Helper()
	c := &model.Category{ID: id, Name: name}
	require.NoError(t, e.catRepo.Create(e.ctx, c))
	return c
}

func (e *env) historyCount(t *testing.T, taskID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.TaskHistory{}).Where("task_id = ?", taskID).Count(&n).Error)
	return n
}

func identityOf(u *model.User) Identity {
	return Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func ptr[T any](v T) *T { return &v }

func TestOpsDeployScenario(t *testing.T) {
	e := newEnv(t)
	assignee := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 10, "Ops")

	created, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{
		Title:          "Deploy",
		Status:         model.StatusNew,
		AssignedUserID: 2,
		CategoryID:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, "Deploy", created.Title)

	e.clock.advance(time.Hour)
	updated, err := e.tasks.UpdateStatus(e.ctx, identityOf(assignee), created.ID, model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)

	detail, err := e.tasks.GetTask(e.ctx, identityOf(assignee), created.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 1)
	h := detail.History[0]
	assert.Equal(t, model.StatusNew, h.OldStatus)
	assert.Equal(t, model.StatusInProgress, h.NewStatus)
	require.NotNil(t, h.ChangedByUserID)
	assert.EqualValues(t, 2, *h.ChangedByUserID)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "Ops", detail.Category.Name)
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)

	for _, st := range model.Statuses {
		e.clock.advance(time.Minute)
		_, err := e.tasks.UpdateStatus(e.ctx, identityOf(alice), task.ID, st)
		require.NoError(t, err)

		e.clock.advance(time.Minute)
		before := e.historyCount(t, task.ID)
		stored, err := e.taskRepo.FindByID(e.ctx, task.ID)
		require.NoError(t, err)

		again, err := e.tasks.UpdateStatus(e.ctx, identityOf(alice), task.ID, st)
		require.NoError(t, err)
		assert.Equal(t, before, e.historyCount(t, task.ID), "status %s", st)
		assert.True(t, stored.UpdatedAt.Equal(again.UpdatedAt), "status %s", st)
	}

	// New -> New is the first no-op, so four real changes were recorded
	assert.EqualValues(t, 4, e.historyCount(t, task.ID))
}

func TestUpdateStatusRecordsChainedHistory(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)
	assert.Zero(t, e.historyCount(t, task.ID), "creation records no history")

	steps := []model.TaskStatus{model.StatusInProgress, model.StatusOnHold, model.StatusCancelled, model.StatusNew}
	for _, st := range steps {
		e.clock.advance(time.Minute)
		before := e.historyCount(t, task.ID)
		updated, err := e.tasks.UpdateStatus(e.ctx, identityOf(alice), task.ID, st)
		require.NoError(t, err)
		assert.Equal(t, before+1, e.historyCount(t, task.ID))
		assert.True(t, e.clock.t.Equal(updated.UpdatedAt))
	}

	detail, err := e.tasks.GetTask(e.ctx, e.admin, task.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, len(steps))
	prev := model.StatusNew
	for i, h := range detail.History {
		assert.Equal(t, prev, h.OldStatus, "entry %d", i)
		assert.Equal(t, steps[i], h.NewStatus, "entry %d", i)
		prev = h.NewStatus
	}
	assert.False(t, detail.UpdatedAt.Before(detail.CreatedAt))
	assert.Len(t, e.notifier.messages, 1+len(steps))
}

func TestUpdateStatusForbiddenForNonAssignee(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, 2, "Alice", model.RoleUser)
	mallory := e.addUser(t, 3, "Mallory", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)

	_, err = e.tasks.UpdateStatus(e.ctx, identityOf(mallory), task.ID, model.StatusCompleted)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, e.historyCount(t, task.ID))

	stored, err := e.taskRepo.FindByID(e.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, stored.Status)

	_, err = e.tasks.GetTask(e.ctx, identityOf(mallory), task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatusErrors(t *testing.T) {
	e := newEnv(t)

	_, err := e.tasks.UpdateStatus(e.ctx, e.admin, 99, model.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Task with id 99 not found.")

	_, err = e.tasks.UpdateStatus(e.ctx, e.admin, 99, model.TaskStatus("Done"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTaskValidation(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")

	cases := []struct {
		name  string
		id    Identity
		input CreateTaskInput
		want  error
	}{
		{"non admin", identityOf(alice), CreateTaskInput{Title: "x", AssignedUserID: 2, CategoryID: 1}, ErrForbidden},
		{"empty title", e.admin, CreateTaskInput{Title: "  ", AssignedUserID: 2, CategoryID: 1}, ErrValidation},
		{"long title", e.admin, CreateTaskInput{Title: strings.Repeat("a", MaxTitleLength+1), AssignedUserID: 2, CategoryID: 1}, ErrValidation},
		{"bad status", e.admin, CreateTaskInput{Title: "x", Status: "Later", AssignedUserID: 2, CategoryID: 1}, ErrValidation},
		{"unknown user", e.admin, CreateTaskInput{Title: "x", AssignedUserID: 42, CategoryID: 1}, ErrNotFound},
		{"unknown category", e.admin, CreateTaskInput{Title: "x", AssignedUserID: 2, CategoryID: 42}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.tasks.CreateTask(e.ctx, tc.id, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: strings.Repeat("é", MaxTitleLength), AssignedUserID: 2, CategoryID: 1})
	assert.NoError(t, err, "the bound counts characters, not bytes")
}

func TestCreateGetRoundTrip(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 7, "Ops")
	deadline := time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC)

	created, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{
		Title:          "Deploy",
		Description:    ptr("roll out v2"),
		Deadline:       &deadline,
		AssignedUserID: 2,
		CategoryID:     7,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, created.Status)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	got, err := e.tasks.GetTask(e.ctx, identityOf(alice), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deploy", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "roll out v2", *got.Description)
	require.NotNil(t, got.Deadline)
	assert.True(t, deadline.Equal(*got.Deadline))
	require.NotNil(t, got.CategoryID)
	assert.EqualValues(t, 7, *got.CategoryID)
	require.NotNil(t, got.AssignedUser)
	assert.Equal(t, "Alice", got.AssignedUser.Name)
	assert.Empty(t, got.History)

	_, err = e.tasks.GetTask(e.ctx, e.admin, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminUpdate(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addUser(t, 3, "Bob", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	e.addCategory(t, 2, "Dev")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)

	e.clock.advance(time.Hour)
	updated, err := e.tasks.AdminUpdate(e.ctx, e.admin, task.ID, TaskPatch{
		Title:          ptr("Deploy v2"),
		AssignedUserID: ptr(uint(3)),
		CategoryID:     ptr(uint(2)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Deploy v2", updated.Title)
	assert.EqualValues(t, 3, *updated.AssignedUserID)
	assert.EqualValues(t, 2, *updated.CategoryID)
	assert.Equal(t, model.StatusNew, updated.Status)
	assert.True(t, e.clock.t.Equal(updated.UpdatedAt), "any successful update refreshes updatedAt")
	assert.Zero(t, e.historyCount(t, task.ID))

	e.clock.advance(time.Hour)
	_, err = e.tasks.AdminUpdate(e.ctx, e.admin, task.ID, TaskPatch{Status: ptr(model.StatusCompleted)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.historyCount(t, task.ID))

	_, err = e.tasks.AdminUpdate(e.ctx, e.admin, task.ID, TaskPatch{Status: ptr(model.StatusCompleted)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.historyCount(t, task.ID), "same status through admin update adds no history")

	_, err = e.tasks.AdminUpdate(e.ctx, e.admin, task.ID, TaskPatch{AssignedUserID: ptr(uint(42))})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.tasks.AdminUpdate(e.ctx, e.admin, task.ID, TaskPatch{CategoryID: ptr(uint(42))})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.tasks.AdminUpdate(e.ctx, e.admin, task.ID, TaskPatch{Title: ptr("")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.tasks.AdminUpdate(e.ctx, identityOf(alice), task.ID, TaskPatch{Title: ptr("mine")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.tasks.AdminUpdate(e.ctx, e.admin, 404, TaskPatch{Title: ptr("gone")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, e.tasks.DeleteTask(e.ctx, identityOf(alice), task.ID), ErrForbidden)
	require.NoError(t, e.tasks.DeleteTask(e.ctx, e.admin, task.ID))
	assert.ErrorIs(t, e.tasks.DeleteTask(e.ctx, e.admin, task.ID), ErrNotFound)
}

func TestListTasksVisibility(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addUser(t, 3, "Bob", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	for i, assignee := range []uint{2, 3, 2, 3, 3} {
		e.clock.advance(time.Minute)
		_, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: fmt.Sprintf("t%d", i), AssignedUserID: assignee, CategoryID: 1})
		require.NoError(t, err)
	}

	seq, err := e.tasks.ListTasks(e.ctx, identityOf(alice), TaskQuery{})
	require.NoError(t, err)
	n := 0
	for s, err := range seq {
		require.NoError(t, err)
		require.NotNil(t, s.AssignedUserID)
		assert.EqualValues(t, 2, *s.AssignedUserID)
		n++
	}
	assert.Equal(t, 2, n)

	seq, err = e.tasks.ListTasks(e.ctx, identityOf(alice), TaskQuery{AssignedUserID: ptr(uint(3))})
	require.NoError(t, err)
	for range seq {
		t.Fatal("a user must never see tasks assigned to someone else")
	}

	seq, err = e.tasks.ListTasks(e.ctx, e.admin, TaskQuery{SortBy: "TITLE", SortOrder: "DESC"})
	require.NoError(t, err)
	var got []string
	for s, err := range seq {
		require.NoError(t, err)
		got = append(got, s.Title)
	}
	assert.Equal(t, []string{"t4", "t3", "t2", "t1", "t0"}, got)
}

func TestListTasksRejectsUnknownStatus(t *testing.T) {
	e := newEnv(t)
	_, err := e.tasks.ListTasks(e.ctx, e.admin, TaskQuery{Status: "Finished"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Invalid status 'Finished'.")

	_, err = e.tasks.ListTasks(e.ctx, e.admin, TaskQuery{Status: "inprogress"})
	assert.NoError(t, err)
}

func TestTaskQueryFilter(t *testing.T) {
	user := Identity{UserID: 5, Role: model.RoleUser}

	f, err := TaskQuery{SortBy: "nonsense", SortOrder: "asc"}.filterFor(user)
	require.NoError(t, err)
	assert.Equal(t, repository.SortField(""), f.SortBy, "unknown sort key falls back to newest first")
	require.NotNil(t, f.VisibleTo)
	assert.EqualValues(t, 5, *f.VisibleTo)

	f, err = TaskQuery{SortBy: "deadline", SortOrder: "sideways"}.filterFor(user)
	require.NoError(t, err)
	assert.Equal(t, repository.SortDeadline, f.SortBy)
	assert.False(t, f.Desc)

	f, err = TaskQuery{SortBy: "updatedAt", SortOrder: "Desc"}.filterFor(Identity{UserID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, repository.SortUpdatedAt, f.SortBy)
	assert.True(t, f.Desc)
	assert.Nil(t, f.VisibleTo)
}

func TestDashboardIsZeroFilledAndScoped(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addUser(t, 3, "Bob", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	for _, assignee := range []uint{2, 3, 3} {
		_, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "t", AssignedUserID: assignee, CategoryID: 1})
		require.NoError(t, err)
	}

	d, err := e.tasks.Dashboard(e.ctx, identityOf(alice))
	require.NoError(t, err)
	assert.Len(t, d.StatusCounts, len(model.Statuses))
	assert.EqualValues(t, 1, d.StatusCounts[model.StatusNew])
	assert.EqualValues(t, 0, d.StatusCounts[model.StatusCancelled])
	assert.EqualValues(t, 1, d.TotalTasks)

	d, err = e.tasks.Dashboard(e.ctx, e.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, d.TotalTasks)
}

func TestAdminListsAndHistory(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)
	for _, st := range []model.TaskStatus{model.StatusInProgress, model.StatusCompleted} {
		e.clock.advance(time.Minute)
		_, err := e.tasks.UpdateStatus(e.ctx, identityOf(alice), task.ID, st)
		require.NoError(t, err)
	}

	history, err := e.tasks.History(e.ctx, e.admin)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusCompleted, history[0].NewStatus, "newest first")
	require.NotNil(t, history[0].Task)
	assert.Equal(t, "Deploy", history[0].Task.Title)
	require.NotNil(t, history[0].ChangedByUser)
	assert.Equal(t, "Alice", history[0].ChangedByUser.Name)

	_, err = e.tasks.History(e.ctx, identityOf(alice))
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := e.tasks.ListAllTasks(e.ctx, e.admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, e.categories.Delete(e.ctx, e.admin, 1))
	unassigned, err := e.tasks.ListUnassignedTasks(e.ctx, e.admin)
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Nil(t, unassigned[0].CategoryID)
}

func TestCategoryService(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)

	created, err := e.categories.Create(e.ctx, e.admin, "  Ops ")
	require.NoError(t, err)
	assert.Equal(t, "Ops", created.Name)

	_, err = e.categories.Create(e.ctx, e.admin, "Ops")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = e.categories.Create(e.ctx, e.admin, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.categories.Create(e.ctx, e.admin, strings.Repeat("c", 101))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.categories.Create(e.ctx, identityOf(alice), "Dev")
	assert.ErrorIs(t, err, ErrForbidden)

	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: created.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, e.categories.Delete(e.ctx, identityOf(alice), created.ID), ErrForbidden)
	require.NoError(t, e.categories.Delete(e.ctx, e.admin, created.ID))
	assert.ErrorIs(t, e.categories.Delete(e.ctx, e.admin, created.ID), ErrNotFound)

	stored, err := e.taskRepo.FindByID(e.ctx, task.ID)
	require.NoError(t, err, "deleting a category keeps its tasks")
	assert.Nil(t, stored.CategoryID)

	list, err := e.categories.List(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUserService(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)

	users, err := e.users.List(e.ctx, e.admin)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.EqualValues(t, 1, users[1].TaskCount)

	_, err = e.users.List(e.ctx, identityOf(alice))
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, e.users.Delete(e.ctx, e.admin, e.admin.UserID), ErrValidation)
	assert.ErrorIs(t, e.users.Delete(e.ctx, identityOf(alice), 1), ErrForbidden)
	require.NoError(t, e.users.Delete(e.ctx, e.admin, alice.ID))
	assert.ErrorIs(t, e.users.Delete(e.ctx, e.admin, alice.ID), ErrNotFound)

	stored, err := e.taskRepo.FindByID(e.ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedUserID)
}

func TestNotificationFailureDoesNotFailUpdate(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	e.notifier.err = fmt.Errorf("telegram down")

	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "<b>Deploy</b>", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)
	_, err = e.tasks.UpdateStatus(e.ctx, identityOf(alice), task.ID, model.StatusOnHold)
	require.NoError(t, err)

	require.Len(t, e.notifier.messages, 2)
	assert.Contains(t, e.notifier.messages[0], "&lt;b&gt;Deploy&lt;/b&gt;")
	assert.Contains(t, e.notifier.messages[1], "New → OnHold")
}

func TestAuthService(t *testing.T) {
	e := newEnv(t)
	tokens := auth.NewJWTService([]byte("test-secret"), "task-manager", "", time.Hour)
	svc := NewAuthService(e.userRepo, auth.BcryptHasher{Cost: 4}, tokens)

	user, err := svc.Register(e.ctx, RegisterInput{Name: "Carol", Email: " Carol@Example.com ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	_, err = svc.Register(e.ctx, RegisterInput{Name: "Carol", Email: "carol@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Register(e.ctx, RegisterInput{Name: "", Email: "d@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(e.ctx, RegisterInput{Name: "Dan", Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(e.ctx, RegisterInput{Name: strings.Repeat("n", 51), Email: "d@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Login(e.ctx, "carol@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Login(e.ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	res, err := svc.Login(e.ctx, "CAROL@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	id, err := svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: user.ID, Email: "carol@example.com", Role: model.RoleUser}, id)

	_, err = svc.Authenticate("garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	admin, err := svc.SeedAdmin(e.ctx, "", "carol@example.com", "n3w")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	_, err = svc.Login(e.ctx, "carol@example.com", "n3w")
	assert.NoError(t, err)
}

func TestDeadlineSortAcrossOffsets(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")

	// 10:00+05:00 is 05:00Z, earlier than 08:00Z despite the larger wall clock.
	early := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	later := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	a, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "A", Deadline: &early, AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)
	b, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "B", Deadline: &later, AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, a.Deadline.Location())

	order := func(q TaskQuery) []uint {
		seq, err := e.tasks.ListTasks(e.ctx, e.admin, q)
		require.NoError(t, err)
		var ids []uint
		for task, err := range seq {
			require.NoError(t, err)
			ids = append(ids, task.ID)
		}
		return ids
	}
	assert.Equal(t, []uint{a.ID, b.ID}, order(TaskQuery{SortBy: "deadline", SortOrder: "asc"}))
	assert.Equal(t, []uint{b.ID, a.ID}, order(TaskQuery{SortBy: "deadline", SortOrder: "desc"}))

	// Move B to 09:00-04:00 (13:00Z); it still sorts after A.
	west := time.Date(2024, 6, 1, 9, 0, 0, 0, time.FixedZone("UTC-4", -4*3600))
	updated, err := e.tasks.AdminUpdate(e.ctx, e.admin, b.ID, TaskPatch{Deadline: &west})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, updated.Deadline.Location())
	assert.True(t, west.Equal(*updated.Deadline))

	// A moves to 11:00+01:00 (10:00Z), before B's 13:00Z.
	east := time.Date(2024, 6, 1, 11, 0, 0, 0, time.FixedZone("UTC+1", 3600))
	_, err = e.tasks.AdminUpdate(e.ctx, e.admin, a.ID, TaskPatch{Deadline: &east})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, order(TaskQuery{SortBy: "deadline"}))

	open, err := e.taskRepo.ListOpenWithDeadline(e.ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, a.ID, open[0].ID)
	assert.Equal(t, b.ID, open[1].ID)
}

// stalledNotifier blocks until its context ends, like an unreachable chat API.
type stalledNotifier struct{ calls int }

func (n *stalledNotifier) Notify(ctx context.Context, _ string) error {
	n.calls++
	<-ctx.Done()
	return ctx.Err()
}

func TestStalledNotifierDoesNotHoldUpdate(t *testing.T) {
	e := newEnv(t)
	alice := e.addUser(t, 2, "Alice", model.RoleUser)
	e.addCategory(t, 1, "Ops")
	task, err := e.tasks.CreateTask(e.ctx, e.admin, CreateTaskInput{Title: "Deploy", AssignedUserID: 2, CategoryID: 1})
	require.NoError(t, err)

	stalled := &stalledNotifier{}
	e.tasks.notifier = stalled
	e.tasks.notifyTimeout = 20 * time.Millisecond

	start := time.Now()
	updated, err := e.tasks.UpdateStatus(e.ctx, identityOf(alice), task.ID, model.StatusInProgress)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	assert.Equal(t, 1, stalled.calls)
	assert.EqualValues(t, 1, e.historyCount(t, task.ID))
}
