package repository

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-manager/internal/model"
)

// SortField names a column the task list can be ordered by.
type SortField string

const (
	SortTitle     SortField = "title"
	SortDeadline  SortField = "deadline"
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortStatus    SortField = "status"
	SortCategory  SortField = "category"
)

// TaskFilter describes one list request. Nil pointers mean "no restriction".
type TaskFilter struct {
	VisibleTo      *uint
	Status         *model.TaskStatus
	AssignedUserID *uint
	CategoryID     *uint
	SortBy         SortField
	Desc           bool
}

// TaskMutation edits a locked task in place. It reports whether the task must be
// saved and may return a history row to insert in the same transaction.
type TaskMutation func(task *model.Task) (history *model.TaskHistory, changed bool, err error)

// TaskRepository handles CRUD for tasks and their status history.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindDetail loads a task with its assignee, category and chronological history.
func (r *TaskRepository) FindDetail(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("AssignedUser").
		Preload("Category").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC, id ASC")
		}).
		First(&task, taskID).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update runs apply against the current row under a row lock. The task and the
// optional history row are written together or not at all.
func (r *TaskRepository) Update(ctx context.Context, taskID uint, apply TaskMutation) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, taskID).Error; err != nil {
			return err
		}

		history, changed, err := apply(&task)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := tx.Omit(clause.Associations).Save(&task).Error; err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		if history != nil {
			history.TaskID = task.ID
			if err := tx.Omit(clause.Associations).Create(history).Error; err != nil {
				return fmt.Errorf("append history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task together with its history.
func (r *TaskRepository) Delete(ctx context.Context, taskID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&model.TaskHistory{}).Error; err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		res := tx.Delete(&model.Task{}, taskID)
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List streams task summaries matching f. Each range over the result runs the query once.
func (r *TaskRepository) List(ctx context.Context, f TaskFilter) iter.Seq2[model.TaskSummary, error] {
	return func(yield func(model.TaskSummary, error) bool) {
		rows, err := r.listQuery(ctx, f).Rows()
		if err != nil {
			yield(model.TaskSummary{}, fmt.Errorf("list tasks: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var summary model.TaskSummary
			if err := r.db.ScanRows(rows, &summary); err != nil {
				yield(model.TaskSummary{}, fmt.Errorf("scan task: %w", err))
				return
			}
			if !yield(summary, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.TaskSummary{}, fmt.Errorf("list tasks: %w", err))
		}
	}
}

func (r *TaskRepository) listQuery(ctx context.Context, f TaskFilter) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("tasks").
		Select("tasks.id, tasks.title, tasks.status, tasks.deadline, " +
			"tasks.assigned_user_id, users.name AS assigned_user_name, " +
			"tasks.category_id, categories.name AS category_name, " +
			"tasks.created_at, tasks.updated_at").
		Joins("LEFT JOIN users ON users.id = tasks.assigned_user_id").
		Joins("LEFT JOIN categories ON categories.id = tasks.category_id")

	if f.VisibleTo != nil {
		q = q.Where("tasks.assigned_user_id = ?", *f.VisibleTo)
	}
	if f.Status != nil {
		q = q.Where("tasks.status = ?", *f.Status)
	}
	if f.AssignedUserID != nil {
		q = q.Where("tasks.assigned_user_id = ?", *f.AssignedUserID)
	}
	if f.CategoryID != nil {
		q = q.Where("tasks.category_id = ?", *f.CategoryID)
	}

	for _, expr := range orderBy(f.SortBy, f.Desc) {
		q = q.Order(expr)
	}
	return q
}

// orderBy builds a total order: the sort key, then id. Missing deadlines and
// categories go last in either direction.
func orderBy(field SortField, desc bool) []string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	var exprs []string
	switch field {
	case SortTitle:
		exprs = append(exprs, "tasks.title "+dir)
	case SortDeadline:
		exprs = append(exprs, "CASE WHEN tasks.deadline IS NULL THEN 1 ELSE 0 END ASC", "tasks.deadline "+dir)
	case SortUpdatedAt:
		exprs = append(exprs, "tasks.updated_at "+dir)
	case SortStatus:
		exprs = append(exprs, statusOrdinalExpr()+" "+dir)
	case SortCategory:
		exprs = append(exprs, "CASE WHEN categories.name IS NULL THEN 1 ELSE 0 END ASC", "categories.name "+dir)
	case SortCreatedAt:
		exprs = append(exprs, "tasks.created_at "+dir)
	default:
		exprs = append(exprs, "tasks.created_at DESC")
	}
	return append(exprs, "tasks.id ASC")
}

func statusOrdinalExpr() string {
	var b strings.Builder
	b.WriteString("CASE tasks.status")
	for i, s := range model.Statuses {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", s, i)
	}
	b.WriteString(" ELSE 99 END")
	return b.String()
}

// ListAll returns every task with assignee and category, ordered by id.
func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("AssignedUser").Preload("Category").
		Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListUnassigned returns tasks missing an assignee or a category.
func (r *TaskRepository) ListUnassigned(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("AssignedUser").Preload("Category").
		Where("assigned_user_id IS NULL OR category_id IS NULL").
		Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOpenWithDeadline returns tasks that are not completed or cancelled and have a deadline.
func (r *TaskRepository) ListOpenWithDeadline(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("AssignedUser").Preload("Category").
		Where("deadline IS NOT NULL AND status NOT IN ?", []model.TaskStatus{model.StatusCompleted, model.StatusCancelled}).
		Order("deadline ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountByStatus groups visible tasks by status. A nil visibleTo counts every task.
func (r *TaskRepository) CountByStatus(ctx context.Context, visibleTo *uint) (map[model.TaskStatus]int64, error) {
	var rows []struct {
		Status model.TaskStatus
		Count  int64
	}
	q := r.db.WithContext(ctx).Model(&model.Task{}).Select("status, COUNT(*) AS count")
	if visibleTo != nil {
		q = q.Where("assigned_user_id = ?", *visibleTo)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	counts := make(map[model.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ListHistory returns the whole audit log, newest first.
func (r *TaskRepository) ListHistory(ctx context.Context) ([]model.TaskHistory, error) {
	var history []model.TaskHistory
	if err := r.db.WithContext(ctx).Preload("Task").Preload("ChangedByUser").
		Order("changed_at DESC, id DESC").Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}
