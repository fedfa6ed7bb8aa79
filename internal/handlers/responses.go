package handlers

import (
	"time"

	"task-manager/internal/model"
)

type userRef struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type categoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type taskSummaryResponse struct {
	ID               uint             `json:"id"`
	Title            string           `json:"title"`
	Status           model.TaskStatus `json:"status"`
	Deadline         *time.Time       `json:"deadline"`
	AssignedUserID   *uint            `json:"assignedUserId"`
	AssignedUserName *string          `json:"assignedUserName"`
	CategoryID       *uint            `json:"categoryId"`
	CategoryName     *string          `json:"categoryName"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type historyEntryResponse struct {
	ID              uint             `json:"id"`
	OldStatus       model.TaskStatus `json:"oldStatus"`
	NewStatus       model.TaskStatus `json:"newStatus"`
	ChangedAt       time.Time        `json:"changedAt"`
	ChangedByUserID *uint            `json:"changedByUserId"`
}

type taskResponse struct {
	ID           uint              `json:"id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description"`
	Status       model.TaskStatus  `json:"status"`
	Deadline     *time.Time        `json:"deadline"`
	AssignedUser *userRef          `json:"assignedUser"`
	Category     *categoryResponse `json:"category"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// taskDetailResponse is a task with its status history, oldest change first.
type taskDetailResponse struct {
	taskResponse
	History []historyEntryResponse `json:"history"`
}

type auditEntryResponse struct {
	ID        uint             `json:"id"`
	TaskID    uint             `json:"taskId"`
	TaskTitle string           `json:"taskTitle"`
	OldStatus model.TaskStatus `json:"oldStatus"`
	NewStatus model.TaskStatus `json:"newStatus"`
	ChangedAt time.Time        `json:"changedAt"`
	ChangedBy *userRef         `json:"changedBy"`
}

type userSummaryResponse struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	TaskCount int64      `json:"taskCount"`
}

func newTaskSummaryResponse(s model.TaskSummary) taskSummaryResponse {
	return taskSummaryResponse{
		ID:               s.ID,
		Title:            s.Title,
		Status:           s.Status,
		Deadline:         s.Deadline,
		AssignedUserID:   s.AssignedUserID,
		AssignedUserName: s.AssignedUserName,
		CategoryID:       s.CategoryID,
		CategoryName:     s.CategoryName,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func newTaskResponse(t *model.Task) taskResponse {
	out := taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Deadline:    t.Deadline,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedUser != nil {
		out.AssignedUser = &userRef{ID: t.AssignedUser.ID, Name: t.AssignedUser.Name, Email: t.AssignedUser.Email}
	}
	if t.Category != nil {
		out.Category = &categoryResponse{ID: t.Category.ID, Name: t.Category.Name}
	}
	return out
}

func newTaskDetailResponse(t *model.Task) taskDetailResponse {
	out := taskDetailResponse{
		taskResponse: newTaskResponse(t),
		History:      make([]historyEntryResponse, 0, len(t.History)),
	}
	for _, h := range t.History {
		out.History = append(out.History, historyEntryResponse{
			ID:              h.ID,
			OldStatus:       h.OldStatus,
			NewStatus:       h.NewStatus,
			ChangedAt:       h.ChangedAt,
			ChangedByUserID: h.ChangedByUserID,
		})
	}
	return out
}

func newTaskListResponse(tasks []model.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, newTaskResponse(&tasks[i]))
	}
	return out
}

func newAuditEntryResponse(h model.TaskHistory) auditEntryResponse {
	out := auditEntryResponse{
		ID:        h.ID,
		TaskID:    h.TaskID,
		OldStatus: h.OldStatus,
		NewStatus: h.NewStatus,
		ChangedAt: h.ChangedAt,
	}
	if h.Task != nil {
		out.TaskTitle = h.Task.Title
	}
	if h.ChangedByUser != nil {
		out.ChangedBy = &userRef{ID: h.ChangedByUser.ID, Name: h.ChangedByUser.Name, Email: h.ChangedByUser.Email}
	}
	return out
}
