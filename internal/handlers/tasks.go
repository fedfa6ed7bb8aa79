package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

type CreateTaskRequest struct {
	Title          string           `json:"title"`
	Description    *string          `json:"description"`
	Status         model.TaskStatus `json:"status"`
	Deadline       *time.Time       `json:"deadline"`
	AssignedUserID uint             `json:"assignedUserId" binding:"required"`
	CategoryID     uint             `json:"categoryId"     binding:"required"`
}

type UpdateStatusRequest struct {
	Status *model.TaskStatus `json:"status" binding:"required"`
}

// AdminUpdateRequest mirrors service.TaskPatch; omitted fields stay untouched.
type AdminUpdateRequest struct {
	Title          *string           `json:"title"`
	Description    *string           `json:"description"`
	Status         *model.TaskStatus `json:"status"`
	Deadline       *time.Time        `json:"deadline"`
	AssignedUserID *uint             `json:"assignedUserId"`
	CategoryID     *uint             `json:"categoryId"`
}

type TaskHandler struct {
	Tasks TaskService
}

func NewTaskHandler(tasks TaskService) *TaskHandler {
	return &TaskHandler{Tasks: tasks}
}

// List serves GET /tasks?status&assignedUserId&categoryId&sortBy&sortOrder.
func (h *TaskHandler) List(c *gin.Context) {
	assignee, err := optionalID(c, "assignedUserId")
	if err != nil {
		badRequest(c, err)
		return
	}
	category, err := optionalID(c, "categoryId")
	if err != nil {
		badRequest(c, err)
		return
	}

	seq, err := h.Tasks.ListTasks(c.Request.Context(), identityFrom(c), service.TaskQuery{
		Status:         c.Query("status"),
		AssignedUserID: assignee,
		CategoryID:     category,
		SortBy:         c.Query("sortBy"),
		SortOrder:      c.Query("sortOrder"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]taskSummaryResponse, 0)
	for summary, err := range seq {
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, newTaskSummaryResponse(summary))
	}
	c.JSON(http.StatusOK, out)
}

func (h *TaskHandler) Get(c *gin.Context) {
	taskID, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	task, err := h.Tasks.GetTask(c.Request.Context(), identityFrom(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskDetailResponse(task))
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.Tasks.CreateTask(c.Request.Context(), identityFrom(c), service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Deadline:       req.Deadline,
		AssignedUserID: req.AssignedUserID,
		CategoryID:     req.CategoryID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": task.ID, "title": task.Title})
}

// UpdateStatus serves PUT /tasks/{id} for the assignee or an admin.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	taskID, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.Tasks.UpdateStatus(c.Request.Context(), identityFrom(c), taskID, *req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        task.ID,
		"status":    task.Status,
		"updatedAt": task.UpdatedAt,
	})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	taskID, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Tasks.DeleteTask(c.Request.Context(), identityFrom(c), taskID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) AdminList(c *gin.Context) {
	tasks, err := h.Tasks.ListAllTasks(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

func (h *TaskHandler) AdminUnassigned(c *gin.Context) {
	tasks, err := h.Tasks.ListUnassignedTasks(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(tasks))
}

func (h *TaskHandler) AdminUpdate(c *gin.Context) {
	taskID, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.Tasks.AdminUpdate(c.Request.Context(), identityFrom(c), taskID, service.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Deadline:       req.Deadline,
		AssignedUserID: req.AssignedUserID,
		CategoryID:     req.CategoryID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        task.ID,
		"status":    task.Status,
		"updatedAt": task.UpdatedAt,
	})
}

// History serves GET /admin/task-history, newest change first.
func (h *TaskHandler) History(c *gin.Context) {
	entries, err := h.Tasks.History(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newAuditEntryResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

func (h *TaskHandler) Dashboard(c *gin.Context) {
	d, err := h.Tasks.Dashboard(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"statusCounts": d.StatusCounts,
		"totalTasks":   d.TotalTasks,
	})
}
