package service

import (
	"strings"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// TaskQuery holds the raw list parameters of GET /tasks.
type TaskQuery struct {
	Status         string
	AssignedUserID *uint
	CategoryID     *uint
	SortBy         string
	SortOrder      string
}

var sortFields = map[string]repository.SortField{
	"title":     repository.SortTitle,
	"deadline":  repository.SortDeadline,
	"createdat": repository.SortCreatedAt,
	"updatedat": repository.SortUpdatedAt,
	"status":    repository.SortStatus,
	"category":  repository.SortCategory,
}

// filterFor restricts q to what id may see. An unknown or empty sortBy falls back
// to newest first and ignores sortOrder.
func (q TaskQuery) filterFor(id Identity) (repository.TaskFilter, error) {
	f := repository.TaskFilter{
		VisibleTo:      id.visibleTo(),
		AssignedUserID: q.AssignedUserID,
		CategoryID:     q.CategoryID,
	}

	if raw := strings.TrimSpace(q.Status); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			return f, newError(ErrValidation, "Invalid status '%s'.", raw)
		}
		f.Status = &status
	}

	field, ok := sortFields[strings.ToLower(strings.TrimSpace(q.SortBy))]
	if !ok {
		return f, nil
	}
	f.SortBy = field
	f.Desc = strings.EqualFold(strings.TrimSpace(q.SortOrder), "desc")
	return f, nil
}
