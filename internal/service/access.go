package service

import "task-manager/internal/model"

// Identity is the authenticated caller, as carried by the bearer token.
type Identity struct {
	UserID uint
	Email  string
	Role   model.Role
}

func (id Identity) IsAdmin() bool {
	return id.Role == model.RoleAdmin
}

// visibleTo returns the assignee restriction for list queries, nil for admins.
func (id Identity) visibleTo() *uint {
	if id.IsAdmin() {
		return nil
	}
	uid := id.UserID
	return &uid
}

type capability int

const (
	capAdmin capability = iota
	capAssigneeOrAdmin
)

// authorize is the single rights check used by every task operation. task may be
// nil for capabilities that do not depend on ownership.
func authorize(id Identity, need capability, task *model.Task) error {
	if id.IsAdmin() {
		return nil
	}
	switch need {
	case capAssigneeOrAdmin:
		if task != nil && task.AssignedUserID != nil && *task.AssignedUserID == id.UserID {
			return nil
		}
		return newError(ErrForbidden, "you may only access tasks assigned to you")
	default:
		return newError(ErrForbidden, "admin role required")
	}
}
