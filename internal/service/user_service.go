package service

import (
	"context"
	"log"

	"task-manager/internal/repository"
)

// UserService covers the admin user-management screen.
type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context, id Identity) ([]repository.UserSummary, error) {
	if err := authorize(id, capAdmin, nil); err != nil {
		return nil, err
	}
	return s.repo.ListWithTaskCounts(ctx)
}

// Delete removes a user account. Their tasks are kept unassigned.
func (s *UserService) Delete(ctx context.Context, id Identity, userID uint) error {
	if err := authorize(id, capAdmin, nil); err != nil {
		return err
	}
	if userID == id.UserID {
		return newError(ErrValidation, "You cannot delete your own account.")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return translateStoreError(err, "User with Id %d not found.", userID)
	}
	log.Printf("[info] user deleted id=%d by=%d", userID, id.UserID)
	return nil
}
