package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// UserSummary is a user row plus the number of tasks assigned to it.
type UserSummary struct {
	ID        uint
	Name      string
	Email     string
	Role      model.Role
	TaskCount int64
}

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListWithTaskCounts returns every user ordered by id.
func (r *UserRepository) ListWithTaskCounts(ctx context.Context) ([]UserSummary, error) {
	var users []UserSummary
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Select("users.id, users.name, users.email, users.role, " +
			"(SELECT COUNT(*) FROM tasks WHERE tasks.assigned_user_id = users.id) AS task_count").
		Order("users.id ASC").
		Scan(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpsertAdmin finds or creates the account with the given email and makes it an admin.
func (r *UserRepository) UpsertAdmin(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"name":          name,
			"password_hash": passwordHash,
			"role":          model.RoleAdmin,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update admin: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         model.RoleAdmin,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find admin: %w", err)
	}
}

// Delete removes a user. Their tasks become unassigned and history rows keep no author.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("assigned_user_id = ?", id).
			Update("assigned_user_id", nil).Error; err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}
		if err := tx.Model(&model.TaskHistory{}).Where("changed_by_user_id = ?", id).
			Update("changed_by_user_id", nil).Error; err != nil {
			return fmt.Errorf("detach history: %w", err)
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
