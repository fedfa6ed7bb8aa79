package service

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

const maxCategoryNameLength = 100

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Create(ctx context.Context, id Identity, name string) (*model.Category, error) {
	if err := authorize(id, capAdmin, nil); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrValidation, "Category name is required.")
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLength {
		return nil, newError(ErrValidation, "Category name must be at most %d characters.", maxCategoryNameLength)
	}

	taken, err := s.repo.NameTaken(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(ErrConflict, "Category already exists.")
	}

	category := model.Category{Name: name}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, translateStoreError(err, "Category already exists.")
	}
	log.Printf("[info] category created id=%d name=%q", category.ID, category.Name)
	return &category, nil
}

// Delete removes a category; its tasks stay and become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, id Identity, categoryID uint) error {
	if err := authorize(id, capAdmin, nil); err != nil {
		return err
	}
	detached, err := s.repo.Delete(ctx, categoryID)
	if err != nil {
		return translateStoreError(err, "Category with Id %d not found.", categoryID)
	}
	log.Printf("[info] category deleted id=%d uncategorized_tasks=%d", categoryID, detached)
	return nil
}
