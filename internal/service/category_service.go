package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/repository"
)

// CategoryService 分类业务服务
type CategoryService struct {
	repo repository.CategoryRepository
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// CategoryInput 创建/更新分类输入
type CategoryInput struct {
	Slug      string
	Name      string
	Icon      string
	SortOrder int
}

// List 获取分类列表
func (s *CategoryService) List() ([]models.Category, error) {
	return s.repo.List()
}

// Create 创建分类
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*models.Category, error) {
	name, err := normalizeCategoryName(input.Name)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	category := models.Category{
		Slug:      input.Slug,
		Name:      name,
		Icon:      input.Icon,
		SortOrder: input.SortOrder,
	}
	if err := s.repo.Create(&category); err != nil {
		return nil, err
	}
	s.invalidateSiteViews(ctx)
	return &category, nil
}

// Update 更新分类
func (s *CategoryService) Update(ctx context.Context, id string, input CategoryInput) (*models.Category, error) {
	name, err := normalizeCategoryName(input.Name)
	if err != nil {
		return nil, err
	}
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrNotFound
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	category.Slug = input.Slug
	category.Name = name
	category.Icon = input.Icon
	category.SortOrder = input.SortOrder

	if err := s.repo.Update(category); err != nil {
		return nil, err
	}
	s.invalidateSiteViews(ctx)
	return category, nil
}

// Delete 删除分类，仍挂有商品的分类不可删除
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrNotFound
	}

	count, err := s.repo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.invalidateSiteViews(ctx)
	return nil
}

func normalizeCategoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > constants.ProductNameMaxLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func (s *CategoryService) invalidateSiteViews(ctx context.Context) {
	if err := cache.InvalidateSiteViews(ctx); err != nil {
		logger.Warnw("category_invalidate_views_failed", "error", err)
	}
}
