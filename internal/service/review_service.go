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

const reviewAuthorMaxLength = 64

// ReviewService 商品评价服务
type ReviewService struct {
	repo        repository.ReviewRepository
	productRepo repository.ProductRepository
}

// NewReviewService 创建评价服务
func NewReviewService(repo repository.ReviewRepository, productRepo repository.ProductRepository) *ReviewService {
	return &ReviewService{
		repo:        repo,
		productRepo: productRepo,
	}
}

// SubmitReviewInput 游客提交评价输入
type SubmitReviewInput struct {
	ProductID string
	Author    string
	Rating    int
	Content   string
}

// Submit 游客提交评价，进入待审核状态
func (s *ReviewService) Submit(ctx context.Context, input SubmitReviewInput) (*models.Review, error) {
	author := strings.TrimSpace(input.Author)
	if author == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(author) > reviewAuthorMaxLength {
		return nil, ErrNameTooLong
	}
	if input.Rating < constants.ReviewRatingMin || input.Rating > constants.ReviewRatingMax {
		return nil, ErrRatingInvalid
	}

	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrNotFound
	}

	review := models.Review{
		ProductID: product.ID,
		Author:    author,
		Rating:    input.Rating,
		Content:   strings.TrimSpace(input.Content),
		Status:    constants.ReviewStatusPending,
	}
	if err := s.repo.Create(&review); err != nil {
		return nil, err
	}
	s.invalidateSiteViews(ctx)
	return &review, nil
}

// ListPublic 获取商品的已通过评价
func (s *ReviewService) ListPublic(productID string, page, pageSize int) ([]models.Review, int64, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, 0, err
	}
	if product == nil || !product.IsActive {
		return nil, 0, ErrNotFound
	}

	filter := repository.ReviewListFilter{
		Page:      page,
		PageSize:  pageSize,
		ProductID: product.ID,
		Status:    constants.ReviewStatusApproved,
	}
	return s.repo.List(filter)
}

// ListAdmin 获取后台评价列表，可按状态与商品过滤
func (s *ReviewService) ListAdmin(status, productID string, page, pageSize int) ([]models.Review, int64, error) {
	normalized, err := normalizeReviewStatus(status, true)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.ReviewListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      normalized,
		WithProduct: true,
	}
	if strings.TrimSpace(productID) != "" {
		product, err := s.productRepo.GetByID(productID)
		if err != nil {
			return nil, 0, err
		}
		if product == nil {
			return nil, 0, ErrNotFound
		}
		filter.ProductID = product.ID
	}
	return s.repo.List(filter)
}

// UpdateStatus 审核评价（通过/隐藏/退回待审）
func (s *ReviewService) UpdateStatus(ctx context.Context, id uint, status string) error {
	normalized, err := normalizeReviewStatus(status, false)
	if err != nil {
		return err
	}

	affected, err := s.repo.UpdateStatus(id, normalized)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.invalidateSiteViews(ctx)
	return nil
}

// Delete 删除评价
func (s *ReviewService) Delete(ctx context.Context, id uint) error {
	affected, err := s.repo.Delete(id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.invalidateSiteViews(ctx)
	return nil
}

// CountPending 统计待审核评价数量
func (s *ReviewService) CountPending() (int64, error) {
	return s.repo.CountByStatus(constants.ReviewStatusPending)
}

func normalizeReviewStatus(raw string, allowEmpty bool) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		if allowEmpty {
			return "", nil
		}
		return "", ErrReviewStatusInvalid
	case constants.ReviewStatusPending, constants.ReviewStatusApproved, constants.ReviewStatusHidden:
		return value, nil
	default:
		return "", ErrReviewStatusInvalid
	}
}

func (s *ReviewService) invalidateSiteViews(ctx context.Context) {
	if err := cache.InvalidateSiteViews(ctx); err != nil {
		logger.Warnw("review_invalidate_views_failed", "error", err)
	}
}
