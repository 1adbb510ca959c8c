package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cardRepo     repository.CardKeyRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, categoryRepo repository.CategoryRepository, cardRepo repository.CardKeyRepository) *ProductService {
	return &ProductService{
		repo:         repo,
		categoryRepo: categoryRepo,
		cardRepo:     cardRepo,
	}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	CategoryID  uint
	Slug        string
	Name        string
	Description string
	PriceAmount decimal.Decimal
	Images      []string
	Tags        []string
	IsActive    *bool
	SortOrder   int
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(categoryID, search string, page, pageSize int) ([]models.Product, int64, error) {
	filter := repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   categoryID,
		Search:       search,
		OnlyActive:   true,
		WithCategory: true,
	}
	products, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachStockSummaries(products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetPublicBySlug 获取公开商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug, true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	if err := s.attachStockSummary(product); err != nil {
		return nil, err
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(categoryID, search string, page, pageSize int) ([]models.Product, int64, error) {
	filter := repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   categoryID,
		Search:       search,
		OnlyActive:   false,
		WithCategory: true,
	}
	products, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachStockSummaries(products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetAdminByID 获取后台商品详情
func (s *ProductService) GetAdminByID(id string) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	if err := s.attachStockSummary(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	name, err := normalizeProductName(input.Name)
	if err != nil {
		return nil, err
	}
	priceAmount := input.PriceAmount.Round(2)
	if priceAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrPriceInvalid
	}
	if err := s.ensureCategoryExists(input.CategoryID); err != nil {
		return nil, err
	}
	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	product := models.Product{
		CategoryID:  input.CategoryID,
		Slug:        input.Slug,
		Name:        name,
		Description: input.Description,
		PriceAmount: models.NewMoneyFromDecimal(priceAmount),
		Images:      models.StringArray(input.Images),
		Tags:        models.StringArray(input.Tags),
		IsActive:    isActive,
		SortOrder:   input.SortOrder,
	}

	if err := s.repo.Create(&product); err != nil {
		return nil, err
	}
	product.CardStock = buildStockSummary(repository.StockCounts{})
	s.invalidateViews(ctx, product.ID)
	return &product, nil
}

// Update 更新商品
func (s *ProductService) Update(ctx context.Context, id string, input ProductInput) (*models.Product, error) {
	name, err := normalizeProductName(input.Name)
	if err != nil {
		return nil, err
	}
	priceAmount := input.PriceAmount.Round(2)
	if priceAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrPriceInvalid
	}
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	if err := s.ensureCategoryExists(input.CategoryID); err != nil {
		return nil, err
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	product.CategoryID = input.CategoryID
	product.Slug = input.Slug
	product.Name = name
	product.Description = input.Description
	product.PriceAmount = models.NewMoneyFromDecimal(priceAmount)
	product.Images = models.StringArray(input.Images)
	product.Tags = models.StringArray(input.Tags)
	product.SortOrder = input.SortOrder
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	if err := s.attachStockSummary(product); err != nil {
		return nil, err
	}
	s.invalidateViews(ctx, product.ID)
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(ctx context.Context, id string) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.invalidateViews(ctx, product.ID)
	return nil
}

func normalizeProductName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > constants.ProductNameMaxLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func (s *ProductService) ensureCategoryExists(categoryID uint) error {
	if categoryID == 0 {
		return ErrCategoryInvalid
	}
	category, err := s.categoryRepo.GetByID(strconv.FormatUint(uint64(categoryID), 10))
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryInvalid
	}
	return nil
}

func (s *ProductService) attachStockSummaries(products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(products))
	for i := range products {
		ids = append(ids, products[i].ID)
	}
	counts, err := s.cardRepo.CountStockByProductIDs(ids)
	if err != nil {
		return err
	}
	for i := range products {
		products[i].CardStock = buildStockSummary(counts[products[i].ID])
	}
	return nil
}

func (s *ProductService) attachStockSummary(product *models.Product) error {
	counts, err := s.cardRepo.CountStockByProductIDs([]uint{product.ID})
	if err != nil {
		return err
	}
	product.CardStock = buildStockSummary(counts[product.ID])
	return nil
}

func buildStockSummary(counts repository.StockCounts) models.CardStockSummary {
	status := constants.ProductStockStatusInStock
	switch {
	case counts.Available <= 0:
		status = constants.ProductStockStatusOutOfStock
	case counts.Available <= constants.ProductLowStockThreshold:
		status = constants.ProductStockStatusLowStock
	}
	return models.CardStockSummary{
		Total:     counts.Total,
		Available: counts.Available,
		Used:      counts.Used,
		Status:    status,
	}
}

func (s *ProductService) invalidateViews(ctx context.Context, productID uint) {
	pid := strconv.FormatUint(uint64(productID), 10)
	if err := cache.InvalidateProductViews(ctx, pid); err != nil {
		logger.Warnw("product_invalidate_views_failed", "product_id", pid, "error", err)
	}
}
