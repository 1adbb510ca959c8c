package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/http/response"
	"github.com/kamishop/internal/service"

	"github.com/gin-gonic/gin"
)

// GetConfig 获取店面引导配置
// 响应缓存在店面根视图键下，分类、评价与设置写路径负责失效。
func (h *Handler) GetConfig(c *gin.Context) {
	cacheKey := cache.StorefrontViewKey()

	var cached map[string]interface{}
	if hit, err := cache.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	data, err := h.SettingService.GetSiteConfig()
	if err != nil {
		respondError(c, response.CodeInternal, "配置获取失败", err)
		return
	}

	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "配置获取失败", err)
		return
	}
	data["categories"] = categories

	if h.CaptchaService != nil {
		data["captcha"] = h.CaptchaService.GetPublicSetting()
	}

	_ = cache.SetJSON(c.Request.Context(), cacheKey, data, cache.ViewTTL)
	response.Success(c, data)
}

// GetCategories 获取分类列表
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "分类列表获取失败", err)
		return
	}

	response.Success(c, categories)
}

// GetProducts 获取商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	// 获取分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	// 获取筛选参数
	categoryID := c.Query("category_id")
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.ProductService.ListPublic(categoryID, search, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "商品列表获取失败", err)
		return
	}

	// 统一响应格式
	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}

// GetProductBySlug 根据 slug 获取商品详情
func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := c.Param("slug")

	product, err := h.ProductService.GetPublicBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "商品不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "商品详情获取失败", err)
		return
	}

	response.Success(c, product)
}
