package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/http/response"
	"github.com/kamishop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetAdminProducts 获取商品列表 (Admin)
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	categoryID := c.Query("category_id")
	search := c.Query("search")

	products, total, err := h.ProductService.ListAdmin(categoryID, search, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "商品列表获取失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}

// GetAdminProduct 获取商品详情 (Admin)
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}

	product, err := h.ProductService.GetAdminByID(id)
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

// GetAdminCategories 获取分类列表 (Admin)
func (h *Handler) GetAdminCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "分类列表获取失败", err)
		return
	}

	response.Success(c, categories)
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username       string                `json:"username" binding:"required"`
	Password       string                `json:"password" binding:"required"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(constants.CaptchaSceneLogin, req.CaptchaPayload.toServicePayload()); captchaErr != nil {
			switch {
			case errors.Is(captchaErr, service.ErrCaptchaRequired):
				respondError(c, response.CodeBadRequest, "需要验证码", nil)
			case errors.Is(captchaErr, service.ErrCaptchaInvalid):
				respondError(c, response.CodeBadRequest, "验证码错误", nil)
			default:
				respondError(c, response.CodeInternal, "验证码校验失败", captchaErr)
			}
			return
		}
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, response.CodeUnauthorized, "用户名或密码错误", nil)
			return
		}
		respondError(c, response.CodeInternal, "登录失败", err)
		return
	}
	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改管理员密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	// 获取当前登录用户 ID
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	if err := h.AuthService.ChangePassword(id, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidPassword) {
			respondError(c, response.CodeBadRequest, "原密码错误", nil)
			return
		}
		if errors.Is(err, service.ErrWeakPassword) {
			respondError(c, response.CodeBadRequest, "密码强度不足", nil)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "用户不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "保存失败", err)
		return
	}

	response.Success(c, nil)
}

// ====================  商品管理  ====================

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	CategoryID  uint     `json:"category_id" binding:"required"`
	Slug        string   `json:"slug" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	PriceAmount float64  `json:"price_amount" binding:"required"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
	SortOrder   int      `json:"sort_order"`
}

func (r CreateProductRequest) toServiceInput() service.ProductInput {
	return service.ProductInput{
		CategoryID:  r.CategoryID,
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		PriceAmount: decimal.NewFromFloat(r.PriceAmount),
		Images:      r.Images,
		Tags:        r.Tags,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
	}
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	product, err := h.ProductService.Create(c.Request.Context(), req.toServiceInput())
	if err != nil {
		if errors.Is(err, service.ErrNameRequired) {
			respondError(c, response.CodeBadRequest, "商品名称不能为空", nil)
			return
		}
		if errors.Is(err, service.ErrNameTooLong) {
			respondError(c, response.CodeBadRequest, "商品名称长度超出上限", nil)
			return
		}
		if errors.Is(err, service.ErrPriceInvalid) {
			respondError(c, response.CodeBadRequest, "价格必须大于 0", nil)
			return
		}
		if errors.Is(err, service.ErrCategoryInvalid) {
			respondError(c, response.CodeBadRequest, "分类不存在", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已被占用", nil)
			return
		}
		respondError(c, response.CodeInternal, "商品创建失败", err)
		return
	}

	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	product, err := h.ProductService.Update(c.Request.Context(), id, req.toServiceInput())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "商品不存在", nil)
			return
		}
		if errors.Is(err, service.ErrNameRequired) {
			respondError(c, response.CodeBadRequest, "商品名称不能为空", nil)
			return
		}
		if errors.Is(err, service.ErrNameTooLong) {
			respondError(c, response.CodeBadRequest, "商品名称长度超出上限", nil)
			return
		}
		if errors.Is(err, service.ErrPriceInvalid) {
			respondError(c, response.CodeBadRequest, "价格必须大于 0", nil)
			return
		}
		if errors.Is(err, service.ErrCategoryInvalid) {
			respondError(c, response.CodeBadRequest, "分类不存在", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已被占用", nil)
			return
		}
		respondError(c, response.CodeInternal, "商品更新失败", err)
		return
	}

	response.Success(c, product)
}

// DeleteProduct 删除商品（软删除）
func (h *Handler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	if err := h.ProductService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "商品不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "商品删除失败", err)
		return
	}

	response.Success(c, nil)
}

// ====================  分类管理  ====================

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	category, err := h.CategoryService.Create(c.Request.Context(), service.CategoryInput{
		Slug:      req.Slug,
		Name:      req.Name,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, service.ErrNameRequired) {
			respondError(c, response.CodeBadRequest, "分类名称不能为空", nil)
			return
		}
		if errors.Is(err, service.ErrNameTooLong) {
			respondError(c, response.CodeBadRequest, "分类名称长度超出上限", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已被占用", nil)
			return
		}
		respondError(c, response.CodeInternal, "分类创建失败", err)
		return
	}

	response.Success(c, category)
}

// UpdateCategory 更新分类
func (h *Handler) UpdateCategory(c *gin.Context) {
	id := c.Param("id")

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	category, err := h.CategoryService.Update(c.Request.Context(), id, service.CategoryInput{
		Slug:      req.Slug,
		Name:      req.Name,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "分类不存在", nil)
			return
		}
		if errors.Is(err, service.ErrNameRequired) {
			respondError(c, response.CodeBadRequest, "分类名称不能为空", nil)
			return
		}
		if errors.Is(err, service.ErrNameTooLong) {
			respondError(c, response.CodeBadRequest, "分类名称长度超出上限", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已被占用", nil)
			return
		}
		respondError(c, response.CodeInternal, "分类更新失败", err)
		return
	}

	response.Success(c, category)
}

// DeleteCategory 删除分类（软删除）
func (h *Handler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")

	if err := h.CategoryService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrCategoryInUse) {
			respondError(c, response.CodeBadRequest, "分类下仍有商品", nil)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "分类不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "分类删除失败", err)
		return
	}

	response.Success(c, nil)
}

// ====================  设置管理  ====================

// GetSettings 获取设置
func (h *Handler) GetSettings(c *gin.Context) {
	key := c.DefaultQuery("key", constants.SettingKeySiteConfig)

	value, err := h.SettingService.GetByKey(key)
	if err != nil {
		respondError(c, response.CodeInternal, "设置获取失败", err)
		return
	}
	if value == nil {
		response.Success(c, gin.H{})
		return
	}

	response.Success(c, value)
}

// UpdateSettingsRequest 更新设置请求
type UpdateSettingsRequest struct {
	Key   string                 `json:"key" binding:"required"`
	Value map[string]interface{} `json:"value" binding:"required"`
}

// UpdateSettings 更新设置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	value, err := h.SettingService.Update(c.Request.Context(), req.Key, req.Value)
	if err != nil {
		respondError(c, response.CodeInternal, "设置保存失败", err)
		return
	}

	response.Success(c, value)
}

// ====================  文件上传  ====================

// UploadFile 文件上传
func (h *Handler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, response.CodeBadRequest, "缺少上传文件", nil)
		return
	}
	scene := c.DefaultPostForm("scene", "common")

	// 保存文件
	url, err := h.UploadService.SaveFile(file, scene)
	if err != nil {
		if errors.Is(err, service.ErrUploadTooLarge) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		if errors.Is(err, service.ErrUploadTypeInvalid) {
			respondError(c, response.CodeBadRequest, "文件类型不允许", nil)
			return
		}
		respondError(c, response.CodeInternal, "上传失败", err)
		return
	}

	response.Success(c, gin.H{
		"url":      url,
		"filename": file.Filename,
		"size":     file.Size,
	})
}
