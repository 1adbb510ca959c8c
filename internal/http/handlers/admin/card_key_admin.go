package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kamishop/internal/http/response"
	"github.com/kamishop/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCardKeysRequest 批量录入卡密请求
type CreateCardKeysRequest struct {
	ProductID uint     `json:"product_id" binding:"required"`
	Keys      []string `json:"keys" binding:"required"`
}

// DeleteAllCardKeysRequest 清空卡密请求
type DeleteAllCardKeysRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// CreateCardKeys 批量录入卡密
func (h *Handler) CreateCardKeys(c *gin.Context) {
	operator, ok := getAdminUsername(c)
	if !ok {
		return
	}
	var req CreateCardKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	productID := strconv.FormatUint(uint64(req.ProductID), 10)
	created, err := h.CardKeyService.AddCardsBatch(c.Request.Context(), operator, productID, req.Keys)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			respondError(c, response.CodeForbidden, "调用者不在管理员白名单内", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "商品不存在", nil)
		default:
			respondError(c, response.CodeInternal, "卡密录入失败", err)
		}
		return
	}

	response.Success(c, gin.H{"created": created})
}

// ImportCardKeyText 上传文本文件导入卡密
func (h *Handler) ImportCardKeyText(c *gin.Context) {
	operator, ok := getAdminUsername(c)
	if !ok {
		return
	}
	productID := strings.TrimSpace(c.PostForm("product_id"))
	if productID == "" {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, response.CodeBadRequest, "缺少上传文件", nil)
		return
	}

	created, err := h.CardKeyService.ImportText(c.Request.Context(), service.ImportCardKeyTextInput{
		Operator:  operator,
		ProductID: productID,
		File:      file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			respondError(c, response.CodeForbidden, "调用者不在管理员白名单内", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "商品不存在", nil)
		case errors.Is(err, service.ErrNoCards):
			respondError(c, response.CodeBadRequest, "没有可导入的卡密", nil)
		default:
			respondError(c, response.CodeInternal, "卡密导入失败", err)
		}
		return
	}

	requestLog(c).Infow("card_key_import_text",
		"operator", operator,
		"product_id", productID,
		"filename", file.Filename,
		"created", created,
	)
	response.Success(c, gin.H{"created": created})
}

// GetCardKeys 获取商品卡密列表
func (h *Handler) GetCardKeys(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("product_id"))
	if productID == "" {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var used *bool
	if rawUsed := strings.TrimSpace(c.Query("used")); rawUsed != "" {
		parsed, err := strconv.ParseBool(rawUsed)
		if err != nil {
			respondError(c, response.CodeBadRequest, "参数无效", nil)
			return
		}
		used = &parsed
	}

	items, total, err := h.CardKeyService.ListCardKeys(service.ListCardKeysInput{
		ProductID: productID,
		Used:      used,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "商品不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "卡密列表获取失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, items, pagination)
}

// GetCardKeyStats 获取商品卡密库存统计
func (h *Handler) GetCardKeyStats(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("product_id"))
	if productID == "" {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}

	stats, err := h.CardKeyService.GetStats(productID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "商品不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "卡密统计获取失败", err)
		return
	}

	response.Success(c, stats)
}

// ExportCardKeys 导出商品未使用卡密
func (h *Handler) ExportCardKeys(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("product_id"))
	if productID == "" {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}
	format := c.DefaultQuery("format", "txt")

	content, filename, err := h.CardKeyService.ExportUnused(service.ExportCardKeysInput{
		ProductID: productID,
		Format:    format,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "商品不存在", nil)
		case errors.Is(err, service.ErrExportFormatInvalid):
			respondError(c, response.CodeBadRequest, "导出格式不支持", nil)
		default:
			respondError(c, response.CodeInternal, "卡密导出失败", err)
		}
		return
	}

	contentType := "text/plain; charset=utf-8"
	if strings.HasSuffix(filename, ".csv") {
		contentType = "text/csv; charset=utf-8"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, content)
}

// DeleteCardKey 删除单条卡密
// 已使用与兑换宽限期内的卡密拒绝删除，响应消息区分两种拒绝原因。
func (h *Handler) DeleteCardKey(c *gin.Context) {
	operator, ok := getAdminUsername(c)
	if !ok {
		return
	}
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}

	if err := h.CardKeyService.DeleteCard(c.Request.Context(), operator, uint(rawID)); err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			respondError(c, response.CodeForbidden, "调用者不在管理员白名单内", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "卡密不存在", nil)
		case errors.Is(err, service.ErrCardKeyUsed):
			respondError(c, response.CodeConflict, "卡密已被使用", nil)
		case errors.Is(err, service.ErrCardKeyReserved):
			respondError(c, response.CodeConflict, "卡密正在兑换中", nil)
		default:
			respondError(c, response.CodeInternal, "卡密删除失败", err)
		}
		return
	}

	response.Success(c, nil)
}

// DeleteAllCardKeys 清空商品下全部可删除卡密
func (h *Handler) DeleteAllCardKeys(c *gin.Context) {
	operator, ok := getAdminUsername(c)
	if !ok {
		return
	}
	var req DeleteAllCardKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	productID := strconv.FormatUint(uint64(req.ProductID), 10)
	deleted, err := h.CardKeyService.DeleteAllCards(c.Request.Context(), operator, productID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			respondError(c, response.CodeForbidden, "调用者不在管理员白名单内", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "商品不存在", nil)
		default:
			respondError(c, response.CodeInternal, "卡密清空失败", err)
		}
		return
	}

	requestLog(c).Infow("card_key_delete_all",
		"operator", operator,
		"product_id", productID,
		"deleted", deleted,
	)
	response.Success(c, gin.H{"deleted": deleted})
}
