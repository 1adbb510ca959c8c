package admin

import (
	"errors"
	"strconv"

	"github.com/kamishop/internal/http/response"
	"github.com/kamishop/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateReviewStatusRequest 更新评价状态请求
type UpdateReviewStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GetAdminReviews 获取评价列表 (Admin)
func (h *Handler) GetAdminReviews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := c.Query("status")
	productID := c.Query("product_id")

	items, total, err := h.ReviewService.ListAdmin(status, productID, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewStatusInvalid):
			respondError(c, response.CodeBadRequest, "评价状态无效", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "商品不存在", nil)
		default:
			respondError(c, response.CodeInternal, "评价列表获取失败", err)
		}
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

// UpdateReviewStatus 审核评价（通过/隐藏/待审）
func (h *Handler) UpdateReviewStatus(c *gin.Context) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}

	var req UpdateReviewStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	if err := h.ReviewService.UpdateStatus(c.Request.Context(), uint(rawID), req.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrReviewStatusInvalid):
			respondError(c, response.CodeBadRequest, "评价状态无效", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "评价不存在", nil)
		default:
			respondError(c, response.CodeInternal, "评价状态更新失败", err)
		}
		return
	}

	response.Success(c, nil)
}

// DeleteReview 删除评价（软删除）
func (h *Handler) DeleteReview(c *gin.Context) {
	rawID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rawID == 0 {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}

	if err := h.ReviewService.Delete(c.Request.Context(), uint(rawID)); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "评价不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "评价删除失败", err)
		return
	}

	response.Success(c, nil)
}
