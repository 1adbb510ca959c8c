package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/http/response"
	"github.com/kamishop/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitReviewRequest 游客提交评价请求
type SubmitReviewRequest struct {
	ProductID      uint                  `json:"product_id" binding:"required"`
	Author         string                `json:"author" binding:"required"`
	Rating         int                   `json:"rating" binding:"required"`
	Content        string                `json:"content"`
	CaptchaPayload CaptchaPayloadRequest `json:"captcha_payload"`
}

// GetProductReviews 获取商品已通过的评价
func (h *Handler) GetProductReviews(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("product_id"))
	if productID == "" {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	items, total, err := h.ReviewService.ListPublic(productID, page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "商品不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "评价列表获取失败", err)
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

// SubmitReview 游客提交评价，进入待审核状态
func (h *Handler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	if h.CaptchaService != nil {
		if captchaErr := h.CaptchaService.Verify(constants.CaptchaSceneGuestReview, req.CaptchaPayload.toServicePayload()); captchaErr != nil {
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

	review, err := h.ReviewService.Submit(c.Request.Context(), service.SubmitReviewInput{
		ProductID: strconv.FormatUint(uint64(req.ProductID), 10),
		Author:    req.Author,
		Rating:    req.Rating,
		Content:   req.Content,
	})
	if err != nil {
		respondWithMappedError(c, err, reviewSubmitErrorRules, response.CodeInternal, "评价提交失败")
		return
	}

	response.Success(c, review)
}
