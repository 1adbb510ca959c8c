package public

import (
	"strconv"

	"github.com/kamishop/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ReserveCardKeyRequest 预留卡密请求
type ReserveCardKeyRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// RedemptionTokenRequest 凭令牌操作预留的请求
type RedemptionTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ReserveCardKey 预留一条可用卡密并返回兑换令牌
func (h *Handler) ReserveCardKey(c *gin.Context) {
	var req ReserveCardKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	productID := strconv.FormatUint(uint64(req.ProductID), 10)
	reservation, err := h.RedemptionService.Reserve(c.Request.Context(), productID)
	if err != nil {
		respondWithMappedError(c, err, redemptionReserveErrorRules, response.CodeInternal, "卡密预留失败")
		return
	}

	response.Success(c, reservation)
}

// CompleteRedemption 凭令牌完成取码，返回卡密内容
func (h *Handler) CompleteRedemption(c *gin.Context) {
	var req RedemptionTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	card, err := h.RedemptionService.Complete(c.Request.Context(), req.Token)
	if err != nil {
		respondWithMappedError(c, err, redemptionTokenErrorRules, response.CodeInternal, "取码失败")
		return
	}

	requestLog(c).Infow("redemption_completed", "card_id", card.ID, "product_id", card.ProductID)
	response.Success(c, card)
}

// ReleaseReservation 主动放弃预留，卡密立即回到可用池
func (h *Handler) ReleaseReservation(c *gin.Context) {
	var req RedemptionTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "参数无效", err)
		return
	}

	if err := h.RedemptionService.Release(c.Request.Context(), req.Token); err != nil {
		respondWithMappedError(c, err, redemptionTokenErrorRules, response.CodeInternal, "预留释放失败")
		return
	}

	response.Success(c, nil)
}
