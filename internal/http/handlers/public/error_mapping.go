package public

import (
	"errors"

	"github.com/kamishop/internal/http/response"
	"github.com/kamishop/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var reviewSubmitErrorRules = []mappedHandlerError{
	{target: service.ErrNameRequired, code: response.CodeBadRequest, msg: "昵称不能为空"},
	{target: service.ErrNameTooLong, code: response.CodeBadRequest, msg: "昵称长度超出上限"},
	{target: service.ErrRatingInvalid, code: response.CodeBadRequest, msg: "评分超出范围"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "商品不存在"},
}

var redemptionReserveErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "商品不存在"},
	{target: service.ErrCardKeyUnavailable, code: response.CodeConflict, msg: "没有可用卡密"},
}

var redemptionTokenErrorRules = []mappedHandlerError{
	{target: service.ErrReservationInvalid, code: response.CodeBadRequest, msg: "预留令牌无效或已过期"},
}
