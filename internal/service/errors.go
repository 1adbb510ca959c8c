package service

import "errors"

// 业务哨兵错误，handler 层统一用 errors.Is 匹配后映射响应码
var (
	ErrUnauthorized         = errors.New("调用者不在管理员白名单内")
	ErrNotFound             = errors.New("记录不存在")
	ErrNameRequired         = errors.New("名称不能为空")
	ErrNameTooLong          = errors.New("名称长度超出上限")
	ErrNoCards              = errors.New("没有可导入的卡密")
	ErrCardKeyUsed          = errors.New("卡密已被使用")
	ErrCardKeyReserved      = errors.New("卡密正在兑换中")
	ErrCardKeyUnavailable   = errors.New("没有可用卡密")
	ErrReservationInvalid   = errors.New("预留令牌无效或已过期")
	ErrSlugExists           = errors.New("slug 已被占用")
	ErrCategoryInvalid      = errors.New("分类不存在")
	ErrCategoryInUse        = errors.New("分类下仍有商品")
	ErrPriceInvalid         = errors.New("价格必须大于 0")
	ErrRatingInvalid        = errors.New("评分超出范围")
	ErrReviewStatusInvalid  = errors.New("评价状态无效")
	ErrInvalidCredentials   = errors.New("用户名或密码错误")
	ErrInvalidPassword      = errors.New("原密码错误")
	ErrWeakPassword         = errors.New("密码强度不足")
	ErrCaptchaRequired      = errors.New("需要验证码")
	ErrCaptchaInvalid       = errors.New("验证码错误")
	ErrCaptchaConfigInvalid = errors.New("验证码配置无效")
	ErrUploadTypeInvalid    = errors.New("文件类型不允许")
	ErrUploadTooLarge       = errors.New("文件大小超出限制")
	ErrExportFormatInvalid  = errors.New("导出格式不支持")
)
