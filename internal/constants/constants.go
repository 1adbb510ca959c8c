package constants

import "time"

// 卡密批量导入常量
const (
	// CardKeyInsertChunkSize 写入端单条 INSERT 的分片大小，受绑定参数上限约束
	CardKeyInsertChunkSize = 200
)

// 卡密预留窗口常量
const (
	// CardKeyReservationWindow 预留后禁止删除的宽限期
	CardKeyReservationWindow = 60 * time.Second
)

// 评价状态常量
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusHidden   = "hidden"
)

// 评价评分边界常量
const (
	ReviewRatingMin = 1
	ReviewRatingMax = 5
)

// 商品名称长度上限
const (
	ProductNameMaxLength = 120
)

// 商品库存状态常量
const (
	ProductStockStatusInStock    = "in_stock"
	ProductStockStatusLowStock   = "low_stock"
	ProductStockStatusOutOfStock = "out_of_stock"
)

// 低库存阈值
const (
	ProductLowStockThreshold = 10
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin       = "login"
	CaptchaSceneGuestReview = "guest_review"
)

// 队列常量
const (
	QueueDefault            = "default"
	TaskCardKeyRelease      = "card_key:release_reservation"
	TaskCacheViewInvalidate = "cache:view_invalidate"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ks"
)

// 缓存视图键常量
const (
	ViewKeyAdminDashboard  = "view:/admin"
	ViewKeyAdminCardPrefix = "view:/admin/cards/"
	ViewKeyStorefrontRoot  = "view:/"
)

// 设置键常量
const (
	SettingKeySiteConfig         = "site_config"
	SettingFieldSiteCurrency     = "currency"
	SettingFieldSiteName         = "site_name"
	SettingFieldSiteAnnouncement = "announcement"
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)

// 预留令牌长度常量
const (
	ReservationTokenBytes = 16
)

// 导出格式常量
const (
	ExportFormatCSV = "csv"
	ExportFormatTXT = "txt"
)
