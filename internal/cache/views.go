package cache

import (
	"context"
	"time"

	"github.com/kamishop/internal/constants"
)

// ViewTTL 视图快照的缓存时长。
// 快照只是加速读路径，写路径的失效广播才是一致性的来源。
const ViewTTL = 5 * time.Minute

// DashboardViewKey 管理后台仪表盘视图键
func DashboardViewKey() string {
	return constants.ViewKeyAdminDashboard
}

// CardDetailViewKey 指定商品的卡密管理视图键
func CardDetailViewKey(productID string) string {
	return constants.ViewKeyAdminCardPrefix + productID
}

// StorefrontViewKey 店面首页视图键
func StorefrontViewKey() string {
	return constants.ViewKeyStorefrontRoot
}

// InvalidateProductViews 商品或其卡密库存变更后的视图失效广播。
// 固定刷新三个视图：管理仪表盘、该商品的卡密管理页、店面首页。
// 尽力删除全部键，返回遇到的第一个错误；调用方已完成持久化，
// 失效失败只应记录日志，不回滚业务。
func InvalidateProductViews(ctx context.Context, productID string) error {
	var firstErr error
	keys := []string{
		DashboardViewKey(),
		CardDetailViewKey(productID),
		StorefrontViewKey(),
	}
	for _, key := range keys {
		if err := Del(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InvalidateSiteViews 与具体商品无关的变更（分类、店铺设置、评价状态）
// 刷新仪表盘与店面首页两个视图。
func InvalidateSiteViews(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{DashboardViewKey(), StorefrontViewKey()} {
		if err := Del(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
