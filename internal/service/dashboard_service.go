package service

import (
	"context"
	"time"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/repository"
)

const dashboardLowStockLimit = 5

// DashboardService 仪表盘服务
// 说明：聚合后台首页的商品、卡密与评价数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	GeneratedAt string                  `json:"generated_at"`
	KPI         DashboardKPI            `json:"kpi"`
	LowStock    []DashboardLowStockItem `json:"low_stock"`
	Alerts      []DashboardAlertItem    `json:"alerts"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	ProductsTotal     int64 `json:"products_total"`
	ProductsActive    int64 `json:"products_active"`
	Categories        int64 `json:"categories"`
	CardKeysTotal     int64 `json:"card_keys_total"`
	CardKeysAvailable int64 `json:"card_keys_available"`
	CardKeysUsed      int64 `json:"card_keys_used"`
	ReviewsPending    int64 `json:"reviews_pending"`
}

// DashboardLowStockItem 低库存商品项
type DashboardLowStockItem struct {
	ProductID uint   `json:"product_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Available int64  `json:"available"`
}

// DashboardAlertItem 仪表盘告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// GetOverview 获取仪表盘总览。
// 结果缓存在后台首页视图键下，卡密和商品写路径负责失效。
func (s *DashboardService) GetOverview(ctx context.Context, forceRefresh bool) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	cacheKey := cache.DashboardViewKey()
	if !forceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview()
	if err != nil {
		return nil, err
	}
	lowStockRows, err := s.repo.GetLowStockProducts(constants.ProductLowStockThreshold, dashboardLowStockLimit)
	if err != nil {
		return nil, err
	}

	lowStock := make([]DashboardLowStockItem, 0, len(lowStockRows))
	var outOfStock, lowButInStock int64
	for _, row := range lowStockRows {
		lowStock = append(lowStock, DashboardLowStockItem{
			ProductID: row.ProductID,
			Slug:      row.Slug,
			Name:      row.Name,
			Available: row.Available,
		})
		if row.Available <= 0 {
			outOfStock++
		} else {
			lowButInStock++
		}
	}

	response := &DashboardOverviewResponse{
		GeneratedAt: time.Now().Format(time.RFC3339),
		KPI: DashboardKPI{
			ProductsTotal:     overview.ProductsTotal,
			ProductsActive:    overview.ProductsActive,
			Categories:        overview.Categories,
			CardKeysTotal:     overview.CardKeysTotal,
			CardKeysAvailable: overview.CardKeysAvailable,
			CardKeysUsed:      overview.CardKeysUsed,
			ReviewsPending:    overview.ReviewsPending,
		},
		LowStock: lowStock,
		Alerts:   buildDashboardAlerts(outOfStock, lowButInStock, overview.ReviewsPending),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, cache.ViewTTL)
	return response, nil
}

func buildDashboardAlerts(outOfStock, lowStock, reviewsPending int64) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 3)
	if outOfStock > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "out_of_stock_products", Level: "error", Value: outOfStock})
	}
	if lowStock > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "low_stock_products", Level: "warning", Value: lowStock})
	}
	if reviewsPending > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "reviews_pending", Level: "warning", Value: reviewsPending})
	}
	return alerts
}
