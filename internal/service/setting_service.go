package service

import (
	"context"
	"strings"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/repository"
)

// SettingService 设置业务服务
type SettingService struct {
	repo repository.SettingRepository
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// GetSiteConfig 获取站点配置（合并默认值）
func (s *SettingService) GetSiteConfig() (map[string]interface{}, error) {
	data := map[string]interface{}{
		constants.SettingFieldSiteName:         "",
		constants.SettingFieldSiteAnnouncement: "",
		constants.SettingFieldSiteCurrency:     constants.SiteCurrencyDefault,
	}

	setting, err := s.repo.GetByKey(constants.SettingKeySiteConfig)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return data, nil
	}

	for k, v := range setting.ValueJSON {
		data[k] = v
	}
	return data, nil
}

// GetByKey 获取设置
func (s *SettingService) GetByKey(key string) (models.JSON, error) {
	setting, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}
	return setting.ValueJSON, nil
}

// Update 设置值
func (s *SettingService) Update(ctx context.Context, key string, value map[string]interface{}) (models.JSON, error) {
	normalized := normalizeSettingValueByKey(key, value)

	setting, err := s.repo.Upsert(key, normalized)
	if err != nil {
		return nil, err
	}
	if err := cache.InvalidateSiteViews(ctx); err != nil {
		logger.Warnw("setting_invalidate_views_failed", "error", err)
	}
	return setting.ValueJSON, nil
}

// GetSiteCurrency 获取站点货币，未配置时回退默认值
func (s *SettingService) GetSiteCurrency() string {
	if s == nil {
		return constants.SiteCurrencyDefault
	}
	value, err := s.GetByKey(constants.SettingKeySiteConfig)
	if err != nil || value == nil {
		return constants.SiteCurrencyDefault
	}
	raw, ok := value[constants.SettingFieldSiteCurrency].(string)
	if !ok {
		return constants.SiteCurrencyDefault
	}
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return constants.SiteCurrencyDefault
	}
	return currency
}

func normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	normalized := models.JSON{}
	for k, v := range value {
		normalized[k] = v
	}
	if key != constants.SettingKeySiteConfig {
		return normalized
	}

	if raw, ok := normalized[constants.SettingFieldSiteCurrency].(string); ok {
		currency := strings.ToUpper(strings.TrimSpace(raw))
		if currency == "" {
			currency = constants.SiteCurrencyDefault
		}
		normalized[constants.SettingFieldSiteCurrency] = currency
	}
	if raw, ok := normalized[constants.SettingFieldSiteName].(string); ok {
		normalized[constants.SettingFieldSiteName] = strings.TrimSpace(raw)
	}
	return normalized
}
