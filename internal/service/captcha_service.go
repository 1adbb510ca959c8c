package service

import (
	"strings"
	"sync"
	"time"

	"github.com/kamishop/internal/config"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/models"

	"github.com/mojocn/base64Captcha"
)

const (
	captchaDefaultLength    = 4
	captchaDefaultWidth     = 240
	captchaDefaultHeight    = 80
	captchaDefaultExpireSec = 300
	captchaDefaultMaxStore  = 10240

	captchaCharSource = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 验证码服务
// 按场景开关决定是否需要验证码，仅封装图片验证码
type CaptchaService struct {
	cfg config.CaptchaConfig

	mu         sync.Mutex
	imageStore base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{cfg: normalizeCaptchaConfig(cfg)}
}

// IsSceneEnabled 判断场景是否需要验证码
func (s *CaptchaService) IsSceneEnabled(scene string) bool {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return false
	}
	switch scene {
	case constants.CaptchaSceneLogin:
		return s.cfg.Scenes.Login
	case constants.CaptchaSceneGuestReview:
		return s.cfg.Scenes.GuestReview
	default:
		return false
	}
}

// GetPublicSetting 获取公开可下发配置
func (s *CaptchaService) GetPublicSetting() models.JSON {
	provider := constants.CaptchaProviderNone
	if s != nil && s.cfg.Provider == constants.CaptchaProviderImage {
		provider = constants.CaptchaProviderImage
	}
	return models.JSON{
		"provider": provider,
		"scenes": map[string]bool{
			constants.CaptchaSceneLogin:       s.IsSceneEnabled(constants.CaptchaSceneLogin),
			constants.CaptchaSceneGuestReview: s.IsSceneEnabled(constants.CaptchaSceneGuestReview),
		},
	}
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}

	driver := base64Captcha.NewDriverString(
		s.cfg.Image.Height,
		s.cfg.Image.Width,
		s.cfg.Image.NoiseCount,
		s.cfg.Image.ShowLine,
		s.cfg.Image.Length,
		captchaCharSource,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.ensureImageStore())
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}

	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验验证码，未开启的场景直接放行
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload) error {
	if !s.IsSceneEnabled(scene) {
		return nil
	}

	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.ensureImageStore().Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) ensureImageStore() base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageStore == nil {
		s.imageStore = base64Captcha.NewMemoryStore(
			s.cfg.Image.MaxStore,
			time.Duration(s.cfg.Image.ExpireSeconds)*time.Second,
		)
	}
	return s.imageStore
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	if cfg.Provider != constants.CaptchaProviderImage {
		cfg.Provider = constants.CaptchaProviderNone
	}
	if cfg.Image.Length <= 0 {
		cfg.Image.Length = captchaDefaultLength
	}
	if cfg.Image.Width <= 0 {
		cfg.Image.Width = captchaDefaultWidth
	}
	if cfg.Image.Height <= 0 {
		cfg.Image.Height = captchaDefaultHeight
	}
	if cfg.Image.ExpireSeconds <= 0 {
		cfg.Image.ExpireSeconds = captchaDefaultExpireSec
	}
	if cfg.Image.MaxStore <= 0 {
		cfg.Image.MaxStore = captchaDefaultMaxStore
	}
	return cfg
}
