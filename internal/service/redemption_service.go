package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/constants"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/models"
	"github.com/kamishop/internal/queue"
	"github.com/kamishop/internal/repository"
)

// RedemptionService 卡密兑换服务。
// 兑换分两步：先预留一条可用卡密拿到令牌，再凭令牌完成取码；
// 超过宽限期未完成的预留由队列任务或兜底扫描释放。
type RedemptionService struct {
	cardRepo    repository.CardKeyRepository
	productRepo repository.ProductRepository
	queueClient *queue.Client
}

// NewRedemptionService 创建兑换服务
func NewRedemptionService(cardRepo repository.CardKeyRepository, productRepo repository.ProductRepository, queueClient *queue.Client) *RedemptionService {
	return &RedemptionService{
		cardRepo:    cardRepo,
		productRepo: productRepo,
		queueClient: queueClient,
	}
}

// Reservation 预留结果
type Reservation struct {
	Token     string    `json:"token"`
	ProductID uint      `json:"product_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Reserve 预留商品下最早的可用卡密
func (s *RedemptionService) Reserve(ctx context.Context, productID string) (*Reservation, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, ErrNotFound
	}

	token, err := newReservationToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	key, err := s.cardRepo.ReserveNext(product.ID, token, now)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrCardKeyUnavailable
	}

	if s.queueClient != nil && s.queueClient.Enabled() {
		payload := queue.ReleaseReservationPayload{Token: token}
		if err := s.queueClient.EnqueueReleaseReservation(payload, constants.CardKeyReservationWindow); err != nil {
			// 入队失败不回滚预留，兜底扫描会释放过期预留
			logger.Warnw("redemption_enqueue_release_failed", "token", token, "error", err)
		}
	}
	s.invalidateViews(ctx, product.ID)

	return &Reservation{
		Token:     token,
		ProductID: product.ID,
		ExpiresAt: now.Add(constants.CardKeyReservationWindow),
	}, nil
}

// Complete 凭令牌完成兑换并取回卡密内容
func (s *RedemptionService) Complete(ctx context.Context, token string) (*models.CardKey, error) {
	key, err := s.cardRepo.GetByReservationToken(token)
	if err != nil {
		return nil, err
	}
	if key == nil || key.Used {
		return nil, ErrReservationInvalid
	}

	now := time.Now()
	affected, err := s.cardRepo.CompleteByToken(token, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrReservationInvalid
	}

	key.Used = true
	key.UsedAt = &now
	key.ReservedAt = nil
	key.ReservationToken = ""
	s.invalidateViews(ctx, key.ProductID)
	return key, nil
}

// Release 释放预留。已完成或已释放的令牌视为无效。
func (s *RedemptionService) Release(ctx context.Context, token string) error {
	key, err := s.cardRepo.GetByReservationToken(token)
	if err != nil {
		return err
	}

	affected, err := s.cardRepo.ReleaseByToken(token)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrReservationInvalid
	}
	if key != nil {
		s.invalidateViews(ctx, key.ProductID)
	}
	return nil
}

// ReleaseStale 释放所有超过宽限期的预留，返回释放数量
func (s *RedemptionService) ReleaseStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-constants.CardKeyReservationWindow)
	released, err := s.cardRepo.ReleaseStale(cutoff)
	if err != nil {
		return 0, err
	}
	if released > 0 {
		if err := cache.InvalidateSiteViews(ctx); err != nil {
			logger.Warnw("redemption_invalidate_views_failed", "error", err)
			s.enqueueViewInvalidate("")
		}
	}
	return released, nil
}

func newReservationToken() (string, error) {
	buf := make([]byte, constants.ReservationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成预留令牌失败: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (s *RedemptionService) invalidateViews(ctx context.Context, productID uint) {
	pid := strconv.FormatUint(uint64(productID), 10)
	if err := cache.InvalidateProductViews(ctx, pid); err != nil {
		logger.Warnw("redemption_invalidate_views_failed", "product_id", pid, "error", err)
		s.enqueueViewInvalidate(pid)
	}
}

// enqueueViewInvalidate 同步失效失败时改走队列重投，由 worker 兜底刷新视图
func (s *RedemptionService) enqueueViewInvalidate(productID string) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	payload := queue.ViewInvalidatePayload{ProductID: productID}
	if err := s.queueClient.EnqueueViewInvalidate(payload); err != nil {
		logger.Warnw("redemption_enqueue_view_invalidate_failed", "product_id", productID, "error", err)
	}
}
