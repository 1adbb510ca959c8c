package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kamishop/internal/cache"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/provider"
	"github.com/kamishop/internal/queue"
	"github.com/kamishop/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCardKeyRelease, c.handleReleaseReservation)
	mux.HandleFunc(queue.TaskCacheViewInvalidate, c.handleViewInvalidate)
}

// handleReleaseReservation 释放到期仍未完成的卡密预留。
// 令牌已被完成取码或提前释放时视为成功，不再重试。
func (c *Consumer) handleReleaseReservation(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_release_reservation_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReleaseReservationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_release_reservation_unmarshal_failed", "error", err)
		return err
	}
	if payload.Token == "" {
		logger.Debugw("worker_release_reservation_skip_empty_token")
		return nil
	}
	if c.RedemptionService == nil {
		logger.Warnw("worker_release_reservation_skip_service_nil", "token", payload.Token)
		return nil
	}

	if err := c.RedemptionService.Release(ctx, payload.Token); err != nil {
		if errors.Is(err, service.ErrReservationInvalid) {
			logger.Debugw("worker_release_reservation_already_settled", "token", payload.Token)
			return nil
		}
		logger.Warnw("worker_release_reservation_failed", "token", payload.Token, "error", err)
		return err
	}
	logger.Infow("worker_release_reservation_done", "token", payload.Token)
	return nil
}

// handleViewInvalidate 处理视图缓存失效广播
func (c *Consumer) handleViewInvalidate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_view_invalidate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ViewInvalidatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_view_invalidate_unmarshal_failed", "error", err)
		return err
	}

	if payload.ProductID != "" {
		if err := cache.InvalidateProductViews(ctx, payload.ProductID); err != nil {
			logger.Warnw("worker_view_invalidate_failed", "product_id", payload.ProductID, "error", err)
			return err
		}
		return nil
	}
	if err := cache.InvalidateSiteViews(ctx); err != nil {
		logger.Warnw("worker_view_invalidate_failed", "error", err)
		return err
	}
	return nil
}
