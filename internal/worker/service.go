package worker

import (
	"context"
	"errors"
	"time"

	"github.com/kamishop/internal/config"
	"github.com/kamishop/internal/logger"
	"github.com/kamishop/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	staleReservationSweepInterval = time.Minute
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.RedemptionService != nil {
		go s.runStaleReservationSweep(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runStaleReservationSweep 兜底扫描。
// 释放任务入队失败或丢失时，过期预留由该循环周期性清理。
func (s *Service) runStaleReservationSweep(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.RedemptionService == nil {
		return
	}
	runOnce := func() {
		released, err := s.consumer.RedemptionService.ReleaseStale(ctx)
		if err != nil {
			logger.Warnw("worker_stale_reservation_sweep_failed", "error", err)
			return
		}
		if released > 0 {
			logger.Infow("worker_stale_reservation_swept", "released", released)
		}
	}
	runOnce()

	ticker := time.NewTicker(staleReservationSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
