package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可托管的长生命周期服务。
// Start 阻塞运行直到服务退出；Stop 触发优雅停机并在 ctx 超时后放弃等待。
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// exitEvent 某个服务退出时的记录
type exitEvent struct {
	name string
	err  error
}

// Runner 托管一组服务：任一服务退出或收到停机信号后，
// 按注册顺序的逆序停掉其余服务。
type Runner struct {
	services []Service
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务并阻塞，返回首个导致退出的服务错误。
// ctx 取消（通常来自停机信号）视为正常退出，不作为错误返回。
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.S()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exited := make(chan exitEvent, len(r.services))
	for _, svc := range r.services {
		service := svc
		go func() {
			log.Infow("service_start", "service", service.Name())
			exited <- exitEvent{name: service.Name(), err: service.Start(runCtx)}
		}()
	}

	var runErr error
	select {
	case <-runCtx.Done():
		runErr = runCtx.Err()
	case event := <-exited:
		runErr = event.err
		if event.err != nil {
			log.Errorw("service_failed", "service", event.name, "error", event.err)
		} else {
			log.Infow("service_exit", "service", event.name)
		}
	}

	cancel()
	r.shutdown(stopTimeout, log)

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// shutdown 逆序停掉全部服务，单个失败不阻断其余服务的停机。
func (r *Runner) shutdown(stopTimeout time.Duration, log *zap.SugaredLogger) {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if svc == nil {
			continue
		}
		if err := svc.Stop(stopCtx); err != nil {
			log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			continue
		}
		log.Infow("service_stopped", "service", svc.Name())
	}
}
