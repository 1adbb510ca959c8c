package queue

import (
	"encoding/json"

	"github.com/kamishop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCardKeyRelease 过期预留释放任务
	TaskCardKeyRelease = constants.TaskCardKeyRelease
	// TaskCacheViewInvalidate 视图缓存失效广播任务
	TaskCacheViewInvalidate = constants.TaskCacheViewInvalidate
)

// ReleaseReservationPayload 预留释放任务载荷
type ReleaseReservationPayload struct {
	Token string `json:"token"`
}

// ViewInvalidatePayload 视图失效任务载荷。
// ProductID 为空时只刷新与商品无关的站点视图。
type ViewInvalidatePayload struct {
	ProductID string `json:"product_id"`
}

// NewReleaseReservationTask 创建预留释放任务
func NewReleaseReservationTask(payload ReleaseReservationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCardKeyRelease, body), nil
}

// NewViewInvalidateTask 创建视图失效任务
func NewViewInvalidateTask(payload ViewInvalidatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheViewInvalidate, body), nil
}
