// Package ingest 驱动卡密文件的分批上传：文本归一化、分片、顺序提交与进度上报。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrNoCards 归一化后没有任何卡密，不发起任何提交
	ErrNoCards = errors.New("未解析到任何卡密")
	// ErrUploadInFlight 同一协调器同时只允许一个上传会话
	ErrUploadInFlight = errors.New("已有上传任务进行中")
)

// Submitter 接收一个批次的卡密并返回实际写入数量。
type Submitter interface {
	SubmitBatch(ctx context.Context, productID string, keys []string) (int, error)
}

// Progress 单个批次成功后的进度事件。
type Progress struct {
	BatchIndex int `json:"batch_index"` // 批次序号，从 0 开始
	Processed  int `json:"processed"`   // 已覆盖的条目数（含当前批）
	Total      int `json:"total"`       // 本次上传的条目总数
	Percent    int `json:"percent"`     // 四舍五入的整数百分比
	Success    int `json:"success"`     // 累计写入成功数量
}

// ProgressFunc 进度回调，与批次提交同步、按顺序触发。
type ProgressFunc func(Progress)

// Session 上传会话快照，仅在上传进行中非零。
type Session struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Percent   int `json:"percent"`
}

// Options 协调器配置
type Options struct {
	BatchSize  int          // 单批条目数，非正时取 DefaultBatchSize
	OnProgress ProgressFunc // 可选的进度订阅
}

// Coordinator 顺序驱动分批上传。
// 批次之间严格串行，前一批未完成不会提交下一批；任何批次失败立即中止
// 剩余批次并把会话重置为空闲，已写入的批次不回滚。
type Coordinator struct {
	submitter  Submitter
	batchSize  int
	onProgress ProgressFunc

	mu      sync.Mutex
	active  bool
	session Session
}

// NewCoordinator 创建上传协调器
func NewCoordinator(submitter Submitter, opts Options) *Coordinator {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Coordinator{
		submitter:  submitter,
		batchSize:  batchSize,
		onProgress: opts.OnProgress,
	}
}

// Session 返回当前会话快照；空闲时为零值。
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Run 按批次顺序提交全部卡密，返回累计写入成功数量。
// keys 应当是 Normalize 的产物；为空时返回 ErrNoCards 且不发起提交。
// ctx 取消只在批次间检查，已发出的批次会执行完。
func (c *Coordinator) Run(ctx context.Context, productID string, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, ErrNoCards
	}
	if err := c.begin(len(keys)); err != nil {
		return 0, err
	}
	defer c.end()

	total := len(keys)
	success := 0
	for idx, batch := range Chunk(keys, c.batchSize) {
		select {
		case <-ctx.Done():
			c.emitReset()
			return 0, ctx.Err()
		default:
		}

		count, err := c.submitter.SubmitBatch(ctx, productID, batch)
		if err != nil {
			c.emitReset()
			return 0, fmt.Errorf("第 %d 批提交失败: %w", idx+1, err)
		}
		success += count

		processed := idx*c.batchSize + c.batchSize
		if processed > total {
			processed = total
		}
		percent := int(math.Round(float64(processed) / float64(total) * 100))
		c.advance(processed, percent)
		if c.onProgress != nil {
			c.onProgress(Progress{
				BatchIndex: idx,
				Processed:  processed,
				Total:      total,
				Percent:    percent,
				Success:    success,
			})
		}
	}
	return success, nil
}

func (c *Coordinator) begin(total int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return ErrUploadInFlight
	}
	c.active = true
	c.session = Session{Total: total}
	return nil
}

func (c *Coordinator) advance(processed, percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Processed = processed
	c.session.Percent = percent
}

// emitReset 上传中止时向订阅者发送零值进度，通知界面回到空闲态。
func (c *Coordinator) emitReset() {
	if c.onProgress != nil {
		c.onProgress(Progress{})
	}
}

// end 结束会话并重置为空闲，成功与失败同样处理。
func (c *Coordinator) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.session = Session{}
}
