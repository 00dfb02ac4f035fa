package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"AirgapFM/core/utils"
	"AirgapFM/logger"
	"AirgapFM/model"

	"github.com/google/uuid"
)

// Producer 队列的前端（请求方）
type Producer struct {
	dir          string
	pollInterval time.Duration
	timeout      time.Duration
	now          func() time.Time
}

// NewProducer 创建生产者，目录不存在时创建
func NewProducer(dir string, pollInterval, timeout time.Duration) (*Producer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Producer{dir: dir, pollInterval: pollInterval, timeout: timeout, now: time.Now}, nil
}

// Submit 写入播放请求并返回请求 id
func (p *Producer) Submit(query string) (string, error) {
	id := uuid.NewString()
	req := model.PlaybackRequest{
		Query:     query,
		RequestID: id,
		Timestamp: model.UnixSeconds(p.now()),
	}
	if err := utils.WriteJSONAtomic(requestFile(p.dir, id), req); err != nil {
		return "", fmt.Errorf("submit request: %w", err)
	}
	logger.Debug("request submitted", logger.RequestID(id), logger.String("query", query))
	return id, nil
}

// CheckResult reads and consumes the result for id. ok is false while the
// worker has not answered yet.
func (p *Producer) CheckResult(id string) (res *model.PlaybackResult, ok bool, err error) {
	path := resultFile(p.dir, id)
	var out model.PlaybackResult
	if err := utils.ReadJSON(path, &out); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		utils.RemoveIfExists(path)
		return nil, false, fmt.Errorf("read result %s: %w", id, err)
	}
	if err := utils.RemoveIfExists(path); err != nil {
		logger.Warn("failed to remove consumed result", logger.RequestID(id), logger.ErrorField(err))
	}
	return &out, true, nil
}

// WaitResult polls for the result of id until it appears, the timeout passes
// (ErrResultTimeout) or ctx ends.
func (p *Producer) WaitResult(ctx context.Context, id string) (*model.PlaybackResult, error) {
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		res, ok, err := p.CheckResult(id)
		if err != nil {
			return nil, err
		}
		if ok {
			return res, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			// 超时前再检查一次，避免丢失刚好写入的结果
			if res, ok, err := p.CheckResult(id); ok || err != nil {
				return res, err
			}
			return nil, fmt.Errorf("request %s: %w", id, ErrResultTimeout)
		case <-ticker.C:
		}
	}
}

// Request submits query and waits for its result.
func (p *Producer) Request(ctx context.Context, query string) (*model.PlaybackResult, string, error) {
	id, err := p.Submit(query)
	if err != nil {
		return nil, "", err
	}
	res, err := p.WaitResult(ctx, id)
	return res, id, err
}

// SignalCleanup 通知 worker 删除已播放完的文件
func (p *Producer) SignalCleanup(path string) (string, error) {
	id := uuid.NewString()
	req := model.CleanupRequest{
		Type:      model.CleanupSingle,
		FilePath:  path,
		CleanupID: id,
		Timestamp: model.UnixSeconds(p.now()),
	}
	if err := utils.WriteJSONAtomic(cleanupFile(p.dir, id), req); err != nil {
		return "", fmt.Errorf("signal cleanup: %w", err)
	}
	logger.Debug("cleanup signalled", logger.File(path), logger.String("cleanupId", id))
	return id, nil
}

// SignalCleanupAll 通知 worker 执行完整清理
func (p *Producer) SignalCleanupAll(reason string) (string, error) {
	id := uuid.NewString()
	req := model.CleanupRequest{
		Type:      model.CleanupAll,
		Reason:    reason,
		CleanupID: id,
		Timestamp: model.UnixSeconds(p.now()),
	}
	if err := utils.WriteJSONAtomic(cleanupAllFile(p.dir, id), req); err != nil {
		return "", fmt.Errorf("signal cleanup_all: %w", err)
	}
	logger.Info("full cleanup signalled", logger.String("reason", reason))
	return id, nil
}
