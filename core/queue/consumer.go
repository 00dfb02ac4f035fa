package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"AirgapFM/core/evictor"
	"AirgapFM/core/utils"
	"AirgapFM/logger"
	"AirgapFM/model"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// Resolver 将查询解析为本地音频文件
type Resolver interface {
	ResolveOrFetch(ctx context.Context, query string) (*model.MediaAsset, error)
}

// Sweeper 执行清理信号
type Sweeper interface {
	CleanupFile(path string) error
	RunFullSweep() evictor.SweepReport
}

// ResultHook 每个请求处理完成后回调
type ResultHook func(req model.PlaybackRequest, asset *model.MediaAsset, res model.PlaybackResult)

// ConsumerConfig 轮询配置
type ConsumerConfig struct {
	PollInterval       time.Duration
	FetchRatePerMinute int // 0 disables throttling
}

// Consumer 队列的 worker 端
type Consumer struct {
	dir          string
	resolver     Resolver
	sweeper      Sweeper
	pollInterval time.Duration
	limiter      *rate.Limiter
	onResult     ResultHook

	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer 创建消费者，目录不存在时创建
func NewConsumer(dir string, resolver Resolver, sweeper Sweeper, cfg ConsumerConfig) (*Consumer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	c := &Consumer{
		dir:          dir,
		resolver:     resolver,
		sweeper:      sweeper,
		pollInterval: cfg.PollInterval,
	}
	if cfg.FetchRatePerMinute > 0 {
		burst := cfg.FetchRatePerMinute / 6
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.FetchRatePerMinute)/60.0), burst)
	}
	return c, nil
}

// OnResult registers h; it runs on the consumer goroutine.
func (c *Consumer) OnResult(h ResultHook) {
	c.onResult = h
}

// Counters since start: requests answered, and those answered with an error.
func (c *Consumer) Counters() (processed, failed int64) {
	return c.processed.Load(), c.failed.Load()
}

// Run polls the queue until ctx is done. Filesystem events on the queue
// directory trigger an early pass; polling alone is enough for correctness.
func (c *Consumer) Run(ctx context.Context) error {
	logger.Info("queue consumer started",
		logger.String("dir", c.dir),
		logger.Duration("pollInterval", c.pollInterval))

	nudge := make(chan struct{}, 1)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, polling only", logger.ErrorField(err))
	} else if err := watcher.Add(c.dir); err != nil {
		logger.Warn("cannot watch queue dir, polling only", logger.ErrorField(err))
		watcher.Close()
		watcher = nil
	}
	if watcher != nil {
		defer watcher.Close()
		go c.watch(ctx, watcher, nudge)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("queue consumer stopped")
			return nil
		case <-ticker.C:
			c.ProcessOnce(ctx)
		case <-nudge:
			c.ProcessOnce(ctx)
		}
	}
}

func (c *Consumer) watch(ctx context.Context, watcher *fsnotify.Watcher, nudge chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, fileSuffix) || strings.HasPrefix(name, resultPrefix) {
				continue
			}
			select {
			case nudge <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("queue watcher error", logger.ErrorField(err))
		}
	}
}

// ProcessOnce drains the queue directory: cleanup signals first, then
// playback requests in listing order.
func (c *Consumer) ProcessOnce(ctx context.Context) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		logger.Error("cannot read queue dir", logger.String("dir", c.dir), logger.ErrorField(err))
		return
	}

	var cleanups, requests []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		switch {
		case strings.HasPrefix(name, cleanupPrefix):
			cleanups = append(cleanups, name)
		case strings.HasPrefix(name, requestPrefix):
			requests = append(requests, name)
		}
	}

	for _, name := range cleanups {
		c.handleCleanup(name)
	}
	for _, name := range requests {
		if ctx.Err() != nil {
			return
		}
		c.handleRequest(ctx, name)
	}
}

func (c *Consumer) handleCleanup(name string) {
	path := filepath.Join(c.dir, name)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cleanup handler panicked", logger.File(name), logger.Any("panic", r))
		}
		if err := utils.RemoveIfExists(path); err != nil {
			logger.Warn("failed to remove cleanup signal", logger.File(name), logger.ErrorField(err))
		}
	}()

	var req model.CleanupRequest
	if err := utils.ReadJSON(path, &req); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("discarding malformed cleanup signal", logger.File(name), logger.ErrorField(err))
		}
		return
	}

	kind := req.Type
	if kind == "" && strings.HasPrefix(name, cleanupAllPrefix) {
		kind = model.CleanupAll
	}

	switch kind {
	case model.CleanupSingle:
		if req.FilePath == "" {
			return
		}
		if err := c.sweeper.CleanupFile(req.FilePath); err != nil {
			logger.Warn("cleanup signal failed", logger.File(req.FilePath), logger.ErrorField(err))
		}
	case model.CleanupAll:
		logger.Info("full cleanup requested", logger.String("reason", req.Reason))
		c.sweeper.RunFullSweep()
	default:
		logger.Warn("unknown cleanup type", logger.File(name), logger.String("type", req.Type))
	}
}

func (c *Consumer) handleRequest(ctx context.Context, name string) {
	path := filepath.Join(c.dir, name)
	requestID := idFromName(name, requestPrefix)
	keep := false
	defer func() {
		if r := recover(); r != nil {
			logger.Error("request handler panicked", logger.File(name), logger.Any("panic", r))
			res := model.PlaybackResult{Status: model.ResultError, RequestID: requestID, Message: "internal error"}
			if err := utils.WriteJSONAtomic(resultFile(c.dir, requestID), res); err != nil {
				logger.Error("failed to write result", logger.RequestID(requestID), logger.ErrorField(err))
			}
			keep = false
		}
		if keep {
			return
		}
		if err := utils.RemoveIfExists(path); err != nil {
			logger.Warn("failed to remove request", logger.File(name), logger.ErrorField(err))
		}
	}()

	var req model.PlaybackRequest
	if err := utils.ReadJSON(path, &req); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("discarding malformed request", logger.File(name), logger.ErrorField(err))
		}
		return
	}
	// the file name is authoritative; it is what the producer polls for
	req.RequestID = requestID

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			// 正在关闭，请求留给下次处理
			keep = true
			return
		}
	}

	asset, res := c.resolve(ctx, req)
	if err := utils.WriteJSONAtomic(resultFile(c.dir, req.RequestID), res); err != nil {
		logger.Error("failed to write result", logger.RequestID(req.RequestID), logger.ErrorField(err))
	}

	c.processed.Add(1)
	if !res.OK() {
		c.failed.Add(1)
	}
	if c.onResult != nil {
		c.onResult(req, asset, res)
	}
}

func (c *Consumer) resolve(ctx context.Context, req model.PlaybackRequest) (*model.MediaAsset, model.PlaybackResult) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, model.PlaybackResult{Status: model.ResultError, RequestID: req.RequestID, Message: "empty query"}
	}

	start := time.Now()
	asset, err := c.resolver.ResolveOrFetch(ctx, req.Query)
	if err != nil {
		logger.Warn("request failed",
			logger.RequestID(req.RequestID),
			logger.String("query", req.Query),
			logger.ErrorField(err))
		return nil, model.PlaybackResult{Status: model.ResultError, RequestID: req.RequestID, Message: err.Error()}
	}

	logger.Info("request resolved",
		logger.RequestID(req.RequestID),
		logger.File(filepath.Base(asset.Path)),
		logger.Bool("cached", asset.Cached),
		logger.Duration("took", time.Since(start)))
	return asset, model.PlaybackResult{
		Status:    model.ResultSuccess,
		RequestID: req.RequestID,
		FilePath:  asset.Path,
		Title:     asset.Title(),
		Duration:  asset.Duration(),
		Cached:    asset.Cached,
	}
}

// CollectOrphans removes result files older than olderThan that no producer consumed.
func (c *Consumer) CollectOrphans(olderThan time.Duration) int {
	matches, err := filepath.Glob(filepath.Join(c.dir, resultPrefix+"*"+fileSuffix))
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.ModTime().After(cutoff) {
			continue
		}
		if err := utils.RemoveIfExists(m); err != nil {
			logger.Warn("failed to remove orphaned result", logger.File(m), logger.ErrorField(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("removed orphaned results", logger.Int("count", removed))
	}
	return removed
}

// Stats counts pending files by kind.
func (c *Consumer) Stats() (model.QueueStats, error) {
	return Stats(c.dir)
}

// Stats counts pending files by kind in dir.
func Stats(dir string) (model.QueueStats, error) {
	var s model.QueueStats
	entries, err := os.ReadDir(dir)
	if err != nil {
		return s, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		switch {
		case strings.HasPrefix(name, requestPrefix):
			s.Requests++
		case strings.HasPrefix(name, cleanupPrefix):
			s.Cleanups++
		case strings.HasPrefix(name, resultPrefix):
			s.Results++
		}
	}
	return s, nil
}
