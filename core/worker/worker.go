// Package worker assembles the background side of the system: the content
// store, the evictor and the queue consumer.
package worker

import (
	"context"
	"fmt"
	"time"

	"AirgapFM/config"
	"AirgapFM/core/evictor"
	"AirgapFM/core/fetch"
	"AirgapFM/core/media"
	"AirgapFM/core/playlist"
	"AirgapFM/core/queue"
	"AirgapFM/logger"
	"AirgapFM/model"
)

const historyTimeout = 3 * time.Second

// HistoryRecorder 保存请求历史
type HistoryRecorder interface {
	Record(ctx context.Context, h *model.RequestHistory) error
}

// Worker owns the components that run in the worker process.
type Worker struct {
	cfg       *config.Config
	media     *media.Store
	playlists *playlist.Store
	evictor   *evictor.Evictor
	reclaimer *evictor.Reclaimer
	consumer  *queue.Consumer
	history   HistoryRecorder
}

// New wires the components for cfg. Directories are created if missing.
func New(cfg *config.Config, fetcher fetch.Fetcher) (*Worker, error) {
	store, err := media.NewStore(cfg.MediaDir, fetcher)
	if err != nil {
		return nil, err
	}
	store.SetMinBlobSize(cfg.MinBlobSize)

	playlists, err := playlist.NewStore(cfg.PlaylistDir)
	if err != nil {
		return nil, err
	}
	playlists.SetLibrary(store)

	ev := evictor.New(store, evictor.Config{
		MaxAge:    cfg.MaxAge,
		MaxSize:   cfg.MaxCacheSizeBytes(),
		Interval:  cfg.CleanupInterval,
		ResultTTL: cfg.ResultTTL,
	}, playlists)
	reclaimer := evictor.NewReclaimer(func(path string) error {
		_, err := store.Delete(path)
		return err
	}, nil)
	ev.SetReclaimer(reclaimer)
	store.SetDuplicatePurger(ev)

	consumer, err := queue.NewConsumer(cfg.QueueDir, store, ev, queue.ConsumerConfig{
		PollInterval:       cfg.PollInterval,
		FetchRatePerMinute: cfg.FetchRatePerMinute,
	})
	if err != nil {
		return nil, err
	}
	ev.SetOrphanCollector(consumer)

	w := &Worker{
		cfg:       cfg,
		media:     store,
		playlists: playlists,
		evictor:   ev,
		reclaimer: reclaimer,
		consumer:  consumer,
	}
	consumer.OnResult(w.recordHistory)
	return w, nil
}

func (w *Worker) Media() *media.Store           { return w.media }
func (w *Worker) Playlists() *playlist.Store    { return w.playlists }
func (w *Worker) Evictor() *evictor.Evictor     { return w.evictor }
func (w *Worker) Consumer() *queue.Consumer     { return w.consumer }
func (w *Worker) Reclaimer() *evictor.Reclaimer { return w.reclaimer }

// SetHistoryRecorder 启用请求历史
func (w *Worker) SetHistoryRecorder(h HistoryRecorder) {
	w.history = h
}

// SetArchiver 启用歌单备份
func (w *Worker) SetArchiver(a playlist.Archiver) {
	w.playlists.SetArchiver(a)
}

// Run 先清理一次缓存，然后处理队列直到 ctx 结束
func (w *Worker) Run(ctx context.Context) error {
	report := w.evictor.RunFullSweep()
	logger.Info("initial sweep finished",
		logger.Int("removed", report.Total()),
		logger.Int64("freedBytes", report.Freed()))

	w.reclaimer.Start()
	w.evictor.Start()
	defer func() {
		w.evictor.Stop()
		w.reclaimer.Stop()
		w.media.Wait()
	}()

	if err := w.consumer.Run(ctx); err != nil {
		return fmt.Errorf("queue consumer: %w", err)
	}
	return nil
}

// ProcessQuery resolves one query directly, bypassing the queue.
func (w *Worker) ProcessQuery(ctx context.Context, query string) (*model.PlaybackResult, error) {
	asset, err := w.media.ResolveOrFetch(ctx, query)
	if err != nil {
		return &model.PlaybackResult{Status: model.ResultError, Message: err.Error()}, err
	}
	return &model.PlaybackResult{
		Status:   model.ResultSuccess,
		FilePath: asset.Path,
		Title:    asset.Title(),
		Duration: asset.Duration(),
		Cached:   asset.Cached,
	}, nil
}

func (w *Worker) recordHistory(req model.PlaybackRequest, asset *model.MediaAsset, res model.PlaybackResult) {
	if w.history == nil {
		return
	}
	h := &model.RequestHistory{
		RequestID: res.RequestID,
		Query:     req.Query,
		Title:     res.Title,
		Duration:  res.Duration,
		Status:    res.Status,
		Cached:    res.Cached,
		Message:   res.Message,
		CreatedAt: time.Now(),
	}
	if asset != nil && asset.Metadata != nil {
		h.SourceID = asset.Metadata.SourceID
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := w.history.Record(ctx, h); err != nil {
		logger.Warn("failed to record request history", logger.RequestID(res.RequestID), logger.ErrorField(err))
	}
}
