// Package evictor keeps the media library within its age and size budget
// without touching anything a playlist refers to.
package evictor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"AirgapFM/core/media"
	"AirgapFM/logger"
	"AirgapFM/model"
)

// ErrOutsideLibrary is returned when a cleanup targets a file the media library does not own.
var ErrOutsideLibrary = errors.New("file is not in the media library")

// Protector reports whether a blob is referenced by a persisted playlist.
type Protector interface {
	IsProtected(path string) bool
}

// OrphanCollector removes result files nobody picked up.
type OrphanCollector interface {
	CollectOrphans(olderThan time.Duration) int
}

// Config tunes the three policies and the timer.
type Config struct {
	MaxAge    time.Duration
	MaxSize   int64
	Interval  time.Duration
	ResultTTL time.Duration
}

// DefaultConfig matches the shipped defaults.
var DefaultConfig = Config{
	MaxAge:    72 * time.Hour,
	MaxSize:   100 * 1024 * 1024,
	Interval:  6 * time.Hour,
	ResultTTL: 10 * time.Minute,
}

// Removed describes one evicted blob.
type Removed struct {
	File   string        `json:"file"`
	Size   int64         `json:"size"`
	Age    time.Duration `json:"age"`
	Reason string        `json:"reason"`
}

// SweepReport summarises a full sweep.
type SweepReport struct {
	Duplicates []Removed `json:"duplicates"`
	Aged       []Removed `json:"aged"`
	Sized      []Removed `json:"sized"`
	Orphans    int       `json:"orphans"`
	Failed     int       `json:"failed"`
}

// Total number of blobs removed.
func (r SweepReport) Total() int {
	return len(r.Duplicates) + len(r.Aged) + len(r.Sized)
}

// Freed bytes across all policies.
func (r SweepReport) Freed() int64 {
	var n int64
	for _, list := range [][]Removed{r.Duplicates, r.Aged, r.Sized} {
		for _, rm := range list {
			n += rm.Size
		}
	}
	return n
}

type outcome int

const (
	removed outcome = iota
	vanished
	failed
)

// Evictor applies the duplicate, age and size policies to a media.Store.
type Evictor struct {
	store     *media.Store
	cfg       Config
	protector Protector
	orphans   OrphanCollector
	reclaimer *Reclaimer
	now       func() time.Time

	sweepMu sync.Mutex
	failed  atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds an evictor. protector may be nil, which protects nothing.
func New(store *media.Store, cfg Config, protector Protector) *Evictor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig.Interval
	}
	return &Evictor{
		store:     store,
		cfg:       cfg,
		protector: protector,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// SetOrphanCollector hooks result-file GC into the age policy.
func (e *Evictor) SetOrphanCollector(c OrphanCollector) {
	e.orphans = c
}

// SetReclaimer hands failed deletions to r for retry.
func (e *Evictor) SetReclaimer(r *Reclaimer) {
	e.reclaimer = r
}

// Config returns the active configuration.
func (e *Evictor) Config() Config {
	return e.cfg
}

// FailedDeletions counts deletions that errored since start.
func (e *Evictor) FailedDeletions() int64 {
	return e.failed.Load()
}

// Start 启动定时清理，每隔 Interval 执行一次 RunFullSweep
func (e *Evictor) Start() {
	logger.Info("cache evictor started",
		logger.Duration("interval", e.cfg.Interval),
		logger.Duration("maxAge", e.cfg.MaxAge),
		logger.Int64("maxSize", e.cfg.MaxSize))

	e.wg.Add(1)
	go e.loop()
}

// Stop 停止定时清理，并等待进行中的清理结束
func (e *Evictor) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()
	logger.Info("cache evictor stopped")
}

func (e *Evictor) loop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.RunFullSweep()
		}
	}
}

// RunFullSweep 依次执行去重、过期清理和容量清理
func (e *Evictor) RunFullSweep() SweepReport {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	before := e.failed.Load()
	var report SweepReport
	report.Duplicates = e.cleanupDuplicates()
	report.Aged, report.Orphans = e.cleanupByAge()
	report.Sized = e.cleanupBySize()
	report.Failed = int(e.failed.Load() - before)

	logger.Info("cache sweep finished",
		logger.Int("duplicates", len(report.Duplicates)),
		logger.Int("aged", len(report.Aged)),
		logger.Int("sized", len(report.Sized)),
		logger.Int("orphanResults", report.Orphans),
		logger.Int("failed", report.Failed),
		logger.Int64("freedBytes", report.Freed()))
	return report
}

// PurgeDuplicates satisfies media.DuplicatePurger.
func (e *Evictor) PurgeDuplicates() int {
	return len(e.CleanupDuplicates())
}

// CleanupDuplicates keeps only the most recently processed blob per source id.
func (e *Evictor) CleanupDuplicates() []Removed {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	return e.cleanupDuplicates()
}

// CleanupByAge removes unprotected blobs older than MaxAge.
func (e *Evictor) CleanupByAge() []Removed {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	aged, _ := e.cleanupByAge()
	return aged
}

// CleanupBySize removes the oldest unprotected blobs until the library fits MaxSize.
func (e *Evictor) CleanupBySize() []Removed {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	return e.cleanupBySize()
}

func (e *Evictor) cleanupDuplicates() []Removed {
	assets, err := e.store.List()
	if err != nil {
		logger.Error("duplicate sweep: cannot list library", logger.ErrorField(err))
		return nil
	}

	groups := make(map[string][]model.MediaAsset)
	for _, a := range assets {
		if a.Metadata == nil || a.Metadata.SourceID == "" {
			continue
		}
		groups[a.Metadata.SourceID] = append(groups[a.Metadata.SourceID], a)
	}

	ids := make([]string, 0, len(groups))
	for id, group := range groups {
		if len(group) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []Removed
	for _, id := range ids {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Metadata.ProcessedTime > group[j].Metadata.ProcessedTime
		})
		for _, old := range group[1:] {
			if rm, res := e.remove(old, "duplicate"); res == removed {
				out = append(out, rm)
			}
		}
	}
	return out
}

func (e *Evictor) cleanupByAge() ([]Removed, int) {
	var out []Removed
	assets, err := e.store.List()
	if err != nil {
		logger.Error("age sweep: cannot list library", logger.ErrorField(err))
	} else {
		now := e.now()
		for _, a := range assets {
			if now.Sub(a.ModTime) <= e.cfg.MaxAge || e.isProtected(a.Path) {
				continue
			}
			if rm, res := e.remove(a, "age"); res == removed {
				out = append(out, rm)
			}
		}
	}

	orphans := 0
	if e.orphans != nil && e.cfg.ResultTTL > 0 {
		orphans = e.orphans.CollectOrphans(e.cfg.ResultTTL)
	}
	return out, orphans
}

func (e *Evictor) cleanupBySize() []Removed {
	assets, err := e.store.List()
	if err != nil {
		logger.Error("size sweep: cannot list library", logger.ErrorField(err))
		return nil
	}

	var total int64
	for _, a := range assets {
		total += a.Size
	}
	if total <= e.cfg.MaxSize {
		return nil
	}

	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].ModTime.Before(assets[j].ModTime)
	})

	var out []Removed
	for _, a := range assets {
		if total <= e.cfg.MaxSize {
			break
		}
		if e.isProtected(a.Path) {
			continue
		}
		rm, res := e.remove(a, "size")
		switch res {
		case removed:
			out = append(out, rm)
			total -= a.Size
		case vanished:
			total -= a.Size
		}
	}
	if total > e.cfg.MaxSize {
		logger.Warn("library still over size cap",
			logger.Int64("total", total),
			logger.Int64("maxSize", e.cfg.MaxSize))
	}
	return out
}

// remove 再次确认文件存在后删除音频及其元数据
func (e *Evictor) remove(a model.MediaAsset, reason string) (Removed, outcome) {
	fi, err := os.Stat(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Removed{}, vanished
	}
	if err != nil {
		e.failed.Add(1)
		logger.Warn("cannot stat blob", logger.File(a.Path), logger.ErrorField(err))
		return Removed{}, failed
	}

	if _, err := e.store.Delete(a.Path); err != nil {
		e.failed.Add(1)
		logger.Warn("failed to evict blob",
			logger.File(a.Path),
			logger.String("reason", reason),
			logger.ErrorField(err))
		if e.reclaimer != nil {
			e.reclaimer.Reclaim(a.Path)
		}
		return Removed{}, failed
	}

	rm := Removed{
		File:   filepath.Base(a.Path),
		Size:   fi.Size(),
		Age:    e.now().Sub(fi.ModTime()),
		Reason: reason,
	}
	logger.Debug("evicted blob",
		logger.File(rm.File),
		logger.String("reason", reason),
		logger.Int64("size", rm.Size),
		logger.Duration("age", rm.Age))
	return rm, removed
}

func (e *Evictor) isProtected(path string) bool {
	return e.protector != nil && e.protector.IsProtected(path)
}

// CleanupFile deletes one blob and its sidecar on request. Only files inside
// the media library are eligible; playlist copies are never touched.
func (e *Evictor) CleanupFile(path string) error {
	if path == "" {
		return nil
	}
	if !e.store.Contains(path) || !media.IsAllowedExtension(filepath.Ext(path)) {
		logger.Warn("refusing cleanup outside media library", logger.File(path))
		return fmt.Errorf("%w: %s", ErrOutsideLibrary, path)
	}

	freed, err := e.store.Delete(path)
	if err != nil {
		e.failed.Add(1)
		if e.reclaimer != nil {
			e.reclaimer.Reclaim(path)
		}
		return fmt.Errorf("cleanup %s: %w", filepath.Base(path), err)
	}
	logger.Info("cleaned up played file",
		logger.File(filepath.Base(path)),
		logger.Int64("freedBytes", freed))
	return nil
}
