// Package media is the content-addressed library of downloaded audio.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"AirgapFM/core/fetch"
	"AirgapFM/core/utils"
	"AirgapFM/logger"
	"AirgapFM/model"
)

// DefaultMinBlobSize is the smallest download accepted as a real blob.
const DefaultMinBlobSize int64 = 1024

// DuplicatePurger removes blobs that share a source id. The evictor implements it.
type DuplicatePurger interface {
	PurgeDuplicates() int
}

// Store owns the media directory.
type Store struct {
	dir         string
	fetcher     fetch.Fetcher
	minBlobSize int64
	now         func() time.Time

	purger  DuplicatePurger
	purging atomic.Bool
	purgeWG sync.WaitGroup
}

// NewStore creates dir if needed.
func NewStore(dir string, fetcher fetch.Fetcher) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{
		dir:         dir,
		fetcher:     fetcher,
		minBlobSize: DefaultMinBlobSize,
		now:         time.Now,
	}, nil
}

// Dir is the media directory.
func (s *Store) Dir() string {
	return s.dir
}

// SetMinBlobSize overrides DefaultMinBlobSize.
func (s *Store) SetMinBlobSize(n int64) {
	if n > 0 {
		s.minBlobSize = n
	}
}

// SetDuplicatePurger registers the purge that runs after each fresh download.
func (s *Store) SetDuplicatePurger(p DuplicatePurger) {
	s.purger = p
}

// Wait blocks until background duplicate purges have finished.
func (s *Store) Wait() {
	s.purgeWG.Wait()
}

// ResolveOrFetch returns the stored blob for query, downloading it first if the
// library does not already hold it.
func (s *Store) ResolveOrFetch(ctx context.Context, query string) (*model.MediaAsset, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrNotFound)
	}

	info, err := s.fetcher.Search(ctx, query)
	if errors.Is(err, fetch.ErrNotFound) || (err == nil && info == nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	digest := ContentDigest(query, info.ID)
	if path := s.findByDigest(digest); path != "" {
		asset, err := s.load(path)
		if err == nil {
			if asset.Metadata == nil {
				asset.Metadata = s.newMetadata(query, info, path)
				if err := utils.WriteJSONAtomic(asset.MetadataPath, asset.Metadata); err != nil {
					logger.Warn("failed to restore missing sidecar", logger.File(path), logger.ErrorField(err))
				}
			}
			asset.Cached = true
			logger.Info("cache hit",
				logger.String("query", query),
				logger.File(filepath.Base(path)))
			return asset, nil
		}
		logger.Warn("cached blob vanished, downloading again", logger.File(path), logger.ErrorField(err))
	}

	return s.download(ctx, query, info)
}

func (s *Store) download(ctx context.Context, query string, info *fetch.SourceInfo) (*model.MediaAsset, error) {
	stem := SafeFilename(query, info.ID, s.now())
	template := filepath.Join(s.dir, stem+".%(ext)s")

	logger.Info("downloading",
		logger.String("query", query),
		logger.String("sourceId", info.ID),
		logger.String("stem", stem))

	if err := s.fetcher.Download(ctx, info.URL, template); err != nil {
		s.removeStem(stem)
		return nil, fmt.Errorf("%w: %v", ErrDownloadIncomplete, err)
	}

	blob := s.locate(stem)
	if blob == "" {
		s.removeStem(stem)
		return nil, ErrDownloadIncomplete
	}
	fi, err := os.Stat(blob)
	if err != nil {
		s.removeStem(stem)
		return nil, &StoreWriteError{Path: blob, Err: err}
	}
	if fi.Size() < s.minBlobSize {
		s.removeStem(stem)
		return nil, fmt.Errorf("%w: %s is only %d bytes", ErrDownloadIncomplete, filepath.Base(blob), fi.Size())
	}

	meta := s.newMetadata(query, info, blob)
	metaPath := MetadataPath(blob)
	if err := utils.WriteJSONAtomic(metaPath, meta); err != nil {
		s.removeStem(stem)
		return nil, &StoreWriteError{Path: metaPath, Err: err}
	}

	logger.Info("stored new blob",
		logger.File(filepath.Base(blob)),
		logger.String("title", meta.Title),
		logger.Int64("size", fi.Size()))

	s.triggerPurge()

	return &model.MediaAsset{
		Path:         blob,
		MetadataPath: metaPath,
		Size:         fi.Size(),
		ModTime:      fi.ModTime(),
		Metadata:     meta,
		Cached:       false,
	}, nil
}

func (s *Store) newMetadata(query string, info *fetch.SourceInfo, blob string) *model.MediaMetadata {
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = titleFromTags(blob)
	}
	if title == "" {
		title = "Unknown"
	}
	return &model.MediaMetadata{
		OriginalQuery: query,
		Title:         title,
		Duration:      model.Seconds(info.Duration),
		SourceID:      info.ID,
		FilePath:      blob,
		ProcessedTime: model.UnixSeconds(s.now()),
	}
}

// triggerPurge runs the duplicate purge in the background; at most one runs at a time.
func (s *Store) triggerPurge() {
	if s.purger == nil || !s.purging.CompareAndSwap(false, true) {
		return
	}
	s.purgeWG.Add(1)
	go func() {
		defer s.purgeWG.Done()
		defer s.purging.Store(false)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("duplicate purge panicked", logger.Any("panic", r))
			}
		}()
		if n := s.purger.PurgeDuplicates(); n > 0 {
			logger.Info("purged duplicate blobs", logger.Int("count", n))
		}
	}()
}

// findByDigest returns the newest blob whose name carries digest.
func (s *Store) findByDigest(digest string) string {
	matches, err := filepath.Glob(filepath.Join(s.dir, blobPrefix+"*_"+digest+".*"))
	if err != nil {
		return ""
	}
	var best string
	var bestMod time.Time
	for _, m := range matches {
		if !IsAllowedExtension(filepath.Ext(m)) {
			continue
		}
		if d, ok := digestOf(filepath.Base(m)); !ok || d != digest {
			continue
		}
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		if best == "" || fi.ModTime().After(bestMod) {
			best, bestMod = m, fi.ModTime()
		}
	}
	return best
}

// locate finds the download output for stem among the allowed extensions.
func (s *Store) locate(stem string) string {
	for _, ext := range AllowedExtensions {
		p := filepath.Join(s.dir, stem+ext)
		if utils.FileExists(p) {
			return p
		}
	}
	return ""
}

// removeStem deletes everything the fetcher may have left for stem.
func (s *Store) removeStem(stem string) {
	matches, _ := filepath.Glob(filepath.Join(s.dir, stem+".*"))
	for _, m := range matches {
		if err := utils.RemoveIfExists(m); err != nil {
			logger.Warn("failed to remove partial download", logger.File(m), logger.ErrorField(err))
		}
	}
}

func (s *Store) load(path string) (*model.MediaAsset, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	asset := &model.MediaAsset{
		Path:         path,
		MetadataPath: MetadataPath(path),
		Size:         fi.Size(),
		ModTime:      fi.ModTime(),
	}
	var meta model.MediaMetadata
	if err := utils.ReadJSON(asset.MetadataPath, &meta); err == nil {
		asset.Metadata = &meta
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("unreadable sidecar", logger.File(asset.MetadataPath), logger.ErrorField(err))
	}
	return asset, nil
}

// List enumerates stored blobs sorted by name. Files that vanish while
// listing are skipped.
func (s *Store) List() ([]model.MediaAsset, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read media dir: %w", err)
	}
	assets := make([]model.MediaAsset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsAllowedExtension(filepath.Ext(e.Name())) {
			continue
		}
		asset, err := s.load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		assets = append(assets, *asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	return assets, nil
}

// Delete removes a blob and then its sidecar, returning the bytes freed.
// Files already gone count as deleted.
func (s *Store) Delete(path string) (int64, error) {
	var freed int64
	if fi, err := os.Stat(path); err == nil {
		freed = fi.Size()
	}
	if err := utils.RemoveIfExists(path); err != nil {
		return 0, fmt.Errorf("remove blob: %w", err)
	}
	if err := utils.RemoveIfExists(MetadataPath(path)); err != nil {
		return freed, fmt.Errorf("remove sidecar: %w", err)
	}
	return freed, nil
}

// Contains reports whether path lies inside the media directory.
func (s *Store) Contains(path string) bool {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// Stats counts blobs and their total size.
func (s *Store) Stats() (count int, total int64, err error) {
	assets, err := s.List()
	if err != nil {
		return 0, 0, err
	}
	for _, a := range assets {
		total += a.Size
	}
	return len(assets), total, nil
}
