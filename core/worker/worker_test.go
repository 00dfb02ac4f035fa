package worker

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"AirgapFM/config"
	"AirgapFM/core/fetch"
	"AirgapFM/core/queue"
	"AirgapFM/model"
)

type stubFetcher struct {
	mu      sync.Mutex
	results map[string]*fetch.SourceInfo
}

func (f *stubFetcher) Search(ctx context.Context, query string) (*fetch.SourceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.results[query]
	if !ok {
		return nil, fetch.ErrNotFound
	}
	copied := *info
	return &copied, nil
}

func (f *stubFetcher) Download(ctx context.Context, url, outputTemplate string) error {
	path := strings.Replace(outputTemplate, "%(ext)s", "webm", 1)
	return os.WriteFile(path, bytes.Repeat([]byte{0x1a}, 4096), 0644)
}

type memHistory struct {
	mu      sync.Mutex
	entries []*model.RequestHistory
}

func (h *memHistory) Record(ctx context.Context, e *model.RequestHistory) error {
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
	return nil
}

func (h *memHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func testConfig(root string) *config.Config {
	return &config.Config{
		MediaDir:           filepath.Join(root, "media_library"),
		QueueDir:           filepath.Join(root, "request_queue"),
		PlaylistDir:        filepath.Join(root, "playlists"),
		MaxCacheSizeMB:     100,
		MaxAge:             time.Hour,
		CleanupInterval:    time.Hour,
		ResultTTL:          time.Minute,
		MinBlobSize:        1024,
		PollInterval:       20 * time.Millisecond,
		ResultTimeout:      5 * time.Second,
		ResultPollInterval: 10 * time.Millisecond,
	}
}

func newFetcher() *stubFetcher {
	return &stubFetcher{results: map[string]*fetch.SourceInfo{
		"lofi beats": {ID: "abc123", Title: "Lofi Beats", Duration: 180, URL: "https://example.invalid/abc123"},
	}}
}

func TestNewCreatesDirectories(t *testing.T) {
	cfg := testConfig(t.TempDir())
	if _, err := New(cfg, newFetcher()); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{cfg.MediaDir, cfg.QueueDir, cfg.PlaylistDir} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("%s not created", dir)
		}
	}
}

func TestProcessQuery(t *testing.T) {
	w, err := New(testConfig(t.TempDir()), newFetcher())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res, err := w.ProcessQuery(ctx, "lofi beats")
	if err != nil || !res.OK() || res.Cached || res.Title != "Lofi Beats" {
		t.Fatalf("first = %+v, %v", res, err)
	}
	again, err := w.ProcessQuery(ctx, "lofi beats")
	if err != nil || !again.Cached || again.FilePath != res.FilePath {
		t.Errorf("second = %+v, %v", again, err)
	}

	res, err = w.ProcessQuery(ctx, "nothing matches")
	if err == nil || res.Status != model.ResultError {
		t.Errorf("missing = %+v, %v", res, err)
	}
	w.Media().Wait()
}

func TestRunAnswersRequests(t *testing.T) {
	cfg := testConfig(t.TempDir())
	w, err := New(cfg, newFetcher())
	if err != nil {
		t.Fatal(err)
	}
	hist := &memHistory{}
	w.SetHistoryRecorder(hist)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	producer, err := queue.NewProducer(cfg.QueueDir, cfg.ResultPollInterval, cfg.ResultTimeout)
	if err != nil {
		t.Fatal(err)
	}
	res, _, err := producer.Request(context.Background(), "lofi beats")
	if err != nil || !res.OK() {
		t.Fatalf("Request = %+v, %v", res, err)
	}
	res, _, err = producer.Request(context.Background(), "nothing matches")
	if err != nil || res.OK() {
		t.Fatalf("Request = %+v, %v", res, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if hist.len() != 2 {
		t.Fatalf("history entries = %d, want 2", hist.len())
	}
	if first := hist.entries[0]; first.SourceID != "abc123" || first.Status != model.ResultSuccess {
		t.Errorf("history[0] = %+v", first)
	}
	if processed, failed := w.Consumer().Counters(); processed != 2 || failed != 1 {
		t.Errorf("counters = %d/%d", processed, failed)
	}
}
