package evictor

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"AirgapFM/core/media"
	"AirgapFM/core/utils"
	"AirgapFM/model"
)

type fakeProtector map[string]bool

func (p fakeProtector) IsProtected(path string) bool {
	return p[filepath.Base(path)]
}

type fakeOrphans struct {
	mu    sync.Mutex
	calls int
	ttl   time.Duration
}

func (o *fakeOrphans) CollectOrphans(olderThan time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.ttl = olderThan
	return 2
}

func newLibrary(t *testing.T) *media.Store {
	t.Helper()
	s, err := media.NewStore(filepath.Join(t.TempDir(), "media_library"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// addBlob writes a blob of size bytes with the given age and, when sourceID
// is not empty, a sidecar.
func addBlob(t *testing.T, s *media.Store, name string, size int, age time.Duration, sourceID string, processed float64) string {
	t.Helper()
	path := filepath.Join(s.Dir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
	if sourceID != "" {
		meta := model.MediaMetadata{Title: name, SourceID: sourceID, FilePath: path, ProcessedTime: processed}
		if err := utils.WriteJSONAtomic(media.MetadataPath(path), meta); err != nil {
			t.Fatal(err)
		}
	}
	mtime := time.Now().Add(-age)
	os.Chtimes(path, mtime, mtime)
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestCleanupDuplicatesKeepsNewest(t *testing.T) {
	s := newLibrary(t)
	a := addBlob(t, s, "media_1_aaaaaaaaaaaa.webm", 2000, time.Hour, "vid", 100)
	b := addBlob(t, s, "media_2_bbbbbbbbbbbb.webm", 2000, time.Hour, "vid", 300)
	c := addBlob(t, s, "media_3_cccccccccccc.m4a", 2000, time.Hour, "vid", 200)
	other := addBlob(t, s, "media_4_dddddddddddd.webm", 2000, time.Hour, "other", 50)
	bare := addBlob(t, s, "media_5_eeeeeeeeeeee.webm", 2000, time.Hour, "", 0)

	e := New(s, DefaultConfig, nil)
	got := e.CleanupDuplicates()
	if len(got) != 2 {
		t.Fatalf("removed %d, want 2", len(got))
	}
	if !exists(b) {
		t.Error("newest duplicate was removed")
	}
	if exists(a) || exists(c) {
		t.Error("older duplicates survived")
	}
	if exists(media.MetadataPath(a)) {
		t.Error("sidecar of removed duplicate survived")
	}
	if !exists(other) || !exists(bare) {
		t.Error("unrelated blobs removed")
	}
}

func TestCleanupByAgeRespectsProtection(t *testing.T) {
	s := newLibrary(t)
	old := addBlob(t, s, "media_1_aaaaaaaaaaaa.webm", 1000, 100*time.Hour, "a", 1)
	oldProtected := addBlob(t, s, "media_2_bbbbbbbbbbbb.webm", 1000, 100*time.Hour, "b", 1)
	young := addBlob(t, s, "media_3_cccccccccccc.webm", 1000, time.Hour, "c", 1)

	orphans := &fakeOrphans{}
	e := New(s, DefaultConfig, fakeProtector{filepath.Base(oldProtected): true})
	e.SetOrphanCollector(orphans)

	got := e.CleanupByAge()
	if len(got) != 1 || got[0].File != filepath.Base(old) || got[0].Reason != "age" {
		t.Fatalf("removed %+v", got)
	}
	if !exists(oldProtected) || !exists(young) {
		t.Error("protected or young blob removed")
	}
	if orphans.calls != 1 || orphans.ttl != DefaultConfig.ResultTTL {
		t.Errorf("orphan collector calls=%d ttl=%v", orphans.calls, orphans.ttl)
	}
}

func TestCleanupBySizeOldestFirst(t *testing.T) {
	s := newLibrary(t)
	p1 := addBlob(t, s, "media_1_aaaaaaaaaaaa.webm", 1000, 5*time.Hour, "1", 1)
	p2 := addBlob(t, s, "media_2_bbbbbbbbbbbb.webm", 1000, 4*time.Hour, "2", 1)
	p3 := addBlob(t, s, "media_3_cccccccccccc.webm", 1000, 3*time.Hour, "3", 1)
	p4 := addBlob(t, s, "media_4_dddddddddddd.webm", 1000, 2*time.Hour, "4", 1)
	p5 := addBlob(t, s, "media_5_eeeeeeeeeeee.webm", 1000, 1*time.Hour, "5", 1)

	cfg := DefaultConfig
	cfg.MaxSize = 3000
	e := New(s, cfg, fakeProtector{filepath.Base(p1): true})

	got := e.CleanupBySize()
	if len(got) != 2 {
		t.Fatalf("removed %d, want 2", len(got))
	}
	if !exists(p1) {
		t.Error("protected oldest blob removed")
	}
	if exists(p2) || exists(p3) {
		t.Error("oldest unprotected blobs should go first")
	}
	if !exists(p4) || !exists(p5) {
		t.Error("removed more than needed")
	}
	_, total, _ := s.Stats()
	if total > cfg.MaxSize {
		t.Errorf("total %d over cap", total)
	}
}

func TestCleanupBySizeAllProtected(t *testing.T) {
	s := newLibrary(t)
	a := addBlob(t, s, "media_1_aaaaaaaaaaaa.webm", 1000, time.Hour, "1", 1)
	b := addBlob(t, s, "media_2_bbbbbbbbbbbb.webm", 1000, time.Hour, "2", 1)
	cfg := DefaultConfig
	cfg.MaxSize = 500
	e := New(s, cfg, fakeProtector{filepath.Base(a): true, filepath.Base(b): true})
	if got := e.CleanupBySize(); len(got) != 0 {
		t.Errorf("removed %d protected blobs", len(got))
	}
}

func TestRunFullSweep(t *testing.T) {
	s := newLibrary(t)
	addBlob(t, s, "media_1_aaaaaaaaaaaa.webm", 1000, time.Hour, "dup", 1)
	addBlob(t, s, "media_2_bbbbbbbbbbbb.webm", 1000, time.Hour, "dup", 2)
	addBlob(t, s, "media_3_cccccccccccc.webm", 1000, 80*time.Hour, "old", 1)
	addBlob(t, s, "media_4_dddddddddddd.webm", 1000, 2*time.Hour, "big1", 1)
	addBlob(t, s, "media_5_eeeeeeeeeeee.webm", 1000, 1*time.Hour, "big2", 1)

	cfg := DefaultConfig
	cfg.MaxSize = 2000
	e := New(s, cfg, nil)
	e.SetOrphanCollector(&fakeOrphans{})

	report := e.RunFullSweep()
	if len(report.Duplicates) != 1 || len(report.Aged) != 1 || len(report.Sized) != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.Total() != 3 || report.Freed() != 3000 || report.Orphans != 2 {
		t.Errorf("total=%d freed=%d orphans=%d", report.Total(), report.Freed(), report.Orphans)
	}
	count, _, _ := s.Stats()
	if count != 2 {
		t.Errorf("%d blobs left, want 2", count)
	}
}

func TestCleanupFile(t *testing.T) {
	s := newLibrary(t)
	inside := addBlob(t, s, "media_1_aaaaaaaaaaaa.webm", 1000, time.Hour, "x", 1)
	outsideDir := filepath.Join(filepath.Dir(s.Dir()), "playlists", "mix")
	os.MkdirAll(outsideDir, 0755)
	outside := filepath.Join(outsideDir, "Song_1_abcd1234.webm")
	os.WriteFile(outside, []byte("x"), 0644)

	e := New(s, DefaultConfig, nil)
	if err := e.CleanupFile(inside); err != nil {
		t.Fatalf("CleanupFile: %v", err)
	}
	if exists(inside) || exists(media.MetadataPath(inside)) {
		t.Error("blob or sidecar survived")
	}
	if err := e.CleanupFile(inside); err != nil {
		t.Errorf("cleanup of a vanished file should succeed: %v", err)
	}
	if err := e.CleanupFile(outside); !errors.Is(err, ErrOutsideLibrary) {
		t.Errorf("err = %v, want ErrOutsideLibrary", err)
	}
	if !exists(outside) {
		t.Error("playlist copy was deleted")
	}
	if err := e.CleanupFile(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestStartStopRunsSweeps(t *testing.T) {
	s := newLibrary(t)
	old := addBlob(t, s, "media_1_aaaaaaaaaaaa.webm", 1000, 100*time.Hour, "a", 1)

	cfg := DefaultConfig
	cfg.Interval = 10 * time.Millisecond
	e := New(s, cfg, nil)
	e.Start()
	deadline := time.Now().Add(2 * time.Second)
	for exists(old) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	e.Stop()
	e.Stop()
	if exists(old) {
		t.Error("timer never swept the aged blob")
	}
}
