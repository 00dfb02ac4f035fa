package playlist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"AirgapFM/core/media"
	"AirgapFM/core/utils"
	"AirgapFM/model"
)

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string][]byte{}}
}

func (a *fakeArchive) Upload(ctx context.Context, key, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.objects[key] = data
	a.mu.Unlock()
	return nil
}

func (a *fakeArchive) Restore(ctx context.Context, key, localPath string) error {
	a.mu.Lock()
	data, ok := a.objects[key]
	a.mu.Unlock()
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(localPath, data, 0644)
}

func newStores(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewStore(filepath.Join(root, "playlists"))
	if err != nil {
		t.Fatal(err)
	}
	lib := filepath.Join(root, "media_library")
	os.MkdirAll(lib, 0755)
	return s, lib
}

func writeBlob(t *testing.T, dir, name, title string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio:"+title), 0644); err != nil {
		t.Fatal(err)
	}
	meta := model.MediaMetadata{Title: title, Duration: 120, SourceID: "id-" + title, FilePath: path}
	if err := utils.WriteJSONAtomic(media.MetadataPath(path), meta); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSanitizeName(t *testing.T) {
	var tests = []struct{ in, want string }{
		{"Road Trip!", "Road Trip"},
		{"  chill_vibes-2024 ", "chill_vibes-2024"},
		{"../../etc/passwd", "etcpasswd"},
		{"!!!", ""},
		{"café mix", "café mix"},
	}
	for _, test := range tests {
		if got := SanitizeName(test.in); got != test.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestSafeTitle(t *testing.T) {
	if got := safeTitle("???"); got != "Unknown" {
		t.Errorf("safeTitle(???) = %q", got)
	}
	long := strings.Repeat("a", 50)
	if got := safeTitle(long); len(got) != 30 {
		t.Errorf("len = %d, want 30", len(got))
	}
}

func TestCreateAndList(t *testing.T) {
	s, _ := newStores(t)
	if _, err := s.Create("Road Trip!"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("Road Trip"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := s.Create("?!"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("invalid err = %v", err)
	}
	if _, err := s.Create("chill"); err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Road Trip" || list[1].Name != "chill" {
		t.Errorf("List = %+v", list)
	}
	if _, err := s.Get("missing"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("Get err = %v", err)
	}
}

func TestAddCurrentlyPlayingCopies(t *testing.T) {
	s, lib := newStores(t)
	s.Create("roadtrip")
	src := writeBlob(t, lib, "media_1_aaaaaaaaaaaa.webm", "Song A")

	entry, err := s.AddCurrentlyPlaying(context.Background(), "roadtrip", src, "Song A: Live/Remix", 120)
	if err != nil {
		t.Fatalf("AddCurrentlyPlaying: %v", err)
	}
	if !utils.FileExists(src) {
		t.Error("source must be copied, not moved")
	}
	if !utils.FileExists(entry.AudioFile) || !utils.FileExists(entry.MetadataFile) {
		t.Error("copy or sidecar missing")
	}
	if filepath.Dir(entry.AudioFile) != filepath.Join(s.Dir(), "roadtrip") {
		t.Errorf("copy in %s", filepath.Dir(entry.AudioFile))
	}
	base := filepath.Base(entry.AudioFile)
	if !strings.HasPrefix(base, "Song A LiveRemix_") || filepath.Ext(base) != ".webm" {
		t.Errorf("copy name %s", base)
	}

	pl, _ := s.Get("roadtrip")
	if len(pl.Files) != 1 || pl.TotalDuration != 120 {
		t.Errorf("playlist = %+v", pl)
	}

	if !s.IsProtected(entry.AudioFile) {
		t.Error("playlist copy must be protected")
	}
	if s.IsProtected(src) {
		t.Error("library original has a different name and stays evictable")
	}
}

func TestProtectedByFileName(t *testing.T) {
	s, lib := newStores(t)
	s.Create("keep")
	src := writeBlob(t, lib, "media_1_aaaaaaaaaaaa.webm", "Song A")
	entry, err := s.AddCurrentlyPlaying(context.Background(), "keep", src, "Song A", 200)
	if err != nil {
		t.Fatal(err)
	}

	sameName := writeBlob(t, lib, filepath.Base(entry.AudioFile), "Song A")
	if !s.IsProtected(sameName) {
		t.Errorf("%s shares a playlist entry's file name and must be protected", sameName)
	}
	other := writeBlob(t, lib, "media_2_bbbbbbbbbbbb.webm", "Song B")
	if s.IsProtected(other) {
		t.Errorf("%s is not referenced by any playlist", other)
	}
}

func TestAddCurrentlyPlayingErrors(t *testing.T) {
	s, lib := newStores(t)
	src := writeBlob(t, lib, "media_1_aaaaaaaaaaaa.webm", "A")
	if _, err := s.AddCurrentlyPlaying(context.Background(), "nope", src, "A", 1); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("err = %v, want ErrPlaylistNotFound", err)
	}
	s.Create("p")
	if _, err := s.AddCurrentlyPlaying(context.Background(), "p", filepath.Join(lib, "gone.webm"), "A", 1); !errors.Is(err, ErrSourceFileMissing) {
		t.Errorf("err = %v, want ErrSourceFileMissing", err)
	}
}

func TestAddWithoutSidecarSynthesizesOne(t *testing.T) {
	s, lib := newStores(t)
	s.Create("p")
	src := filepath.Join(lib, "loose.m4a")
	os.WriteFile(src, []byte("x"), 0644)

	entry, err := s.AddCurrentlyPlaying(context.Background(), "p", src, "Loose", 42)
	if err != nil {
		t.Fatal(err)
	}
	var meta map[string]interface{}
	if err := utils.ReadJSON(entry.MetadataFile, &meta); err != nil {
		t.Fatal(err)
	}
	if meta["title"] != "Loose" || meta["original_file"] != src {
		t.Errorf("synthesized sidecar = %v", meta)
	}
	if filepath.Ext(entry.AudioFile) != ".m4a" {
		t.Error("extension not preserved")
	}
}

func TestStartPlaybackSkipsMissing(t *testing.T) {
	s, lib := newStores(t)
	s.Create("mix")
	a := writeBlob(t, lib, "media_1_aaaaaaaaaaaa.webm", "A")
	b := writeBlob(t, lib, "media_2_bbbbbbbbbbbb.webm", "B")
	ea, _ := s.AddCurrentlyPlaying(context.Background(), "mix", a, "A", 10)
	s.AddCurrentlyPlaying(context.Background(), "mix", b, "B", 20)

	os.Remove(ea.AudioFile)
	session, err := s.StartPlayback(context.Background(), "mix")
	if err != nil {
		t.Fatal(err)
	}
	if session.TotalSongs != 1 || session.Songs[0].Title != "B" {
		t.Errorf("session = %+v", session)
	}
	if session.CurrentIndex != 0 || session.Shuffle || session.LoopMode != model.LoopOff {
		t.Error("session should start fresh")
	}
}

func TestStartPlaybackEmpty(t *testing.T) {
	s, _ := newStores(t)
	s.Create("empty")
	if _, err := s.StartPlayback(context.Background(), "empty"); !errors.Is(err, ErrEmptyOrMissingPlaylist) {
		t.Errorf("err = %v", err)
	}
	_, err := s.StartPlayback(context.Background(), "absent")
	if !errors.Is(err, ErrEmptyOrMissingPlaylist) || !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("absent playlist err = %v, want both ErrEmptyOrMissingPlaylist and ErrPlaylistNotFound", err)
	}
}

func TestArchiveRestore(t *testing.T) {
	s, lib := newStores(t)
	archive := newFakeArchive()
	s.SetArchiver(archive)
	s.Create("backup")
	src := writeBlob(t, lib, "media_1_aaaaaaaaaaaa.webm", "A")
	entry, err := s.AddCurrentlyPlaying(context.Background(), "backup", src, "A", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(archive.objects) != 2 {
		t.Errorf("uploaded %d objects, want 2", len(archive.objects))
	}

	os.Remove(entry.AudioFile)
	session, err := s.StartPlayback(context.Background(), "backup")
	if err != nil {
		t.Fatalf("StartPlayback: %v", err)
	}
	if session.TotalSongs != 1 || !utils.FileExists(entry.AudioFile) {
		t.Error("missing file was not restored")
	}
}

func TestAvailableMedia(t *testing.T) {
	s, lib := newStores(t)
	if got, err := s.AvailableMedia(); got != nil || err != nil {
		t.Errorf("without library = %v, %v", got, err)
	}
	m, err := media.NewStore(lib, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.SetLibrary(m)
	writeBlob(t, lib, "media_1_aaaaaaaaaaaa.webm", "A")
	got, err := s.AvailableMedia()
	if err != nil || len(got) != 1 || got[0].Title() != "A" {
		t.Errorf("AvailableMedia = %+v, %v", got, err)
	}
}
