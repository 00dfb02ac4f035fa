// Package playlist manages named playlists of permanent audio copies.
package playlist

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
	"time"
	"unicode"

	"AirgapFM/core/media"
	"AirgapFM/core/utils"
	"AirgapFM/logger"
	"AirgapFM/model"

	"github.com/google/uuid"
)

var (
	ErrPlaylistNotFound       = errors.New("playlist not found")
	ErrInvalidName            = errors.New("invalid playlist name")
	ErrDuplicateName          = errors.New("playlist already exists")
	ErrEmptyOrMissingPlaylist = errors.New("playlist is empty or all of its files are missing")
	ErrSourceFileMissing      = errors.New("source audio file not found")
)

const maxTitleLen = 30

// Archiver 歌单文件的远端备份
type Archiver interface {
	Upload(ctx context.Context, key, localPath string) error
	Restore(ctx context.Context, key, localPath string) error
}

// Store keeps <dir>/<name>.json indexes and <dir>/<name>/ copies.
type Store struct {
	dir      string
	archiver Archiver
	library  *media.Store
	now      func() time.Time

	// serialises read-modify-write of index files within this process
	mu sync.Mutex
}

// NewStore 创建歌单存储，目录不存在时创建
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create playlist dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir 歌单根目录
func (s *Store) Dir() string {
	return s.dir
}

// SetArchiver enables upload of new copies and restore of missing ones.
func (s *Store) SetArchiver(a Archiver) {
	s.archiver = a
}

// SetLibrary lets AvailableMedia list the media library.
func (s *Store) SetLibrary(m *media.Store) {
	s.library = m
}

// SanitizeName keeps letters, digits, spaces, '-' and '_' and trims the result.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// safeTitle sanitizes a song title for use in a file name.
func safeTitle(title string) string {
	t := []rune(SanitizeName(title))
	if len(t) > maxTitleLen {
		t = t[:maxTitleLen]
	}
	if len(t) == 0 {
		return "Unknown"
	}
	return string(t)
}

func (s *Store) indexPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) load(name string) (*model.Playlist, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return nil, fmt.Errorf("%w: %q", ErrPlaylistNotFound, name)
	}
	var pl model.Playlist
	if err := utils.ReadJSON(s.indexPath(clean), &pl); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrPlaylistNotFound, clean)
		}
		return nil, fmt.Errorf("load playlist %q: %w", clean, err)
	}
	if pl.Name == "" {
		pl.Name = clean
	}
	return &pl, nil
}

func (s *Store) save(pl *model.Playlist) error {
	if err := utils.WriteJSONAtomic(s.indexPath(pl.Name), pl); err != nil {
		return fmt.Errorf("save playlist %q: %w", pl.Name, err)
	}
	return nil
}

// Create 创建空歌单
func (s *Store) Create(name string) (*model.Playlist, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return nil, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if utils.FileExists(s.indexPath(clean)) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, clean)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, clean), 0755); err != nil {
		return nil, fmt.Errorf("create playlist media dir: %w", err)
	}
	pl := &model.Playlist{
		Name:    clean,
		Created: model.UnixSeconds(s.now()),
		Files:   []model.PlaylistEntry{},
	}
	if err := s.save(pl); err != nil {
		return nil, err
	}
	logger.Info("playlist created", logger.String("playlist", clean))
	return pl, nil
}

// List summarises every playlist, sorted by name. Unreadable indexes are skipped.
func (s *Store) List() ([]model.PlaylistSummary, error) {
	playlists, err := s.all()
	if err != nil {
		return nil, err
	}
	out := make([]model.PlaylistSummary, 0, len(playlists))
	for _, pl := range playlists {
		out = append(out, model.PlaylistSummary{
			Name:     pl.Name,
			Files:    len(pl.Files),
			Duration: int(pl.TotalDuration),
		})
	}
	return out, nil
}

func (s *Store) all() ([]*model.Playlist, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read playlist dir: %w", err)
	}
	var out []*model.Playlist
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var pl model.Playlist
		if err := utils.ReadJSON(filepath.Join(s.dir, e.Name()), &pl); err != nil {
			logger.Warn("skipping unreadable playlist", logger.File(e.Name()), logger.ErrorField(err))
			continue
		}
		if pl.Name == "" {
			pl.Name = strings.TrimSuffix(e.Name(), ".json")
		}
		out = append(out, &pl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get 读取单个歌单
func (s *Store) Get(name string) (*model.Playlist, error) {
	return s.load(name)
}

// AddCurrentlyPlaying copies the blob at sourcePath (and its sidecar) into the
// playlist and appends an entry. The source is left in place.
func (s *Store) AddCurrentlyPlaying(ctx context.Context, name, sourcePath, title string, duration int) (*model.PlaylistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pl, err := s.load(name)
	if err != nil {
		return nil, err
	}
	if !utils.FileExists(sourcePath) {
		return nil, fmt.Errorf("%w: %s", ErrSourceFileMissing, sourcePath)
	}

	mediaDir := filepath.Join(s.dir, pl.Name)
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create playlist media dir: %w", err)
	}

	now := s.now()
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".webm"
	}
	base := fmt.Sprintf("%s_%d_%s", safeTitle(title), now.Unix(), uuid.NewString()[:8])
	audioPath := filepath.Join(mediaDir, base+ext)
	metaPath := filepath.Join(mediaDir, base+".json")

	if err := utils.CopyFile(sourcePath, audioPath); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}

	sidecar := media.MetadataPath(sourcePath)
	if utils.FileExists(sidecar) {
		err = utils.CopyFile(sidecar, metaPath)
	} else {
		err = utils.WriteJSONAtomic(metaPath, map[string]interface{}{
			"title":             title,
			"duration":          duration,
			"added_to_playlist": model.UnixSeconds(now),
			"original_file":     sourcePath,
		})
	}
	if err != nil {
		utils.RemoveIfExists(audioPath)
		return nil, fmt.Errorf("copy metadata: %w", err)
	}

	entry := model.PlaylistEntry{
		Title:        title,
		AudioFile:    audioPath,
		MetadataFile: metaPath,
		Duration:     model.Seconds(duration),
		Added:        model.UnixSeconds(now),
	}
	pl.Files = append(pl.Files, entry)
	pl.TotalDuration += model.Seconds(duration)
	if err := s.save(pl); err != nil {
		utils.RemoveIfExists(audioPath)
		utils.RemoveIfExists(metaPath)
		return nil, err
	}

	logger.Info("added song to playlist",
		logger.String("playlist", pl.Name),
		logger.String("title", title),
		logger.File(filepath.Base(audioPath)))

	if s.archiver != nil {
		for _, p := range []string{audioPath, metaPath} {
			if err := s.archiver.Upload(ctx, s.archiveKey(pl.Name, p), p); err != nil {
				logger.Warn("playlist archive upload failed", logger.File(p), logger.ErrorField(err))
			}
		}
	}
	return &entry, nil
}

func (s *Store) archiveKey(playlistName, path string) string {
	return playlistName + "/" + filepath.Base(path)
}

// StartPlayback loads name and returns a fresh session over the entries whose
// files still exist. A missing playlist matches both ErrEmptyOrMissingPlaylist
// and ErrPlaylistNotFound.
func (s *Store) StartPlayback(ctx context.Context, name string) (*model.PlaylistSession, error) {
	pl, err := s.load(name)
	if errors.Is(err, ErrPlaylistNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrEmptyOrMissingPlaylist, err)
	}
	if err != nil {
		return nil, err
	}

	valid := make([]model.PlaylistEntry, 0, len(pl.Files))
	for _, entry := range pl.Files {
		if !utils.FileExists(entry.AudioFile) && s.archiver != nil {
			if err := s.restore(ctx, pl.Name, entry); err != nil {
				logger.Warn("playlist restore failed", logger.File(entry.AudioFile), logger.ErrorField(err))
			}
		}
		if !utils.FileExists(entry.AudioFile) {
			logger.Warn("playlist file missing, skipping",
				logger.String("playlist", pl.Name),
				logger.File(entry.AudioFile))
			continue
		}
		valid = append(valid, entry)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyOrMissingPlaylist, pl.Name)
	}

	logger.Info("playlist session started",
		logger.String("playlist", pl.Name),
		logger.Int("songs", len(valid)),
		logger.Int("skipped", len(pl.Files)-len(valid)))
	return model.NewPlaylistSession(pl.Name, valid), nil
}

func (s *Store) restore(ctx context.Context, playlistName string, entry model.PlaylistEntry) error {
	if err := s.archiver.Restore(ctx, s.archiveKey(playlistName, entry.AudioFile), entry.AudioFile); err != nil {
		return err
	}
	if entry.MetadataFile != "" && !utils.FileExists(entry.MetadataFile) {
		if err := s.archiver.Restore(ctx, s.archiveKey(playlistName, entry.MetadataFile), entry.MetadataFile); err != nil {
			logger.Debug("sidecar restore failed", logger.File(entry.MetadataFile), logger.ErrorField(err))
		}
	}
	logger.Info("restored playlist file from archive", logger.File(entry.AudioFile))
	return nil
}

// IsProtected reports whether path is a playlist copy or is referenced by any
// playlist entry, by exact path or by file name.
func (s *Store) IsProtected(path string) bool {
	if s.inPlaylistDir(path) {
		return true
	}
	playlists, err := s.all()
	if err != nil {
		return false
	}
	clean := filepath.Clean(path)
	base := filepath.Base(path)
	for _, pl := range playlists {
		for _, entry := range pl.Files {
			if filepath.Clean(entry.AudioFile) == clean || filepath.Base(entry.AudioFile) == base {
				return true
			}
		}
	}
	return false
}

func (s *Store) inPlaylistDir(path string) bool {
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

// AvailableMedia 列出媒体库中的歌曲及标题，供添加到歌单时选择
func (s *Store) AvailableMedia() ([]model.MediaAsset, error) {
	if s.library == nil {
		return nil, nil
	}
	return s.library.List()
}
