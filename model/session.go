package model

// LoopMode 循环模式
type LoopMode string

const (
	LoopOff    LoopMode = "off"
	LoopSingle LoopMode = "single"
	LoopAll    LoopMode = "all"
)

// ParseLoopMode accepts exactly off, single or all.
func ParseLoopMode(s string) (LoopMode, bool) {
	switch LoopMode(s) {
	case LoopOff, LoopSingle, LoopAll:
		return LoopMode(s), true
	}
	return "", false
}

// PlaybackState 会话播放状态
type PlaybackState string

const (
	StateIdle            PlaybackState = "idle"
	StatePlayingAdHoc    PlaybackState = "playing_adhoc"
	StatePlayingPlaylist PlaybackState = "playing_playlist"
)

// QueuedSong 点播队列中等待播放的歌曲
type QueuedSong struct {
	Title       string `json:"title"`
	FilePath    string `json:"file_path"`
	Duration    int    `json:"duration"`
	RequestedBy string `json:"requested_by"`
	Cached      bool   `json:"cached"`
}

// PlaylistSession iterates over a playlist for one session.
// CurrentIndex is the index of the next song to serve.
type PlaylistSession struct {
	PlaylistName  string          `json:"playlist_name"`
	Songs         []PlaylistEntry `json:"songs"`
	OriginalSongs []PlaylistEntry `json:"original_songs"`
	CurrentIndex  int             `json:"current_index"`
	TotalSongs    int             `json:"total_songs"`
	Shuffle       bool            `json:"shuffle"`
	LoopMode      LoopMode        `json:"loop_mode"`
}

// NewPlaylistSession starts at the first song with shuffle and loop off.
func NewPlaylistSession(name string, songs []PlaylistEntry) *PlaylistSession {
	play := make([]PlaylistEntry, len(songs))
	copy(play, songs)
	orig := make([]PlaylistEntry, len(songs))
	copy(orig, songs)
	return &PlaylistSession{
		PlaylistName:  name,
		Songs:         play,
		OriginalSongs: orig,
		TotalSongs:    len(songs),
		LoopMode:      LoopOff,
	}
}

// PlaybackSnapshot 同步到缓存的会话快照
type PlaybackSnapshot struct {
	SessionID    string        `json:"sessionId"`
	State        PlaybackState `json:"state"`
	CurrentTitle string        `json:"currentTitle,omitempty"`
	CurrentFile  string        `json:"currentFile,omitempty"`
	QueueLength  int           `json:"queueLength"`
	PlaylistName string        `json:"playlistName,omitempty"`
	CurrentIndex int           `json:"currentIndex"`
	TotalSongs   int           `json:"totalSongs"`
	Shuffle      bool          `json:"shuffle"`
	LoopMode     LoopMode      `json:"loopMode,omitempty"`
	UpdatedAt    int64         `json:"updatedAt"` // unix millis
}
