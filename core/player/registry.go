package player

import (
	"sort"
	"sync"

	"AirgapFM/model"

	"github.com/disgoorg/snowflake/v2"
)

// NowPlaying 会话当前播放的歌曲
type NowPlaying struct {
	Title        string `json:"title"`
	FilePath     string `json:"filePath"`
	Duration     int    `json:"duration"`
	RequestedBy  string `json:"requestedBy,omitempty"`
	Cached       bool   `json:"cached"`
	FromPlaylist bool   `json:"fromPlaylist"`
}

// SessionState 单个会话（一个服务器）的播放状态
type SessionState struct {
	mu         sync.Mutex
	id         snowflake.ID
	queue      []model.QueuedSong
	current    *NowPlaying
	playlist   *model.PlaylistSession
	generation uint64 // bumped on every start and stop; stale completions carry an old value
}

func (st *SessionState) stateLocked() model.PlaybackState {
	switch {
	case st.current == nil:
		return model.StateIdle
	case st.current.FromPlaylist:
		return model.StatePlayingPlaylist
	default:
		return model.StatePlayingAdHoc
	}
}

// Registry 会话 id 到播放状态的映射
type Registry struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*SessionState
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[snowflake.ID]*SessionState)}
}

// Get 获取会话状态
func (r *Registry) Get(id snowflake.ID) (*SessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.sessions[id]
	return st, ok
}

// GetOrCreate 获取会话状态，不存在时创建空闲会话
func (r *Registry) GetOrCreate(id snowflake.ID) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.sessions[id]
	if !ok {
		st = &SessionState{id: id}
		r.sessions[id] = st
	}
	return st
}

// Remove 移除会话
func (r *Registry) Remove(id snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// IDs 按升序列出所有会话
func (r *Registry) IDs() []snowflake.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]snowflake.ID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
