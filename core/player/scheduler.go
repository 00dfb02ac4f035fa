// Package player schedules what each session plays next: ad-hoc requests
// first, then the active playlist.
package player

import (
	"context"
	"fmt"
	"time"

	"AirgapFM/core/utils"
	"AirgapFM/logger"
	"AirgapFM/model"

	"github.com/disgoorg/snowflake/v2"
)

// Player is the audio output for a session. onDone must be called exactly
// once per successful Play, including when playback is stopped.
type Player interface {
	Play(sessionID snowflake.ID, path string, onDone func(error)) error
	Stop(sessionID snowflake.ID)
}

// StateMirror receives a snapshot after every state change.
type StateMirror interface {
	SaveSnapshot(ctx context.Context, sessionID snowflake.ID, snap *model.PlaybackSnapshot) error
	DeleteSnapshot(ctx context.Context, sessionID snowflake.ID) error
}

// Releaser is told when an ad-hoc file is no longer needed by playback.
type Releaser interface {
	Release(path string)
}

const mirrorTimeout = 2 * time.Second

// EnqueueResult says whether the song started right away or where it waits.
type EnqueueResult struct {
	Started    bool        `json:"started"`
	Position   int         `json:"position,omitempty"` // 1-based queue position when not started
	NowPlaying *NowPlaying `json:"nowPlaying,omitempty"`
}

// SkipResult reports what a skip changed.
type SkipResult struct {
	Direction string               `json:"direction"`
	Song      *model.PlaylistEntry `json:"song,omitempty"`
	Position  int                  `json:"position,omitempty"`
}

// StopResult reports what a stop discarded.
type StopResult struct {
	ClearedQueue int    `json:"clearedQueue"`
	PlaylistName string `json:"playlistName,omitempty"`
	WasPlaying   bool   `json:"wasPlaying"`
}

// PlaylistStatus is the iterator position of the active playlist.
type PlaylistStatus struct {
	Name      string         `json:"name"`
	Position  int            `json:"position"`
	Total     int            `json:"total"`
	Remaining int            `json:"remaining"`
	Shuffle   bool           `json:"shuffle"`
	LoopMode  model.LoopMode `json:"loopMode"`
}

// Status is a read-only view of one session.
type Status struct {
	State    model.PlaybackState `json:"state"`
	Current  *NowPlaying         `json:"current,omitempty"`
	Queue    []model.QueuedSong  `json:"queue"`
	Playlist *PlaylistStatus     `json:"playlist,omitempty"`
}

// Scheduler drives playback for every session in a Registry.
type Scheduler struct {
	registry *Registry
	player   Player
	mirror   StateMirror
	releaser Releaser
}

func NewScheduler(registry *Registry, player Player) *Scheduler {
	return &Scheduler{registry: registry, player: player}
}

// SetStateMirror enables best-effort mirroring of session state.
func (s *Scheduler) SetStateMirror(m StateMirror) {
	s.mirror = m
}

// SetReleaser enables release of ad-hoc files after playback.
func (s *Scheduler) SetReleaser(r Releaser) {
	s.releaser = r
}

// Registry returns the session registry.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

func fromQueued(q model.QueuedSong) *NowPlaying {
	return &NowPlaying{
		Title:       q.Title,
		FilePath:    q.FilePath,
		Duration:    q.Duration,
		RequestedBy: q.RequestedBy,
		Cached:      q.Cached,
	}
}

func fromEntry(e *model.PlaylistEntry) *NowPlaying {
	return &NowPlaying{
		Title:        e.Title,
		FilePath:     e.AudioFile,
		Duration:     int(e.Duration),
		FromPlaylist: true,
	}
}

// Enqueue plays song now if the session is idle, otherwise appends it.
func (s *Scheduler) Enqueue(id snowflake.ID, song model.QueuedSong) (EnqueueResult, error) {
	st := s.registry.GetOrCreate(id)

	st.mu.Lock()
	if st.current != nil {
		st.queue = append(st.queue, song)
		pos := len(st.queue)
		st.mu.Unlock()
		logger.Info("song queued",
			logger.Session(id),
			logger.String("title", song.Title),
			logger.Int("position", pos))
		s.publish(st)
		return EnqueueResult{Position: pos}, nil
	}
	np := fromQueued(song)
	gen := claimLocked(st, np)
	st.mu.Unlock()

	if err := s.start(st, gen, np); err != nil {
		s.publish(st)
		return EnqueueResult{}, err
	}
	s.publish(st)
	return EnqueueResult{Started: true, NowPlaying: np}, nil
}

func claimLocked(st *SessionState, np *NowPlaying) uint64 {
	st.current = np
	st.generation++
	return st.generation
}

func (s *Scheduler) start(st *SessionState, gen uint64, np *NowPlaying) error {
	id := st.id
	err := s.player.Play(id, np.FilePath, func(err error) {
		s.complete(id, gen, err)
	})
	if err != nil {
		st.mu.Lock()
		if st.generation == gen {
			st.current = nil
			st.generation++
		}
		st.mu.Unlock()
		return fmt.Errorf("start playback of %q: %w", np.Title, err)
	}
	logger.Info("now playing",
		logger.Session(id),
		logger.String("title", np.Title),
		logger.Bool("fromPlaylist", np.FromPlaylist))
	return nil
}

// OnPlaybackComplete finishes whatever the session is playing and moves on.
func (s *Scheduler) OnPlaybackComplete(id snowflake.ID, playErr error) {
	st, ok := s.registry.Get(id)
	if !ok {
		return
	}
	st.mu.Lock()
	gen := st.generation
	st.mu.Unlock()
	s.complete(id, gen, playErr)
}

func (s *Scheduler) complete(id snowflake.ID, gen uint64, playErr error) {
	st, ok := s.registry.Get(id)
	if !ok {
		return
	}

	st.mu.Lock()
	if st.generation != gen {
		st.mu.Unlock()
		return
	}
	finished := st.current
	st.current = nil
	st.generation++
	st.mu.Unlock()

	if playErr != nil {
		logger.Warn("playback ended with error", logger.Session(id), logger.ErrorField(playErr))
	}
	if finished != nil {
		s.release(finished)
	}

	s.playNext(st, false)
	s.publish(st)
}

func (s *Scheduler) release(np *NowPlaying) {
	if s.releaser == nil || np.FromPlaylist {
		return
	}
	s.releaser.Release(np.FilePath)
}

// playNext starts the next playable song. Songs whose files have vanished or
// that fail to start are skipped.
func (s *Scheduler) playNext(st *SessionState, preferPlaylist bool) *NowPlaying {
	st.mu.Lock()
	budget := len(st.queue) + 1
	if st.playlist != nil {
		budget += len(st.playlist.Songs)
	}
	st.mu.Unlock()

	for i := 0; i < budget; i++ {
		st.mu.Lock()
		if st.current != nil {
			st.mu.Unlock()
			return nil
		}
		np := s.nextLocked(st, preferPlaylist)
		if np == nil {
			st.mu.Unlock()
			return nil
		}
		if !utils.FileExists(np.FilePath) {
			st.mu.Unlock()
			logger.Warn("file missing, skipping",
				logger.Session(st.id),
				logger.File(np.FilePath))
			continue
		}
		gen := claimLocked(st, np)
		st.mu.Unlock()

		if err := s.start(st, gen, np); err != nil {
			logger.Warn("skipping song that failed to start", logger.Session(st.id), logger.ErrorField(err))
			continue
		}
		return np
	}
	return nil
}

func (s *Scheduler) nextLocked(st *SessionState, preferPlaylist bool) *NowPlaying {
	if !preferPlaylist {
		if np := popQueueLocked(st); np != nil {
			return np
		}
	}
	if st.playlist != nil {
		res := advance(st.playlist)
		if res.Status == AdvanceSuccess {
			return fromEntry(res.Song)
		}
		logger.Info("playlist finished",
			logger.Session(st.id),
			logger.String("playlist", st.playlist.PlaylistName))
		st.playlist = nil
	}
	return popQueueLocked(st)
}

func popQueueLocked(st *SessionState) *NowPlaying {
	if len(st.queue) == 0 {
		return nil
	}
	song := st.queue[0]
	st.queue = st.queue[1:]
	return fromQueued(song)
}

// StartPlaylist installs session for id, interrupting whatever was playing,
// and starts its first song.
func (s *Scheduler) StartPlaylist(id snowflake.ID, session *model.PlaylistSession) (*NowPlaying, error) {
	if session == nil || len(session.Songs) == 0 {
		return nil, ErrNoActivePlaylist
	}
	st := s.registry.GetOrCreate(id)

	st.mu.Lock()
	st.playlist = session
	interrupted := st.current
	if interrupted != nil {
		st.current = nil
		st.generation++
	}
	st.mu.Unlock()

	if interrupted != nil {
		s.player.Stop(id)
		s.release(interrupted)
	}

	np := s.playNext(st, true)
	s.publish(st)
	if np == nil {
		return nil, fmt.Errorf("%w: nothing in %q could be played", ErrNoActivePlaylist, session.PlaylistName)
	}
	return np, nil
}

// Advance moves the playlist cursor without touching playback.
func (s *Scheduler) Advance(id snowflake.ID) (AdvanceResult, error) {
	st, ok := s.registry.Get(id)
	if !ok {
		return AdvanceResult{}, ErrNoActivePlaylist
	}
	st.mu.Lock()
	if st.playlist == nil {
		st.mu.Unlock()
		return AdvanceResult{}, ErrNoActivePlaylist
	}
	res := advance(st.playlist)
	if res.Status == AdvanceFinished {
		st.playlist = nil
	}
	st.mu.Unlock()
	s.publish(st)
	return res, nil
}

// withPlaylist runs fn on the active playlist session of id.
func (s *Scheduler) withPlaylist(id snowflake.ID, fn func(ps *model.PlaylistSession) error) error {
	st, ok := s.registry.Get(id)
	if !ok {
		return ErrNoActivePlaylist
	}
	st.mu.Lock()
	if st.playlist == nil {
		st.mu.Unlock()
		return ErrNoActivePlaylist
	}
	err := fn(st.playlist)
	st.mu.Unlock()
	if err == nil {
		s.publish(st)
	}
	return err
}

// ToggleShuffle flips shuffle and returns the new setting.
func (s *Scheduler) ToggleShuffle(id snowflake.ID) (bool, error) {
	var enabled bool
	err := s.withPlaylist(id, func(ps *model.PlaylistSession) error {
		if ps.Shuffle {
			unshuffle(ps)
		} else {
			shuffleRemaining(ps)
		}
		enabled = ps.Shuffle
		return nil
	})
	return enabled, err
}

// SetLoopMode accepts off, single or all.
func (s *Scheduler) SetLoopMode(id snowflake.ID, mode string) error {
	return s.withPlaylist(id, func(ps *model.PlaylistSession) error {
		m, ok := model.ParseLoopMode(mode)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidLoopMode, mode)
		}
		ps.LoopMode = m
		return nil
	})
}

// Skip adjusts the playlist cursor. "next" only validates; the caller stops
// current playback and the completion path advances. "previous" rewinds so
// that the next advance serves the song before the current one.
func (s *Scheduler) Skip(id snowflake.ID, direction string) (SkipResult, error) {
	var res SkipResult
	err := s.withPlaylist(id, func(ps *model.PlaylistSession) error {
		switch direction {
		case "next":
			if ps.CurrentIndex >= len(ps.Songs) {
				return ErrAtEnd
			}
			res = SkipResult{Direction: direction}
		case "previous":
			if len(ps.Songs) == 0 {
				return ErrAtEnd
			}
			idx := 0
			if ps.CurrentIndex > 1 {
				idx = ps.CurrentIndex - 2
			}
			ps.CurrentIndex = idx
			song := ps.Songs[idx]
			res = SkipResult{Direction: direction, Song: &song, Position: idx + 1}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
		}
		return nil
	})
	return res, err
}

// Interrupt stops the current song; the completion path picks the next one.
func (s *Scheduler) Interrupt(id snowflake.ID) bool {
	st, ok := s.registry.Get(id)
	if !ok {
		return false
	}
	st.mu.Lock()
	playing := st.current != nil
	st.mu.Unlock()
	if playing {
		s.player.Stop(id)
	}
	return playing
}

// Stop clears the queue and the playlist session and halts playback.
func (s *Scheduler) Stop(id snowflake.ID) StopResult {
	st, ok := s.registry.Get(id)
	if !ok {
		return StopResult{}
	}

	st.mu.Lock()
	res := StopResult{ClearedQueue: len(st.queue), WasPlaying: st.current != nil}
	if st.playlist != nil {
		res.PlaylistName = st.playlist.PlaylistName
	}
	st.queue = nil
	st.playlist = nil
	cur := st.current
	st.current = nil
	st.generation++
	st.mu.Unlock()

	if cur != nil {
		s.player.Stop(id)
		s.release(cur)
	}
	logger.Info("playback stopped",
		logger.Session(id),
		logger.Int("clearedQueue", res.ClearedQueue))
	s.publish(st)
	return res
}

// ClearQueue drops waiting ad-hoc songs and returns how many there were.
func (s *Scheduler) ClearQueue(id snowflake.ID) int {
	st, ok := s.registry.Get(id)
	if !ok {
		return 0
	}
	st.mu.Lock()
	n := len(st.queue)
	st.queue = nil
	st.mu.Unlock()
	s.publish(st)
	return n
}

// Forget stops id and removes it from the registry and the mirror.
func (s *Scheduler) Forget(id snowflake.ID) {
	s.Stop(id)
	s.registry.Remove(id)
	if s.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := s.mirror.DeleteSnapshot(ctx, id); err != nil {
			logger.Debug("mirror delete failed", logger.Session(id), logger.ErrorField(err))
		}
	}
}

// CurrentSong returns a copy of what id is playing, or nil.
func (s *Scheduler) CurrentSong(id snowflake.ID) *NowPlaying {
	st, ok := s.registry.Get(id)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current == nil {
		return nil
	}
	np := *st.current
	return &np
}

// Status reports the session's state; unknown sessions are idle.
func (s *Scheduler) Status(id snowflake.ID) Status {
	st, ok := s.registry.Get(id)
	if !ok {
		return Status{State: model.StateIdle, Queue: []model.QueuedSong{}}
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	out := Status{
		State: st.stateLocked(),
		Queue: append([]model.QueuedSong{}, st.queue...),
	}
	if st.current != nil {
		np := *st.current
		out.Current = &np
	}
	if ps := st.playlist; ps != nil {
		out.Playlist = &PlaylistStatus{
			Name:      ps.PlaylistName,
			Position:  ps.CurrentIndex,
			Total:     ps.TotalSongs,
			Remaining: ps.TotalSongs - ps.CurrentIndex,
			Shuffle:   ps.Shuffle,
			LoopMode:  ps.LoopMode,
		}
	}
	return out
}

func (s *Scheduler) publish(st *SessionState) {
	if s.mirror == nil {
		return
	}
	st.mu.Lock()
	snap := &model.PlaybackSnapshot{
		SessionID:   st.id.String(),
		State:       st.stateLocked(),
		QueueLength: len(st.queue),
		UpdatedAt:   time.Now().UnixMilli(),
	}
	if st.current != nil {
		snap.CurrentTitle = st.current.Title
		snap.CurrentFile = st.current.FilePath
	}
	if ps := st.playlist; ps != nil {
		snap.PlaylistName = ps.PlaylistName
		snap.CurrentIndex = ps.CurrentIndex
		snap.TotalSongs = ps.TotalSongs
		snap.Shuffle = ps.Shuffle
		snap.LoopMode = ps.LoopMode
	}
	st.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := s.mirror.SaveSnapshot(ctx, st.id, snap); err != nil {
		logger.Debug("mirror save failed", logger.Session(st.id), logger.ErrorField(err))
	}
}
