// Package frontend is what a chat bot talks to: it turns commands into queue
// requests, playlist operations and scheduler calls.
package frontend

import (
	"context"
	"errors"
	"fmt"

	"AirgapFM/core/player"
	"AirgapFM/core/playlist"
	"AirgapFM/core/queue"
	"AirgapFM/core/utils"
	"AirgapFM/logger"
	"AirgapFM/model"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrNoCurrentSong = errors.New("nothing is playing")
	ErrFileMissing   = errors.New("worker reported a file that does not exist")
)

// ResultError is an explicit error answer from the worker.
type ResultError struct {
	RequestID string
	Message   string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("request %s failed: %s", e.RequestID, e.Message)
}

// PlayOutcome is what a successful Play did.
type PlayOutcome struct {
	RequestID string                `json:"requestId"`
	Result    *model.PlaybackResult `json:"result"`
	Enqueue   player.EnqueueResult  `json:"enqueue"`
}

// Frontend glues the producer side of the queue to the scheduler.
type Frontend struct {
	producer  *queue.Producer
	scheduler *player.Scheduler
	playlists *playlist.Store
}

func New(producer *queue.Producer, scheduler *player.Scheduler, playlists *playlist.Store) *Frontend {
	return &Frontend{producer: producer, scheduler: scheduler, playlists: playlists}
}

// Scheduler returns the scheduler commands are routed to.
func (f *Frontend) Scheduler() *player.Scheduler {
	return f.scheduler
}

func (f *Frontend) Playlists() *playlist.Store {
	return f.playlists
}

// Play asks the worker for query and queues the result for sessionID.
// A worker that never answers yields queue.ErrResultTimeout; an explicit
// error answer yields *ResultError.
func (f *Frontend) Play(ctx context.Context, sessionID snowflake.ID, query, requester string) (*PlayOutcome, error) {
	res, id, err := f.producer.Request(ctx, query)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, &ResultError{RequestID: id, Message: res.Message}
	}
	if !utils.FileExists(res.FilePath) {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, res.FilePath)
	}

	enq, err := f.scheduler.Enqueue(sessionID, model.QueuedSong{
		Title:       res.Title,
		FilePath:    res.FilePath,
		Duration:    res.Duration,
		RequestedBy: requester,
		Cached:      res.Cached,
	})
	if err != nil {
		return nil, err
	}
	return &PlayOutcome{RequestID: id, Result: res, Enqueue: enq}, nil
}

// AddCurrentToPlaylist copies the song sessionID is playing into name.
func (f *Frontend) AddCurrentToPlaylist(ctx context.Context, sessionID snowflake.ID, name string) (*model.PlaylistEntry, error) {
	np := f.scheduler.CurrentSong(sessionID)
	if np == nil {
		return nil, ErrNoCurrentSong
	}
	return f.playlists.AddCurrentlyPlaying(ctx, name, np.FilePath, np.Title, np.Duration)
}

// PlayPlaylist loads name and starts it in sessionID.
func (f *Frontend) PlayPlaylist(ctx context.Context, sessionID snowflake.ID, name string) (*player.NowPlaying, error) {
	session, err := f.playlists.StartPlayback(ctx, name)
	if err != nil {
		return nil, err
	}
	return f.scheduler.StartPlaylist(sessionID, session)
}

// Skip moves within the playlist and ends the current song so the next one
// starts. Without a playlist, "next" still skips the current ad-hoc song.
func (f *Frontend) Skip(sessionID snowflake.ID, direction string) (player.SkipResult, error) {
	res, err := f.scheduler.Skip(sessionID, direction)
	if errors.Is(err, player.ErrNoActivePlaylist) && direction == "next" {
		if f.scheduler.Interrupt(sessionID) {
			return player.SkipResult{Direction: direction}, nil
		}
		return res, ErrNoCurrentSong
	}
	if err != nil {
		return res, err
	}
	f.scheduler.Interrupt(sessionID)
	return res, nil
}

// Stop halts sessionID and drops its queue and playlist.
func (f *Frontend) Stop(sessionID snowflake.ID) player.StopResult {
	return f.scheduler.Stop(sessionID)
}

// Release implements player.Releaser by signalling the worker.
func (f *Frontend) Release(path string) {
	if _, err := f.producer.SignalCleanup(path); err != nil {
		logger.Warn("failed to signal cleanup", logger.File(path), logger.ErrorField(err))
	}
}

// Startup asks the worker to sweep the cache before the bot takes requests.
func (f *Frontend) Startup() error {
	_, err := f.producer.SignalCleanupAll(model.ReasonStartup)
	return err
}

// Shutdown stops every session and asks the worker for a final sweep.
func (f *Frontend) Shutdown() error {
	for _, id := range f.scheduler.Registry().IDs() {
		f.scheduler.Stop(id)
	}
	_, err := f.producer.SignalCleanupAll(model.ReasonShutdown)
	return err
}
