package audio

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"AirgapFM/logger"

	"github.com/disgoorg/snowflake/v2"
)

const defaultSilentDuration = 30 * time.Second

type playback struct {
	cancel context.CancelFunc
}

// Player plays one file per session through ffplay. Without an ffplay
// binary it runs silently, holding each song for its ffprobe duration.
type Player struct {
	ffplayPath  string
	ffprobePath string
	fallback    time.Duration

	mu       sync.Mutex
	sessions map[snowflake.ID]*playback
}

func NewPlayer(ffplayPath, ffprobePath string) *Player {
	return &Player{
		ffplayPath:  ffplayPath,
		ffprobePath: ffprobePath,
		fallback:    defaultSilentDuration,
		sessions:    make(map[snowflake.ID]*playback),
	}
}

// SetFallbackDuration 设置无法获取时长时静默播放的时长
func (p *Player) SetFallbackDuration(d time.Duration) {
	p.fallback = d
}

// Play starts path for id, replacing anything id was playing. onDone runs
// once when the song ends or is stopped; a stopped song reports nil.
func (p *Player) Play(id snowflake.ID, path string, onDone func(error)) error {
	p.Stop(id)

	ctx, cancel := context.WithCancel(context.Background())
	var wait func() error
	if p.ffplayPath != "" {
		cmd := exec.CommandContext(ctx, p.ffplayPath, "-nodisp", "-autoexit", "-loglevel", "error", path)
		if err := cmd.Start(); err != nil {
			cancel()
			return fmt.Errorf("start ffplay: %w", err)
		}
		wait = cmd.Wait
	} else {
		d := p.silentDuration(ctx, path)
		wait = func() error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	pb := &playback{cancel: cancel}
	p.mu.Lock()
	p.sessions[id] = pb
	p.mu.Unlock()

	go func() {
		err := wait()
		stopped := ctx.Err() != nil
		cancel()

		p.mu.Lock()
		if p.sessions[id] == pb {
			delete(p.sessions, id)
		}
		p.mu.Unlock()

		if stopped {
			err = nil
		}
		if err != nil {
			logger.Warn("playback process failed", logger.Session(id), logger.ErrorField(err))
		}
		onDone(err)
	}()
	return nil
}

func (p *Player) silentDuration(ctx context.Context, path string) time.Duration {
	if p.ffprobePath == "" {
		return p.fallback
	}
	durCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	d, err := FileDuration(durCtx, p.ffprobePath, path)
	if err != nil || d <= 0 {
		logger.Debug("duration lookup failed, using fallback duration", logger.File(path), logger.ErrorField(err))
		return p.fallback
	}
	return d
}

// Stop 停止会话当前的播放
func (p *Player) Stop(id snowflake.ID) {
	p.mu.Lock()
	pb := p.sessions[id]
	delete(p.sessions, id)
	p.mu.Unlock()
	if pb != nil {
		pb.cancel()
	}
}

// Close 停止所有会话的播放
func (p *Player) Close() {
	p.mu.Lock()
	all := p.sessions
	p.sessions = make(map[snowflake.ID]*playback)
	p.mu.Unlock()
	for _, pb := range all {
		pb.cancel()
	}
}
