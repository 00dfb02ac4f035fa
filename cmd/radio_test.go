package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AirgapFM/core/audio"
	"AirgapFM/core/frontend"
	"AirgapFM/core/player"
	"AirgapFM/core/playlist"
	"AirgapFM/core/queue"
)

func newConsoleFrontend(t *testing.T) *frontend.Frontend {
	t.Helper()
	root := t.TempDir()
	producer, err := queue.NewProducer(filepath.Join(root, "queue"), 10*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	playlists, err := playlist.NewStore(filepath.Join(root, "playlists"))
	if err != nil {
		t.Fatal(err)
	}
	out := audio.NewPlayer("", "")
	t.Cleanup(out.Close)
	return frontend.New(producer, player.NewScheduler(player.NewRegistry(), out), playlists)
}

func TestDispatch(t *testing.T) {
	fe := newConsoleFrontend(t)
	ctx := context.Background()

	var tests = []struct {
		line    string
		want    string
		wantErr error
	}{
		{"", "", nil},
		{"help", "Commands:", nil},
		{"status", "Nothing playing", nil},
		{"clear", "Cleared 0 queued songs", nil},
		{"stop", "Stopped, cleared 0 queued songs", nil},
		{"playlists", "No playlists", nil},
		{"shuffle", "", player.ErrNoActivePlaylist},
		{"loop all", "", player.ErrNoActivePlaylist},
		{"prev", "", player.ErrNoActivePlaylist},
		{"skip", "", frontend.ErrNoCurrentSong},
		{"playlist add mix", "", frontend.ErrNoCurrentSong},
		{"playlist play missing", "", playlist.ErrPlaylistNotFound},
		{"play some song", "", queue.ErrResultTimeout},
		{"quit", "", errQuit},
	}
	for _, test := range tests {
		got, err := dispatch(ctx, fe, 7, test.line)
		if test.wantErr != nil {
			if !errors.Is(err, test.wantErr) {
				t.Errorf("dispatch(%q) err = %v, want %v", test.line, err, test.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("dispatch(%q) err = %v", test.line, err)
			continue
		}
		if !strings.HasPrefix(got, test.want) {
			t.Errorf("dispatch(%q) = %q, want prefix %q", test.line, got, test.want)
		}
	}
}

func TestDispatchUsage(t *testing.T) {
	fe := newConsoleFrontend(t)
	for _, line := range []string{"play", "loop", "playlist play", "playlist dance mix", "dance"} {
		if _, err := dispatch(context.Background(), fe, 7, line); err == nil {
			t.Errorf("dispatch(%q) succeeded", line)
		}
	}
}

func TestRunConsole(t *testing.T) {
	fe := newConsoleFrontend(t)
	in := strings.NewReader("help\nbogus\nquit\nstatus\n")
	var out bytes.Buffer
	if err := runConsole(context.Background(), fe, 7, in, &out); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "Commands:") {
		t.Error("help text missing")
	}
	if !strings.Contains(s, `error: unknown command "bogus"`) {
		t.Errorf("unknown command not reported: %q", s)
	}
	if strings.Contains(s, "Nothing playing") {
		t.Error("console kept reading after quit")
	}
}

// endless never runs dry.
type endless struct{}

func (endless) Read(p []byte) (int, error) {
	line := "status\n"
	n := 0
	for n+len(line) <= len(p) {
		n += copy(p[n:], line)
	}
	if n == 0 {
		return copy(p, line), nil
	}
	return n, nil
}

func TestReadLinesStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := readLines(ctx, endless{})
	if got := <-lines; got != "status" {
		t.Fatalf("first line = %q", got)
	}
	cancel()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("reader goroutine kept running after cancel")
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	var tests = []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{61, "1:01"},
		{3600, "60:00"},
	}
	for _, test := range tests {
		if got := formatSeconds(test.in); got != test.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}
