package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"AirgapFM/core/audio"
	"AirgapFM/core/frontend"
	"AirgapFM/core/player"
	"AirgapFM/core/playlist"
	"AirgapFM/core/queue"
	"AirgapFM/logger"

	"github.com/disgoorg/snowflake/v2"
	"github.com/spf13/cobra"
)

var (
	radioSession uint64
	radioSilent  bool
)

var errQuit = errors.New("quit")

const consoleHelp = `Commands:
  play <query>            request a song and queue it
  skip | next             skip to the next song
  prev | previous         replay the previous playlist song
  stop                    stop and clear the queue
  clear                   clear the ad-hoc queue
  queue | status          show what is playing and queued
  playlist play <name>    start a playlist
  playlist add <name>     save the current song into a playlist
  playlists               list playlists
  shuffle                 toggle shuffle
  loop <off|single|all>   set the loop mode
  help                    show this help
  quit                    leave`

var radioCmd = &cobra.Command{
	Use:   "radio",
	Short: "Interactive console that plays through the queue",
	Long: `Run a local front-end: requests go to a running worker through the queue
directory and resolved songs play through ffplay.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		producer, err := queue.NewProducer(cfg.QueueDir, cfg.ResultPollInterval, cfg.ResultTimeout)
		if err != nil {
			return err
		}
		playlists, err := playlist.NewStore(cfg.PlaylistDir)
		if err != nil {
			return err
		}
		archive, err := openArchive()
		if err != nil {
			return err
		}
		if archive != nil {
			playlists.SetArchiver(archive)
		}

		ffplay := cfg.FFplayPath
		if radioSilent {
			ffplay = ""
		}
		out := audio.NewPlayer(ffplay, cfg.FFprobePath)
		defer out.Close()

		scheduler := player.NewScheduler(player.NewRegistry(), out)
		fe := frontend.New(producer, scheduler, playlists)
		if cfg.ReleaseAfterPlayback {
			scheduler.SetReleaser(fe)
		}

		sessions, closeSessions, err := openSessionCache()
		if err != nil {
			return err
		}
		defer closeSessions()
		if sessions != nil {
			scheduler.SetStateMirror(sessions)
		}

		if err := fe.Startup(); err != nil {
			logger.Warn("failed to signal startup cleanup", logger.ErrorField(err))
		}
		defer func() {
			if err := fe.Shutdown(); err != nil {
				logger.Warn("failed to signal shutdown cleanup", logger.ErrorField(err))
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("AirgapFM radio. Type 'help' for commands.")
		return runConsole(ctx, fe, snowflake.ID(radioSession), os.Stdin, os.Stdout)
	},
}

// readLines feeds lines from in until it is exhausted or ctx ends.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func runConsole(ctx context.Context, fe *frontend.Frontend, id snowflake.ID, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, in)

	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			reply, err := dispatch(ctx, fe, id, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			if reply != "" {
				fmt.Fprintln(out, reply)
			}
		}
	}
}

// dispatch runs one console line against session id.
func dispatch(ctx context.Context, fe *frontend.Frontend, id snowflake.ID, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, rest := strings.ToLower(fields[0]), fields[1:]
	sched := fe.Scheduler()

	switch cmd {
	case "help", "?":
		return consoleHelp, nil
	case "quit", "exit":
		return "", errQuit

	case "play":
		if len(rest) == 0 {
			return "", errors.New("usage: play <query>")
		}
		outcome, err := fe.Play(ctx, id, strings.Join(rest, " "), "console")
		if err != nil {
			return "", err
		}
		if outcome.Enqueue.Started {
			return fmt.Sprintf("Now playing: %s%s", outcome.Result.Title, cachedMark(outcome.Result.Cached)), nil
		}
		return fmt.Sprintf("Queued at #%d: %s%s", outcome.Enqueue.Position, outcome.Result.Title, cachedMark(outcome.Result.Cached)), nil

	case "skip", "next":
		res, err := fe.Skip(id, "next")
		if err != nil {
			return "", err
		}
		if res.Song != nil {
			return fmt.Sprintf("Skipped to #%d: %s", res.Position, res.Song.Title), nil
		}
		return "Skipped", nil

	case "prev", "previous":
		res, err := fe.Skip(id, "previous")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Back to #%d: %s", res.Position, res.Song.Title), nil

	case "stop":
		res := fe.Stop(id)
		msg := fmt.Sprintf("Stopped, cleared %d queued songs", res.ClearedQueue)
		if res.PlaylistName != "" {
			msg += fmt.Sprintf(" and left playlist %s", res.PlaylistName)
		}
		return msg, nil

	case "clear":
		return fmt.Sprintf("Cleared %d queued songs", sched.ClearQueue(id)), nil

	case "queue", "status", "np":
		return formatStatus(sched.Status(id)), nil

	case "shuffle":
		on, err := sched.ToggleShuffle(id)
		if err != nil {
			return "", err
		}
		if on {
			return "Shuffle on", nil
		}
		return "Shuffle off", nil

	case "loop":
		if len(rest) != 1 {
			return "", errors.New("usage: loop <off|single|all>")
		}
		if err := sched.SetLoopMode(id, strings.ToLower(rest[0])); err != nil {
			return "", err
		}
		return "Loop mode: " + strings.ToLower(rest[0]), nil

	case "playlists":
		return formatPlaylists(fe)

	case "playlist":
		if len(rest) != 2 {
			return "", errors.New("usage: playlist <play|add> <name>")
		}
		switch rest[0] {
		case "play":
			np, err := fe.PlayPlaylist(ctx, id, rest[1])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Playing playlist %s: %s", rest[1], np.Title), nil
		case "add":
			entry, err := fe.AddCurrentToPlaylist(ctx, id, rest[1])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Saved %q to %s", entry.Title, rest[1]), nil
		}
		return "", fmt.Errorf("unknown playlist action %q", rest[0])
	}
	return "", fmt.Errorf("unknown command %q, type 'help'", cmd)
}

func formatPlaylists(fe *frontend.Frontend) (string, error) {
	list, err := fe.Playlists().List()
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "No playlists", nil
	}
	lines := make([]string, 0, len(list))
	for _, s := range list {
		lines = append(lines, fmt.Sprintf("%-30s %4d songs  %s", s.Name, s.Files, formatSeconds(s.Duration)))
	}
	return strings.Join(lines, "\n"), nil
}

func cachedMark(cached bool) string {
	if cached {
		return " (cached)"
	}
	return ""
}

func formatStatus(st player.Status) string {
	var b strings.Builder
	if st.Current == nil {
		b.WriteString("Nothing playing")
	} else {
		fmt.Fprintf(&b, "Now playing: %s [%s]", st.Current.Title, formatSeconds(st.Current.Duration))
	}
	if pl := st.Playlist; pl != nil {
		fmt.Fprintf(&b, "\nPlaylist %s: %d/%d, shuffle=%t, loop=%s", pl.Name, pl.Position, pl.Total, pl.Shuffle, pl.LoopMode)
	}
	if len(st.Queue) == 0 {
		b.WriteString("\nQueue is empty")
	}
	for i, q := range st.Queue {
		fmt.Fprintf(&b, "\n%3d. %s", i+1, q.Title)
	}
	return b.String()
}

func init() {
	radioCmd.Flags().Uint64Var(&radioSession, "session", 1, "session id the console plays in")
	radioCmd.Flags().BoolVar(&radioSilent, "silent", false, "hold songs for their duration instead of playing them")
	rootCmd.AddCommand(radioCmd)
}
