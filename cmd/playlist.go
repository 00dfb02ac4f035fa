package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"AirgapFM/core/worker"

	"github.com/spf13/cobra"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage saved playlists",
}

// openLibrary builds the stores without a fetcher; playlist commands never download.
func openLibrary() (*worker.Worker, error) {
	w, err := worker.New(cfg, nil)
	if err != nil {
		return nil, err
	}
	archive, err := openArchive()
	if err != nil {
		return nil, err
	}
	if archive != nil {
		w.SetArchiver(archive)
	}
	return w, nil
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openLibrary()
		if err != nil {
			return err
		}
		pl, err := w.Playlists().Create(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created playlist %q\n", pl.Name)
		return nil
	},
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List playlists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openLibrary()
		if err != nil {
			return err
		}
		list, err := w.Playlists().List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No playlists")
			return nil
		}
		for _, s := range list {
			fmt.Printf("%-30s %4d songs  %s\n", s.Name, s.Files, formatSeconds(s.Duration))
		}
		return nil
	},
}

var playlistShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the songs in a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openLibrary()
		if err != nil {
			return err
		}
		pl, err := w.Playlists().Get(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d songs, %s)\n", pl.Name, len(pl.Files), formatSeconds(int(pl.TotalDuration)))
		for i, e := range pl.Files {
			fmt.Printf("%3d. %-50s %s\n", i+1, e.Title, formatSeconds(int(e.Duration)))
		}
		return nil
	},
}

var playlistAddCmd = &cobra.Command{
	Use:   "add <name> <file>",
	Short: "Copy a file from the media library into a playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openLibrary()
		if err != nil {
			return err
		}
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}

		title := filepath.Base(path)
		duration := 0
		assets, err := w.Media().List()
		if err != nil {
			return err
		}
		for i := range assets {
			if assets[i].Path == path {
				title = assets[i].Title()
				duration = assets[i].Duration()
				break
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		entry, err := w.Playlists().AddCurrentlyPlaying(ctx, args[0], path, title, duration)
		if err != nil {
			return err
		}
		fmt.Printf("Added %q to %s\n", entry.Title, args[0])
		return nil
	},
}

var playlistMediaCmd = &cobra.Command{
	Use:   "media",
	Short: "List media library files that can be added to a playlist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openLibrary()
		if err != nil {
			return err
		}
		assets, err := w.Playlists().AvailableMedia()
		if err != nil {
			return err
		}
		for i := range assets {
			fmt.Printf("%-50s %s\n", assets[i].Title(), assets[i].Path)
		}
		return nil
	},
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func init() {
	playlistCmd.AddCommand(playlistCreateCmd, playlistListCmd, playlistShowCmd, playlistAddCmd, playlistMediaCmd)
	rootCmd.AddCommand(playlistCmd)
}
