package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"AirgapFM/core/fetch"
	"AirgapFM/core/worker"
	"AirgapFM/logger"
	"AirgapFM/server"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker [query]",
	Short: "Run the background worker",
	Long: `Run the worker: serve the request queue, keep the media cache within its
limits and, when HTTP_ADDR is set, expose the admin API.

With a query argument the worker resolves that one query and exits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := worker.New(cfg, fetch.NewYtdlpFetcher(cfg.YtdlpProxy))
		if err != nil {
			return err
		}

		if len(args) == 1 {
			res, err := w.ProcessQuery(cmd.Context(), args[0])
			w.Media().Wait()
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		history, closeHistory, err := openHistory()
		if err != nil {
			return err
		}
		defer closeHistory()

		archive, err := openArchive()
		if err != nil {
			return err
		}
		if archive != nil {
			w.SetArchiver(archive)
		}

		sessions, closeSessions, err := openSessionCache()
		if err != nil {
			return err
		}
		defer closeSessions()

		if history != nil {
			w.SetHistoryRecorder(history)
		}

		if cfg.HTTPAddr != "" {
			h := server.NewAdminHandler(w)
			if history != nil {
				h.SetHistory(history)
			}
			if sessions != nil {
				h.SetSessions(sessions)
			}
			srv := server.New(cfg.HTTPAddr, h)
			go func() {
				if err := srv.Run(ctx); err != nil {
					logger.Error("admin API failed", logger.ErrorField(err))
				}
			}()
		}

		logger.Info("worker starting",
			logger.String("mediaDir", cfg.MediaDir),
			logger.String("queueDir", cfg.QueueDir),
			logger.String("playlistDir", cfg.PlaylistDir))
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
