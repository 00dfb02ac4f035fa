package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AirgapFM/model"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historySource string
	historyPrune  time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the request history recorded by the worker",
	Long: `Print recent requests and totals from the history database. Requires
HISTORY_ENABLED=true and the DB_* settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.HistoryEnabled {
			return errors.New("request history is disabled, set HISTORY_ENABLED=true")
		}
		repo, closeHistory, err := openHistory()
		if err != nil {
			return err
		}
		defer closeHistory()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if historyPrune > 0 {
			n, err := repo.PruneBefore(ctx, time.Now().Add(-historyPrune))
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d entries older than %s\n", n, historyPrune)
			return nil
		}

		if historySource != "" {
			n, err := repo.CountBySource(ctx, historySource)
			if err != nil {
				return err
			}
			fmt.Printf("%s requested %d times\n", historySource, n)
			return nil
		}

		stats, err := repo.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Total: %d  Failed: %d  Cache hits: %d\n", stats.Total, stats.Failed, stats.Cached)

		recent, err := repo.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		for _, h := range recent {
			mark := "fetched"
			if h.Cached {
				mark = "cached"
			}
			if h.Status != model.ResultSuccess {
				mark = "error"
			}
			fmt.Printf("%s  %-7s  %-40s  %s\n", h.CreatedAt.Format(time.DateTime), mark, h.Query, h.Title)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of recent requests to show")
	historyCmd.Flags().StringVar(&historySource, "source", "", "count requests for one source id")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete entries older than this")
	rootCmd.AddCommand(historyCmd)
}
