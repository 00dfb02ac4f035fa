package cmd

import (
	"errors"
	"fmt"

	"AirgapFM/core/queue"
	"AirgapFM/model"

	"github.com/spf13/cobra"
)

var (
	cleanupAll    bool
	cleanupReason string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [file]",
	Short: "Ask the worker to delete a played file or sweep the cache",
	Long: `Send a cleanup signal through the queue directory. With a file argument the
worker deletes that blob if it is safe to; with --all it runs a full sweep.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanupAll == (len(args) == 1) {
			return errors.New("give either a file or --all")
		}
		producer, err := queue.NewProducer(cfg.QueueDir, cfg.ResultPollInterval, cfg.ResultTimeout)
		if err != nil {
			return err
		}

		var id string
		if cleanupAll {
			id, err = producer.SignalCleanupAll(cleanupReason)
		} else {
			id, err = producer.SignalCleanup(args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Cleanup signal %s written to %s\n", id, cfg.QueueDir)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "sweep the whole cache")
	cleanupCmd.Flags().StringVar(&cleanupReason, "reason", model.ReasonSystemShutdown, "reason recorded with --all")
	rootCmd.AddCommand(cleanupCmd)
}
