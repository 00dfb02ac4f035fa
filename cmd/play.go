package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"AirgapFM/core/queue"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <query...>",
	Short: "Submit a playback request and wait for the worker's answer",
	Long: `Write a request into the queue directory and print the result once a
running worker has resolved it. Fails with a timeout if no worker answers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		producer, err := queue.NewProducer(cfg.QueueDir, cfg.ResultPollInterval, cfg.ResultTimeout)
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		fmt.Printf("Requesting %q...\n", query)

		res, id, err := producer.Request(context.Background(), query)
		if err != nil {
			return fmt.Errorf("request %s: %w", id, err)
		}
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		if !res.OK() {
			return fmt.Errorf("worker could not resolve %q: %s", query, res.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
