package cmd

import (
	"fmt"
	"os"
	"strings"

	"AirgapFM/config"
	"AirgapFM/logger"

	"github.com/spf13/cobra"
)

// cfg 在任何子命令运行前加载一次
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "airgapfm",
	Short: "AirgapFM is a self-hosted music bot backend.",
	Long: `AirgapFM resolves search queries into cached audio files through a
worker process that talks to the front-end over a shared queue directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return logger.InitLogger(logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			Console:    strings.EqualFold(cfg.LogFormat, "console"),
			OutputPath: cfg.LogPath,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
