package cmd

import (
	"context"
	"fmt"
	"time"

	"AirgapFM/cache"

	"github.com/disgoorg/snowflake/v2"
	"github.com/spf13/cobra"
)

var redisSession string

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis session mirror",
	Long: `Connect to Redis, run a read/write round trip and list the sessions that
have mirrored their playback state. --session prints one snapshot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer cache.CloseRedis()

		if err := cache.TestRedis(); err != nil {
			return fmt.Errorf("redis round trip: %w", err)
		}
		fmt.Println("Redis read/write OK")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sc := cache.NewSessionCache()

		if redisSession != "" {
			id, err := snowflake.Parse(redisSession)
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", redisSession, err)
			}
			snap, err := sc.GetSnapshot(ctx, id)
			if err != nil {
				return err
			}
			if snap == nil {
				fmt.Printf("No snapshot for session %s\n", id)
				return nil
			}
			printSnapshot(snap.SessionID, string(snap.State), snap.CurrentTitle, snap.QueueLength, snap.PlaylistName, snap.CurrentIndex, snap.TotalSongs)
			return nil
		}

		ids, err := sc.Sessions(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d mirrored sessions\n", len(ids))
		for _, id := range ids {
			snap, err := sc.GetSnapshot(ctx, id)
			if err != nil || snap == nil {
				continue
			}
			printSnapshot(snap.SessionID, string(snap.State), snap.CurrentTitle, snap.QueueLength, snap.PlaylistName, snap.CurrentIndex, snap.TotalSongs)
		}
		return nil
	},
}

func printSnapshot(id, state, title string, queued int, playlist string, index, total int) {
	fmt.Printf("%s  %-16s  %q  queued=%d", id, state, title, queued)
	if playlist != "" {
		fmt.Printf("  playlist=%s %d/%d", playlist, index, total)
	}
	fmt.Println()
}

func init() {
	redisCmd.Flags().StringVar(&redisSession, "session", "", "show the snapshot of one session")
	rootCmd.AddCommand(redisCmd)
}
