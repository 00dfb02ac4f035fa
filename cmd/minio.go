package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AirgapFM/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the playlist archive bucket",
	Long:  `List the playlist files archived in MinIO, optionally under a prefix, or print bucket totals.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.MinioEnabled {
			return errors.New("playlist archive is disabled, set MINIO_ENABLED=true")
		}
		fmt.Printf("MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		archive, err := openArchive()
		if err != nil {
			return fmt.Errorf("connect to minio: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		objects, stats, err := archive.List(ctx, minioPrefix)
		if err != nil {
			return err
		}

		if !minioStats {
			for _, o := range objects {
				fmt.Printf("%-60s %10s  %s\n", o.Key, storage.FormatSize(o.Size), o.LastModified.Format(time.DateTime))
			}
		}
		fmt.Printf("Objects: %d  Size: %s", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("  Last modified: %s", stats.LastModified.Format(time.DateTime))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only list objects under this prefix")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print totals only")
	rootCmd.AddCommand(minioCmd)
}
