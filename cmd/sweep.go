package cmd

import (
	"fmt"

	"AirgapFM/core/evictor"
	"AirgapFM/core/worker"
	"AirgapFM/storage"

	"github.com/spf13/cobra"
)

var sweepPolicy string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the eviction policies against the media library once",
	Long: `Apply the duplicate, age and size policies directly, without a running
worker. --policy limits the run to one of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := worker.New(cfg, nil)
		if err != nil {
			return err
		}
		ev := w.Evictor()

		var removed []evictor.Removed
		switch sweepPolicy {
		case "all":
			report := ev.RunFullSweep()
			fmt.Printf("Removed %d files (%s), %d orphaned queue files, %d failures\n",
				report.Total(), storage.FormatSize(report.Freed()), report.Orphans, report.Failed)
			return nil
		case "duplicates":
			removed = ev.CleanupDuplicates()
		case "age":
			removed = ev.CleanupByAge()
		case "size":
			removed = ev.CleanupBySize()
		default:
			return fmt.Errorf("unknown policy %q, use all, duplicates, age or size", sweepPolicy)
		}

		var freed int64
		for _, r := range removed {
			fmt.Printf("  %-10s %10s  %s\n", r.Reason, storage.FormatSize(r.Size), r.File)
			freed += r.Size
		}
		fmt.Printf("Removed %d files (%s)\n", len(removed), storage.FormatSize(freed))
		return nil
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepPolicy, "policy", "all", "all, duplicates, age or size")
	rootCmd.AddCommand(sweepCmd)
}
