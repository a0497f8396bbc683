package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the result cache",
	Long: `Verified results are cached by text fingerprint so repeated checks
of the same text are answered locally. Entries expire after the
configured TTL and the cache evicts least-recently-used entries when
full.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		stats, err := a.cache.Stats()
		if err != nil {
			return fmt.Errorf("read cache stats: %w", err)
		}

		fmt.Printf("Entries:     %d (max %d)\n", stats.TotalEntries, a.cfg.Cache.MaxEntries)
		fmt.Printf("Size:        %d bytes\n", stats.SizeBytes)
		fmt.Printf("TTL:         %s\n", humanDuration(a.cfg.Cache.TTL))
		if stats.TotalEntries > 0 {
			fmt.Printf("Oldest:      %s ago\n", humanDuration(time.Since(stats.OldestEntry)))
			fmt.Printf("Newest:      %s ago\n", humanDuration(time.Since(stats.NewestEntry)))
			fmt.Printf("Average age: %s\n", humanDuration(stats.AverageAge))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached results",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.cache.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Println("✓ Cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
