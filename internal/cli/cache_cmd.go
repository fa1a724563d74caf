package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the snapshot cache",
	Long: `Show the snapshot cache configuration and counters. Cache state lives
inside a running process; counters accumulate over a poll or watch
session, while one-shot commands start fresh.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache configuration and counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		cs := m.CacheStats()
		fmt.Printf("enabled:   %v\n", cs.Enabled)
		fmt.Printf("ttl:       %s\n", cs.DefaultTTL)
		fmt.Printf("entries:   %d\n", cs.Size)
		fmt.Printf("hits:      %d\n", cs.Hits)
		fmt.Printf("misses:    %d\n", cs.Misses)
		fmt.Printf("hit rate:  %.0f%%\n", cs.HitRate*100)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached snapshots and reset counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		m.CacheClear()
		fmt.Println("✓ Cache cleared")
		return nil
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reclaim expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		removed := m.CacheCleanupExpired()
		fmt.Printf("✓ Removed %d expired entries\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	rootCmd.AddCommand(cacheCmd)
}
