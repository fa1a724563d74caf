package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/stats"
	"github.com/jholliman/vantage/internal/ui"
)

var watchIntervalFlag string

// watchCmd runs the live stats view.
var watchCmd = &cobra.Command{
	Use:   "watch [user@host[:port]]",
	Short: "Live stats view",
	Long: `Show a continuously refreshing stats view. With no target the active
host is used, falling back to the local machine.

Keyboard shortcuts:
  q / Esc / Ctrl+C  Quit
  r                 Refresh now

Examples:
  vantage watch
  vantage watch deploy@web-1
  vantage watch --interval 5s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, err := time.ParseDuration(watchIntervalFlag)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Invalid interval: "+watchIntervalFlag,
				"Use a duration like 2s, 5s, or 1m.")
		}
		if interval < 500*time.Millisecond {
			return errors.New(errors.ErrConfig,
				"Interval too short",
				"Use at least 500ms to avoid hammering the host.")
		}

		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		target, err := attachTarget(m, args)
		if err != nil {
			return err
		}

		// Each tick re-collects; the stored snapshot is refreshed as a
		// side effect so a later one-shot read is warm.
		fetch := func(ctx context.Context) (*stats.Snapshot, error) {
			snap, _, err := m.GetStats(ctx, false)
			return snap, err
		}
		return ui.RunWatch(target, interval, fetch)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchIntervalFlag, "interval", "2s", "refresh interval (e.g., 2s, 5s, 1m)")
	rootCmd.AddCommand(watchCmd)
}
