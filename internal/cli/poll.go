package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/monitor"
	"github.com/jholliman/vantage/internal/scheduler"
)

var pollIntervalFlag string

// pollCmd runs the collection scheduler in the foreground, printing a
// summary line per refresh until interrupted.
var pollCmd = &cobra.Command{
	Use:   "poll [user@host[:port]]",
	Short: "Collect stats on an interval until interrupted",
	Long: `Start the periodic collector and print a one-line summary for each
refresh. Stop with Ctrl+C; a cache and scheduler summary is printed on
exit.

Examples:
  vantage poll deploy@web-1
  vantage poll --interval 10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var interval time.Duration
		if pollIntervalFlag != "" {
			parsed, err := time.ParseDuration(pollIntervalFlag)
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Invalid interval: "+pollIntervalFlag,
					"Use a duration like 10s, 30s, or 1m.")
			}
			interval = parsed
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

		if err := m.SchedulerStart(interval); err != nil {
			return err
		}

		st := m.SchedulerStatus()
		fmt.Printf("Polling %s every %.0fs (Ctrl+C to stop)\n", target, st.IntervalSeconds)

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)

		// Poll status at a fraction of the refresh interval so a
		// completed run is reported promptly.
		tick := time.Duration(st.IntervalSeconds * float64(time.Second) / 4)
		if tick < 250*time.Millisecond {
			tick = 250 * time.Millisecond
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		var reported uint64
		for {
			select {
			case <-stop:
				fmt.Println()
				m.SchedulerStop()
				printPollSummary(m)
				return nil
			case <-ticker.C:
				status := m.SchedulerStatus()
				if status.RunCount == reported {
					continue
				}
				reported = status.RunCount
				printPollLine(m, status)
			}
		}
	},
}

// printPollLine reads the snapshot the scheduler just stored and prints
// a compact summary. Failures show the scheduler's last error instead.
func printPollLine(m *monitor.Monitor, status scheduler.State) {
	now := time.Now().Format("15:04:05")
	if status.LastError != "" {
		fmt.Printf("%s  refresh failed: %s\n", now, status.LastError)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, _, err := m.GetStats(ctx, true)
	if err != nil {
		fmt.Printf("%s  refresh failed: %v\n", now, err)
		return
	}
	fmt.Printf("%s  cpu %5.1f%%  mem %5.1f%%  disk %5.1f%%  load %.2f  conns %d\n",
		now, snap.CPUPercent, snap.Memory.Percent, snap.DiskPercent,
		snap.Load.Load1, snap.Connections)
}

func printPollSummary(m *monitor.Monitor) {
	cs := m.CacheStats()
	st := m.SchedulerStatus()
	fmt.Printf("Stopped after %d refreshes (%d failed)\n", st.RunCount, st.FailCount)
	fmt.Printf("Cache: %d entries, %d hits, %d misses (%.0f%% hit rate)\n",
		cs.Size, cs.Hits, cs.Misses, cs.HitRate*100)
}

func init() {
	pollCmd.Flags().StringVar(&pollIntervalFlag, "interval", "", "refresh interval (default from config)")
	rootCmd.AddCommand(pollCmd)
}
