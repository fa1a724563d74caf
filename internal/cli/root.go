// Package cli wires the cobra command tree for vantage. Commands talk to
// the monitor facade; one-shot commands build it, use it, and tear it
// down.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jholliman/vantage/internal/config"
	"github.com/jholliman/vantage/internal/monitor"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "vantage",
	Short: "Remote server stats over SSH",
	Long: `vantage collects CPU, memory, disk, network and process stats from a
remote host over SSH, with cached snapshots and a live watch view.

Connect once to save a host profile, then point stats or watch at it:

  vantage connect deploy@web-1
  vantage stats deploy@web-1
  vantage watch deploy@web-1`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.config/vantage/config.yaml)")
}

// Execute runs the CLI. Errors are rendered once, here; commands return
// them instead of printing.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig honors --config when given, falling back to the global file
// or defaults.
func loadConfig() (*config.Config, error) {
	if configFlag != "" {
		return config.Load(configFlag)
	}
	return config.LoadOrDefault()
}

// newMonitor builds the facade for a command invocation.
func newMonitor() (*monitor.Monitor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return monitor.New(cfg)
}
