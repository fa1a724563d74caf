package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/monitor"
	"github.com/jholliman/vantage/internal/profile"
	"github.com/jholliman/vantage/internal/ui"
)

var (
	statsNoCacheFlag bool
	statsJSONFlag    bool
)

// statsCmd collects and prints one snapshot.
var statsCmd = &cobra.Command{
	Use:   "stats [user@host[:port]]",
	Short: "Show a stats snapshot",
	Long: `Collect CPU, memory, disk, load, network and process stats and print
them once. With no target the active host is used, falling back to the
local machine when nothing is connected.

Examples:
  vantage stats
  vantage stats deploy@web-1
  vantage stats --no-cache --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		target, err := attachTarget(m, args)
		if err != nil {
			return err
		}

		snap, cached, err := m.GetStats(context.Background(), !statsNoCacheFlag)
		if err != nil {
			return err
		}

		if statsJSONFlag {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		fmt.Println(ui.RenderSnapshot(snap, target))
		if cached {
			fmt.Println("(cached)")
		}
		return nil
	},
}

// attachTarget connects the monitor to the requested or active host and
// returns a display name for the snapshot. "local" means no host is
// connected and stats come from this machine.
func attachTarget(m *monitor.Monitor, args []string) (string, error) {
	if len(args) > 0 {
		prof, err := parseTarget(args[0])
		if err != nil {
			return "", err
		}
		prof, err = withStoredPassword(m, prof)
		if err != nil {
			return "", err
		}
		id, err := m.Connect(prof)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}

	if id, ok := loadActive(); ok {
		prof, found := m.FindProfile(id)
		if !found {
			return "", errors.New(errors.ErrConfig,
				"No saved profile for active host "+id.String(),
				"Reconnect with 'vantage connect "+id.String()+"'.")
		}
		connected, err := m.Connect(prof)
		if err != nil {
			return "", err
		}
		return connected.String(), nil
	}

	return "local", nil
}

// withStoredPassword fills a profile's password from the store, or
// prompts when the host was never saved.
func withStoredPassword(m *monitor.Monitor, prof profile.Profile) (profile.Profile, error) {
	if prof.Password != "" {
		return prof, nil
	}
	if saved, ok := m.FindProfile(prof.Normalize().Identity()); ok && saved.Password != "" {
		prof.Password = saved.Password
		return prof, nil
	}
	pw, err := promptPassword(prof.Normalize().Identity().String())
	if err != nil {
		return profile.Profile{}, err
	}
	prof.Password = pw
	return prof, nil
}

func init() {
	statsCmd.Flags().BoolVar(&statsNoCacheFlag, "no-cache", false, "bypass the snapshot cache")
	statsCmd.Flags().BoolVar(&statsJSONFlag, "json", false, "print the snapshot as JSON")

	rootCmd.AddCommand(statsCmd)
}
