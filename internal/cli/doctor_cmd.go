package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jholliman/vantage/internal/doctor"
	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/profile"
	"github.com/jholliman/vantage/internal/ui"
)

var doctorSkipHostsFlag bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and connectivity problems",
	Long: `Run diagnostics on the local environment: config file, profile
store, SSH keys, and reachability of each saved host.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			// Still run the checks; the config check will report the
			// failure with more context.
			cfg = nil
		}

		storePath := ""
		if cfg != nil {
			storePath = cfg.ProfilesPathOrDefault()
		}

		active, hasActive := loadActive()
		checks := []doctor.Check{
			&doctor.ConfigCheck{Path: configFlag},
			&doctor.ProfilesCheck{Path: storePath},
			&doctor.ActiveHostCheck{Active: active, HasActive: hasActive, StorePath: storePath},
			&doctor.SSHKeyCheck{},
		}

		if !doctorSkipHostsFlag && storePath != "" {
			store, err := profile.NewStore(storePath)
			if err == nil {
				for _, p := range store.List() {
					checks = append(checks, &doctor.HostReachableCheck{Profile: p})
				}
			}
		}

		results := doctor.RunAllParallel(checks)
		for _, r := range results {
			fmt.Println(renderCheckResult(r))
		}

		passed, warned, failed := doctor.Summarize(results)
		fmt.Printf("\n%d passed, %d warnings, %d failed\n", passed, warned, failed)

		if failed > 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%d check(s) failed", failed),
				"Address the failures above and rerun 'vantage doctor'.")
		}
		return nil
	},
}

func renderCheckResult(r doctor.CheckResult) string {
	var symbol string
	switch r.Status {
	case doctor.StatusPass:
		symbol = lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess)
	case doctor.StatusWarn:
		symbol = lipgloss.NewStyle().Foreground(ui.ColorWarning).Render(ui.SymbolWarn)
	default:
		symbol = lipgloss.NewStyle().Foreground(ui.ColorError).Render(ui.SymbolFail)
	}

	line := fmt.Sprintf("%s %s", symbol, r.Message)
	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		line += "\n  " + lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(r.Suggestion)
	}
	return line
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorSkipHostsFlag, "skip-hosts", false, "skip host reachability checks")
	rootCmd.AddCommand(doctorCmd)
}
