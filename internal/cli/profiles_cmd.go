package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/ui"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage saved connection profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		profiles := m.Profiles()
		if len(profiles) == 0 {
			fmt.Println("No saved profiles. Use 'vantage connect user@host' to add one.")
			return nil
		}

		active, hasActive := loadActive()
		for _, p := range profiles {
			marker := " "
			if hasActive && p.Identity() == active {
				marker = ui.SymbolActive
			}
			fmt.Printf("%s %s\n", marker, p.Identity().String())
		}
		return nil
	},
}

var profilesRemoveCmd = &cobra.Command{
	Use:   "remove <user@host[:port]>",
	Short: "Remove a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prof, err := parseTarget(args[0])
		if err != nil {
			return err
		}

		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		id := prof.Identity()
		if _, ok := m.FindProfile(id); !ok {
			return errors.New(errors.ErrConfig,
				"No saved profile for "+id.String(),
				"Run 'vantage profiles list' to see saved profiles.")
		}
		if err := m.RemoveProfile(id); err != nil {
			return err
		}

		// Removing the active host's profile also clears the active marker.
		if active, ok := loadActive(); ok && active == id {
			clearActive()
		}

		fmt.Printf("%s Removed %s\n", ui.SymbolSuccess, id.String())
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesRemoveCmd)
	rootCmd.AddCommand(profilesCmd)
}
