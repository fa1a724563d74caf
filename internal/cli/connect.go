package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/profile"
)

var (
	connectPasswordFlag string
	switchPasswordFlag  string
)

// connectCmd dials a host, saves its profile, and marks it active.
var connectCmd = &cobra.Command{
	Use:   "connect [user@host[:port]]",
	Short: "Connect to a host and save its profile",
	Long: `Authenticate against a host over SSH. On success the profile is saved
and the host becomes the default target for stats and watch.

With no target, an interactive form collects the connection details.

Examples:
  vantage connect deploy@web-1
  vantage connect deploy@web-1:2222
  vantage connect`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prof, err := resolveProfileArgs(args, connectPasswordFlag)
		if err != nil {
			return err
		}

		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		id, err := m.Connect(prof)
		if err != nil {
			return err
		}
		if err := saveActive(id); err != nil {
			return err
		}

		fmt.Printf("✓ Connected to %s\n", id)
		return nil
	},
}

// disconnectCmd forgets the active host.
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the active host",
	Long: `Clear the default target. Saved profiles are kept; use
'vantage profiles remove' to delete one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, ok := loadActive()
		if !ok {
			fmt.Println("No active host")
			return nil
		}
		clearActive()
		fmt.Printf("✓ Disconnected from %s\n", id)
		return nil
	},
}

// switchCmd moves the active target to another host.
var switchCmd = &cobra.Command{
	Use:   "switch <user@host[:port]>",
	Short: "Switch the active host",
	Long: `Connect to a new host and make it the default target, releasing the
previous one first.

Examples:
  vantage switch deploy@db-1
  vantage switch admin@web-2:2222`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prof, err := resolveProfileArgs(args, switchPasswordFlag)
		if err != nil {
			return err
		}

		m, err := newMonitor()
		if err != nil {
			return err
		}
		defer m.Close()

		old, hadOld := loadActive()

		id, err := m.SwitchTo(prof)
		if err != nil {
			clearActive()
			return err
		}
		if err := saveActive(id); err != nil {
			return err
		}

		if hadOld && old != id {
			fmt.Printf("✓ Switched from %s to %s\n", old, id)
		} else {
			fmt.Printf("✓ Switched to %s\n", id)
		}
		return nil
	},
}

// resolveProfileArgs builds a connection profile from the target
// argument and password flag, prompting for whatever is missing.
func resolveProfileArgs(args []string, passwordFlag string) (profile.Profile, error) {
	if len(args) == 0 {
		return promptProfile()
	}

	prof, err := parseTarget(args[0])
	if err != nil {
		return profile.Profile{}, err
	}
	prof.Password = passwordFlag
	if prof.Password == "" {
		pw, err := promptPassword(args[0])
		if err != nil {
			return profile.Profile{}, err
		}
		prof.Password = pw
	}
	return prof, nil
}

// promptProfile collects connection details interactively.
func promptProfile() (profile.Profile, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return profile.Profile{}, errors.New(errors.ErrConfig,
			"No target given and stdin is not a terminal",
			"Pass the target as an argument: vantage connect user@host")
	}

	var prof profile.Profile
	port := "22"
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Hostname").
				Value(&prof.Hostname).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("hostname is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Username").
				Value(&prof.Username),
			huh.NewInput().
				Title("Port").
				Value(&port),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&prof.Password),
		),
	)
	if err := form.Run(); err != nil {
		return profile.Profile{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Connection form cancelled", "")
	}

	if _, err := fmt.Sscanf(port, "%d", &prof.Port); err != nil {
		return profile.Profile{}, errors.New(errors.ErrConfig,
			"Invalid port: "+port, "Ports are numbers between 1 and 65535.")
	}
	return prof, nil
}

// promptPassword reads a password without echo.
func promptPassword(target string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New(errors.ErrConfig,
			"No password given and stdin is not a terminal",
			"Pass one with --password, or run interactively.")
	}

	fmt.Printf("Password for %s: ", target)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read password", "")
	}
	return string(pw), nil
}

func init() {
	connectCmd.Flags().StringVar(&connectPasswordFlag, "password", "", "password (prompted when omitted)")
	switchCmd.Flags().StringVar(&switchPasswordFlag, "password", "", "password (prompted when omitted)")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(switchCmd)
}
