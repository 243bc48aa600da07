package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loft-linux/loft/internal/daemon"
	"github.com/loft-linux/loft/internal/service"
)

// The control commands talk to a running daemon over D-Bus.

func controlCommand(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := service.Lookup(args[0])
			if err != nil {
				return err
			}
			running, err := daemon.IsAlreadyRunning(def)
			if err != nil {
				return err
			}
			if !running {
				return fmt.Errorf("no %s daemon is running", def.DisplayName)
			}
			return daemon.CallControl(def, method)
		},
	}
}

var (
	showCmd   = controlCommand("show", "Show a service's window", "Show")
	hideCmd   = controlCommand("hide", "Hide a service's window to tray", "Hide")
	toggleCmd = controlCommand("toggle", "Toggle a service's window", "Toggle")
	quitCmd   = controlCommand("quit", "Stop a service's daemon", "Quit")
)

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show a running daemon's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := service.Lookup(args[0])
		if err != nil {
			return err
		}
		running, err := daemon.IsAlreadyRunning(def)
		if err != nil {
			return err
		}
		if !running {
			fmt.Printf("%s: not running\n", def.DisplayName)
			return nil
		}
		st, err := daemon.QueryStatus(def)
		if err != nil {
			return err
		}
		visibility := "hidden"
		if st.Visible {
			visibility = "visible"
		}
		fmt.Printf("%s: running, window %s, %d unread, do-not-disturb %v\n",
			def.DisplayName, visibility, st.BadgeCount, st.DND)
		return nil
	},
}
