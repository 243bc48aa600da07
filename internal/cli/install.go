package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loft-linux/loft/internal/desktop"
	"github.com/loft-linux/loft/internal/service"
)

var installAutostart bool

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Install a service's desktop integration",
	Long: `Installs a service: deploys the companion extension, downloads icons
into the icon theme, writes desktop entries, and registers the
native-messaging host with the browser.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := service.Lookup(args[0])
		if err != nil {
			return err
		}
		if err := desktop.InstallService(def); err != nil {
			return err
		}
		if installAutostart {
			if err := desktop.SetAutostart(def, true); err != nil {
				return err
			}
		}
		fmt.Printf("Installed %s\n", def.DisplayName)
		return nil
	},
}

var uninstallDeleteData bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "Remove a service's desktop integration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := service.Lookup(args[0])
		if err != nil {
			return err
		}
		if err := desktop.UninstallService(def, uninstallDeleteData); err != nil {
			return err
		}
		fmt.Printf("Uninstalled %s\n", def.DisplayName)
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&installAutostart, "autostart", false,
		"also start the service at login")
	uninstallCmd.Flags().BoolVar(&uninstallDeleteData, "delete-data", false,
		"also delete the browser profile (messages, login session)")
}
