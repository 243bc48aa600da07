// Package cli implements the loft CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loft",
	Short: "Run messaging web apps as native Linux applications",
	Long: `Loft wraps messaging web apps (WhatsApp, Messenger) in a dedicated
browser window with a tray icon, unread badges, and desktop integration.
Each service runs under its own background daemon.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands (alphabetical)
	rootCmd.AddCommand(hideCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(quitCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(versionCmd)
}
