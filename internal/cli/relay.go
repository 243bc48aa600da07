package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/daemon/messaging"
)

// relayCmd is what the browser launches as the native-messaging host
// (via the wrapper script the installer writes). It bridges the
// extension's stdio to the daemon's unix socket. Hidden because users
// never run it by hand.
var relayCmd = &cobra.Command{
	Use:    "relay",
	Short:  "Native-messaging relay between the browser and the daemon",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the native-messaging stream; log to file only.
		if err := config.InitLogging("relay", true, false); err != nil {
			return err
		}
		return messaging.RunRelay(os.Stdin, os.Stdout)
	},
}
