package cli

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/daemon"
	"github.com/loft-linux/loft/internal/daemon/tray"
	"github.com/loft-linux/loft/internal/desktop"
	"github.com/loft-linux/loft/internal/service"
)

var (
	serviceMinimized bool
	serviceVerbose   bool
)

var serviceCmd = &cobra.Command{
	Use:   "service <name>",
	Short: "Run the daemon for a service",
	Long: `Runs the background daemon for a service: supervises the browser,
serves the extension socket, exports the D-Bus control interface, and
shows the tray icon. If a daemon for the service is already running,
its window is shown instead and this command exits.`,
	Args: cobra.ExactArgs(1),
	RunE: runService,
}

func init() {
	serviceCmd.Flags().BoolVar(&serviceMinimized, "minimized", false,
		"start with the window hidden to tray")
	serviceCmd.Flags().BoolVar(&serviceVerbose, "verbose", false,
		"log with source locations and microsecond timestamps")
}

func runService(cmd *cobra.Command, args []string) error {
	def, err := service.Lookup(args[0])
	if err != nil {
		return err
	}
	if err := config.InitLogging(def.Name, false, serviceVerbose); err != nil {
		return err
	}

	// Singleton: a second invocation is a "show the window" request.
	running, err := daemon.IsAlreadyRunning(def)
	if err != nil {
		log.Printf("could not check for a running daemon (continuing): %v", err)
	} else if running {
		log.Printf("%s daemon already running, forwarding show request", def.DisplayName)
		return daemon.CallControl(def, "Show")
	}

	// The extension and icons normally exist from install; refresh them
	// anyway so a bare `loft service` works after an upgrade.
	if err := desktop.DeployExtension(); err != nil {
		return err
	}
	if err := desktop.EnsureIconsFor(def); err != nil {
		log.Printf("icon refresh failed (continuing): %v", err)
	}

	d, err := daemon.New(def, serviceMinimized)
	if err != nil {
		return err
	}

	if err := tray.WaitForHost(); err != nil {
		return fmt.Errorf("tray unavailable: %w", err)
	}

	iconsDir, err := config.IconsDir()
	if err != nil {
		return err
	}
	opts := tray.Options{
		ServiceName: def.Name,
		DisplayName: def.DisplayName,
		IconPath:    filepath.Join(iconsDir, def.AppIconFilename),
		IconName:    def.TrayIconName(),
	}

	// systray.Run must own the main goroutine; the daemon core runs
	// beside it and tears the tray down when it stops.
	var runErr error
	onStart := func() {
		go func() {
			runErr = d.Run()
			tray.Quit()
		}()
	}
	tray.Run(opts, d.State(), onStart, nil)
	return runErr
}
