// Package tray presents the daemon in the system tray via the
// status-notifier protocol. The tray is a one-way projection of daemon
// state refreshed on a short interval, plus a small menu of actions.
package tray

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/getlantern/systray"
	"github.com/godbus/dbus/v5"

	"github.com/loft-linux/loft/internal/config"
)

// sniWatcherName is the bus name the status-notifier host must own
// before a tray icon can register.
const sniWatcherName = "org.kde.StatusNotifierWatcher"

// hostRetryDelays paces the wait for the status-notifier host at login,
// when the daemon often starts before the desktop shell is ready.
var hostRetryDelays = []time.Duration{0, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}

// refreshInterval is how often the menu is re-projected from state.
const refreshInterval = 500 * time.Millisecond

// DaemonState is the slice of daemon state the tray reads and mutates.
type DaemonState interface {
	Visible() bool
	BadgeCount() uint32
	DND() bool
	QuitRequested() bool
	RequestShow()
	RequestHide()
	RequestQuit()
	SetDND(enabled bool)
}

// Options configures the tray for one service.
type Options struct {
	ServiceName string
	DisplayName string
	// IconPath is the downloaded app icon, used as the tray icon data.
	IconPath string
	// IconName is the theme name for hosts that resolve by name.
	IconName string
}

var (
	opts  Options
	state DaemonState

	toggleItem *systray.MenuItem
	dndItem    *systray.MenuItem
	quitItem   *systray.MenuItem
)

// WaitForHost blocks until a status-notifier host is on the session bus,
// retrying with backoff. Exhausting the retries is fatal to daemon
// startup: without a host the tray icon can never appear and a hidden
// daemon would be unreachable.
func WaitForHost() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	for attempt, delay := range hostRetryDelays {
		if delay > 0 {
			log.Printf("status-notifier host unavailable, retrying in %s (attempt %d/%d)",
				delay, attempt+1, len(hostRetryDelays))
			time.Sleep(delay)
		}
		var owned bool
		err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0,
			sniWatcherName).Store(&owned)
		if err == nil && owned {
			return nil
		}
	}
	return fmt.Errorf("no status-notifier host after %d attempts", len(hostRetryDelays))
}

// Run starts the tray. It blocks the calling goroutine (must be main);
// onStart is called once the tray is ready, onExit when it shuts down.
func Run(o Options, s DaemonState, onStart, onExit func()) {
	opts = o
	state = s
	systray.Run(func() { onReady(onStart) }, onExit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func onReady(onStart func()) {
	if data, err := os.ReadFile(opts.IconPath); err == nil {
		systray.SetTemplateIcon(data, data)
	} else {
		log.Printf("tray icon unavailable: %v", err)
	}
	systray.SetTitle(opts.DisplayName)
	systray.SetTooltip(formatTooltip(0))

	header := systray.AddMenuItem(opts.DisplayName, "")
	header.Disable()
	systray.AddSeparator()

	toggleItem = systray.AddMenuItem("Show "+opts.DisplayName, "")
	dndItem = systray.AddMenuItemCheckbox("Do Not Disturb", "Silence notifications", state.DND())
	systray.AddSeparator()
	quitItem = systray.AddMenuItem("Quit", "Shut down "+opts.DisplayName)

	if onStart != nil {
		onStart()
	}

	go handleClicks()
	go refreshLoop()
}

func handleClicks() {
	for {
		select {
		case <-toggleItem.ClickedCh:
			if state.Visible() {
				state.RequestHide()
			} else {
				state.RequestShow()
			}

		case <-dndItem.ClickedCh:
			enabled := !state.DND()
			state.SetDND(enabled)
			persistDND(enabled)

		case <-quitItem.ClickedCh:
			state.RequestQuit()
		}
	}
}

// persistDND saves the toggle so it survives daemon restarts.
func persistDND(enabled bool) {
	cfg, err := config.LoadService(opts.ServiceName)
	if err != nil {
		cfg = config.DefaultService()
	}
	cfg.DoNotDisturb = enabled
	if err := config.SaveService(opts.ServiceName, cfg); err != nil {
		log.Printf("failed to persist do-not-disturb: %v", err)
	}
}

// refreshLoop projects daemon state into the menu until quit.
func refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for range ticker.C {
		if state.QuitRequested() {
			systray.Quit()
			return
		}

		if state.Visible() {
			toggleItem.SetTitle("Hide " + opts.DisplayName)
		} else {
			toggleItem.SetTitle("Show " + opts.DisplayName)
		}

		if state.DND() != dndItem.Checked() {
			if state.DND() {
				dndItem.Check()
			} else {
				dndItem.Uncheck()
			}
		}

		systray.SetTooltip(formatTooltip(state.BadgeCount()))
	}
}

func formatTooltip(badge uint32) string {
	if badge > 0 {
		return fmt.Sprintf("%s (%d unread)", opts.DisplayName, badge)
	}
	return opts.DisplayName
}
