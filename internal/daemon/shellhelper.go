package daemon

import (
	"errors"
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"

	"github.com/loft-linux/loft/internal/daemon/broadcast"
	"github.com/loft-linux/loft/internal/daemon/messaging"
	"github.com/loft-linux/loft/internal/service"
)

// The GNOME Shell helper extension exports window focus/hide by WM
// class. Everything here is best effort: the extension may not be
// installed, enabled, or running, and the extension handles show/hide
// itself anyway. Failures are logged at most.
const (
	shellHelperName  = "chat.loft.ShellHelper"
	shellHelperPath  = dbus.ObjectPath("/chat/loft/ShellHelper")
	shellHelperIface = "chat.loft.ShellHelper"
)

// shellCall is swapped out in tests to avoid a session bus.
var shellCall = callShellHelper

// FocusShellWindow asks the shell helper to focus the window with the
// given WM class. Returns whether a window was found.
func FocusShellWindow(wmClass string) (bool, error) {
	return shellCall("FocusWindow", wmClass)
}

// HideShellWindow asks the shell helper to minimize the window with the
// given WM class. Returns whether a window was found.
func HideShellWindow(wmClass string) (bool, error) {
	return shellCall("HideWindow", wmClass)
}

func callShellHelper(method, wmClass string) (bool, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return false, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	obj := conn.Object(shellHelperName, shellHelperPath)
	call := obj.Call(shellHelperIface+"."+method, 0, wmClass)
	if call.Err != nil {
		return false, call.Err
	}
	var found bool
	if err := call.Store(&found); err != nil {
		return false, fmt.Errorf("failed to decode %s reply: %w", method, err)
	}
	return found, nil
}

// RunShellHelper mirrors show/hide commands to the shell helper so the
// compositor-side window state follows even when the page is busy. Runs
// until the command hub closes.
func RunShellHelper(state *State, def *service.Definition) {
	sub := state.Commands.Subscribe()
	defer sub.Unsubscribe()

	// The browser's --app windows identify by the generated desktop id,
	// not by our --class value.
	wmClass := def.BrowserDesktopID

	for {
		cmd, err := sub.Recv()
		if err != nil {
			var lag *broadcast.LagError
			if errors.As(err, &lag) {
				log.Printf("shell helper lagged, skipped %d commands", lag.Missed)
				continue
			}
			return
		}

		switch cmd.Type {
		case messaging.CommandShowWindow:
			found, err := FocusShellWindow(wmClass)
			logShellResult("focus", found, err)
		case messaging.CommandHideWindow:
			found, err := HideShellWindow(wmClass)
			logShellResult("hide", found, err)
		}
	}
}

func logShellResult(action string, found bool, err error) {
	switch {
	case err != nil:
		log.Printf("shell helper unavailable for %s: %v", action, err)
	case !found:
		log.Printf("shell helper: no window to %s", action)
	}
}
