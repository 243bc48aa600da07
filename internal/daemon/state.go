// Package daemon implements the per-service daemon: shared state, the
// D-Bus control interface, the native-messaging socket server, the
// extension loader, and the browser process supervisor.
package daemon

import (
	"log"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/loft-linux/loft/internal/daemon/broadcast"
	"github.com/loft-linux/loft/internal/daemon/messaging"
)

// State is the shared mutable state of one daemon instance. Every field
// is level-triggered and independently consistent: reads and writes are
// atomic per field, with no cross-field transaction. The supervised
// browser pid is the one exception: it is mutex-guarded because quit
// must not race a concurrent spawn or exit.
type State struct {
	visible        atomic.Bool
	badgeCount     atomic.Uint32
	dnd            atomic.Bool
	quitRequested  atomic.Bool
	startMinimized atomic.Bool

	pidMu      sync.Mutex
	browserPid int

	showMu     sync.Mutex
	showSignal chan struct{}

	// Commands fans daemon commands out to the socket connections and
	// the shell helper. Depth is bounded; slow consumers lag and drop.
	Commands *broadcast.Hub[messaging.Command]
}

// NewState creates daemon state with the given initial do-not-disturb
// flag. When minimized is set, the first window_shown report from the
// extension is answered with a hide.
func NewState(dnd, minimized bool) *State {
	s := &State{
		showSignal: make(chan struct{}),
		Commands:   broadcast.New[messaging.Command](),
	}
	s.dnd.Store(dnd)
	s.startMinimized.Store(minimized)
	return s
}

// Visible reports whether the application window is currently presented.
func (s *State) Visible() bool { return s.visible.Load() }

// SetVisible records the window visibility as reported by the extension
// or the supervisor. Last writer wins.
func (s *State) SetVisible(v bool) { s.visible.Store(v) }

// BadgeCount returns the last unread count reported by the extension.
func (s *State) BadgeCount() uint32 { return s.badgeCount.Load() }

// SetBadgeCount overwrites the unread count.
func (s *State) SetBadgeCount(n uint32) { s.badgeCount.Store(n) }

// DND reports the do-not-disturb flag.
func (s *State) DND() bool { return s.dnd.Load() }

// SetDND updates the do-not-disturb flag and notifies the extension.
func (s *State) SetDND(enabled bool) {
	s.dnd.Store(enabled)
	s.Commands.Send(messaging.DndChanged(enabled))
}

// QuitRequested reports whether shutdown has been requested. Once true
// it never resets.
func (s *State) QuitRequested() bool { return s.quitRequested.Load() }

// ConsumeStartMinimized returns true exactly once when the daemon was
// started with --minimized, so the first show event can be suppressed.
func (s *State) ConsumeStartMinimized() bool {
	return s.startMinimized.CompareAndSwap(true, false)
}

// RequestShow marks the window visible, tells the extension to show it,
// and wakes the supervisor if it is waiting to respawn the browser.
func (s *State) RequestShow() {
	s.visible.Store(true)
	s.Commands.Send(messaging.ShowWindow())
	s.notifyShowWaiters()
}

// RequestHide marks the window hidden and tells the extension to hide it.
// The browser process keeps running; only the window goes away.
func (s *State) RequestHide() {
	s.visible.Store(false)
	s.Commands.Send(messaging.HideWindow())
}

// RequestQuit starts daemon shutdown: the quit flag is set, the browser
// process (if any) gets SIGTERM, and any show-waiter is woken so the
// supervisor can observe the flag.
func (s *State) RequestQuit() {
	s.quitRequested.Store(true)

	s.pidMu.Lock()
	if s.browserPid != 0 {
		if err := syscall.Kill(s.browserPid, syscall.SIGTERM); err != nil {
			log.Printf("failed to signal browser pid %d: %v", s.browserPid, err)
		}
	}
	s.pidMu.Unlock()

	s.notifyShowWaiters()
}

// SetBrowserPid records the supervised browser process. Owned by the
// supervisor; pid 0 means no process is alive.
func (s *State) SetBrowserPid(pid int) {
	s.pidMu.Lock()
	s.browserPid = pid
	s.pidMu.Unlock()
}

// BrowserPid returns the supervised browser pid, or 0 if none.
func (s *State) BrowserPid() int {
	s.pidMu.Lock()
	defer s.pidMu.Unlock()
	return s.browserPid
}

// ShowRequests returns a channel that is closed on the next show or quit
// request. Waiters must re-arm by calling ShowRequests again; a request
// issued while nobody waits leaves no stored wakeup behind, so the
// supervisor never respawns the browser for a stale signal.
func (s *State) ShowRequests() <-chan struct{} {
	s.showMu.Lock()
	defer s.showMu.Unlock()
	return s.showSignal
}

func (s *State) notifyShowWaiters() {
	s.showMu.Lock()
	close(s.showSignal)
	s.showSignal = make(chan struct{})
	s.showMu.Unlock()
}
