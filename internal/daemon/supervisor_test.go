package daemon

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/loft-linux/loft/internal/browser"
	"github.com/loft-linux/loft/internal/daemon/devtools"
	"github.com/loft-linux/loft/internal/service"
)

// fakeBrowser writes a script that answers the extension-load handshake
// on the debugging pipe and then sleeps like a long-running browser.
func fakeBrowser(t *testing.T) browser.Info {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-browser")
	script := "#!/bin/sh\n" +
		"printf '{\"id\":1,\"result\":{\"id\":\"fake\"}}\\0' >&4\n" +
		"exec sleep 60\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return browser.Info{Path: path, LaunchMethod: browser.LaunchDirect}
}

func newTestSupervisor(t *testing.T, state *State) *Supervisor {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	sup := NewSupervisor(fakeBrowser(t), &service.WhatsApp, state)
	sup.loader = &devtools.Loader{
		StartupDelay: 0,
		PollInterval: 10 * time.Millisecond,
		Timeout:      2 * time.Second,
	}
	return sup
}

func TestSupervisorQuitWhileRunning(t *testing.T) {
	state := NewState(false, false)
	sup := newTestSupervisor(t, state)

	done := make(chan error, 1)
	go func() { done <- sup.Run() }()

	waitFor(t, "browser spawn", func() bool {
		return state.BrowserPid() != 0 && state.Visible()
	})

	// Quit signals the child; the supervisor observes the exit and stops.
	state.RequestQuit()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop after quit")
	}
	if state.BrowserPid() != 0 {
		t.Error("pid still recorded after shutdown")
	}
	if state.Visible() {
		t.Error("still marked visible after shutdown")
	}
}

func TestSupervisorRespawnsOnShow(t *testing.T) {
	state := NewState(false, false)
	sup := newTestSupervisor(t, state)

	done := make(chan error, 1)
	go func() { done <- sup.Run() }()

	waitFor(t, "first spawn", func() bool { return state.BrowserPid() != 0 })
	firstPid := state.BrowserPid()

	// Simulate the user closing the window: the process exits and the
	// supervisor hides to tray instead of stopping.
	if err := syscall.Kill(firstPid, syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "hide to tray", func() bool {
		return state.BrowserPid() == 0 && !state.Visible()
	})

	select {
	case err := <-done:
		t.Fatalf("supervisor stopped instead of waiting: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	// A show request respawns a fresh browser.
	state.RequestShow()
	waitFor(t, "respawn", func() bool { return state.BrowserPid() != 0 })
	if state.BrowserPid() == firstPid {
		t.Error("pid unchanged, expected a fresh process")
	}
	if !state.Visible() {
		t.Error("not marked visible after respawn")
	}

	state.RequestQuit()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop after quit")
	}
}

func TestSupervisorExtensionLoadFailureAbortsSpawn(t *testing.T) {
	state := NewState(false, false)
	sup := newTestSupervisor(t, state)

	// A browser that never answers the handshake.
	path := filepath.Join(t.TempDir(), "mute-browser")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 60\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	sup.info = browser.Info{Path: path, LaunchMethod: browser.LaunchDirect}

	err := sup.Run()
	if err == nil {
		t.Fatal("Run succeeded despite handshake timeout")
	}
	if state.BrowserPid() != 0 {
		t.Error("pid still recorded after aborted spawn")
	}
}
