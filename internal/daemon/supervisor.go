package daemon

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/loft-linux/loft/internal/browser"
	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/daemon/devtools"
	"github.com/loft-linux/loft/internal/desktop"
	"github.com/loft-linux/loft/internal/service"
)

// Supervisor owns the browser process lifecycle: spawn, extension load,
// wait, respawn. Hiding to tray is a full process exit; the next show
// request spawns a fresh browser against the same profile.
type Supervisor struct {
	info   browser.Info
	def    *service.Definition
	state  *State
	loader *devtools.Loader

	// Debugging-pipe ends held open for the child's lifetime. The
	// browser treats EOF on its debugging pipe as a shutdown signal, so
	// these must stay referenced until the child exits or a finalizer
	// would close them behind its back.
	pipes []*os.File
}

// NewSupervisor creates a supervisor for one service's browser.
func NewSupervisor(info browser.Info, def *service.Definition, state *State) *Supervisor {
	return &Supervisor{
		info:   info,
		def:    def,
		state:  state,
		loader: devtools.NewLoader(),
	}
}

// Run drives the lifecycle loop until quit is requested. The loop only
// ever suspends in two places: waiting for the child to exit, and
// waiting for a show request while hidden to tray.
func (m *Supervisor) Run() error {
	waitForShow := false

	for {
		if waitForShow {
			log.Printf("browser hidden, waiting for show request")
			<-m.state.ShowRequests()

			if m.state.QuitRequested() {
				log.Printf("quit requested, shutting down")
				return nil
			}
			waitForShow = false
		}

		cmd, err := m.spawn()
		if err != nil {
			return err
		}

		m.state.SetBrowserPid(cmd.Process.Pid)
		m.state.SetVisible(true)
		log.Printf("browser launched (pid %d)", cmd.Process.Pid)

		start := time.Now()

		// Show and hide while the browser runs are the extension's job;
		// the supervisor only cares about process exit.
		if err := cmd.Wait(); err != nil {
			log.Printf("browser exited with error: %v", err)
		}
		m.state.SetBrowserPid(0)
		m.state.SetVisible(false)
		m.releasePipes()

		if m.state.QuitRequested() {
			log.Printf("quit requested, shutting down")
			return nil
		}

		log.Printf("browser exited after %.1fs, hiding to tray", time.Since(start).Seconds())
		waitForShow = true
	}
}

// spawn starts the browser with its debugging pipe on descriptors 3 and
// 4, then loads the companion extension over that pipe. On a failed load
// the child is terminated and the error returned.
func (m *Supervisor) spawn() (*exec.Cmd, error) {
	profile, err := config.ProfileDir(m.def.Name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(profile, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile dir %s: %w", profile, err)
	}
	extension, err := config.ExtensionDir()
	if err != nil {
		return nil, err
	}

	args := browser.BuildArgs(m.def, profile)
	cmd := browser.BuildCommand(m.info, args)

	// Two anonymous pipes: the child reads protocol commands on fd 3 and
	// writes responses on fd 4. ExtraFiles places them there.
	childRead, daemonWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create debugging pipe: %w", err)
	}
	daemonRead, childWrite, err := os.Pipe()
	if err != nil {
		childRead.Close()
		daemonWrite.Close()
		return nil, fmt.Errorf("failed to create debugging pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{childRead, childWrite}

	if err := cmd.Start(); err != nil {
		childRead.Close()
		childWrite.Close()
		daemonRead.Close()
		daemonWrite.Close()
		return nil, fmt.Errorf("failed to spawn browser: %w", err)
	}

	// The child holds its own copies now.
	childRead.Close()
	childWrite.Close()
	m.pipes = []*os.File{daemonRead, daemonWrite}

	if _, err := m.loader.LoadExtension(daemonRead, daemonWrite, extension); err != nil {
		log.Printf("extension load failed, terminating browser: %v", err)
		_ = cmd.Process.Signal(syscall.SIGTERM)
		_ = cmd.Wait()
		m.releasePipes()
		return nil, err
	}

	m.repairDesktopEntry()

	return cmd, nil
}

// repairDesktopEntry rewrites the browser's auto-generated desktop entry
// now and again after a delay, because the browser may recreate its
// broken version after the first write.
func (m *Supervisor) repairDesktopEntry() {
	if err := desktop.RepairBrowserDesktopEntry(m.def); err != nil {
		log.Printf("failed to repair browser desktop entry: %v", err)
	}
	def := m.def
	time.AfterFunc(5*time.Second, func() {
		if err := desktop.RepairBrowserDesktopEntry(def); err != nil {
			log.Printf("failed to repair browser desktop entry (delayed): %v", err)
		}
	})
}

func (m *Supervisor) releasePipes() {
	for _, p := range m.pipes {
		_ = p.Close()
	}
	m.pipes = nil
}
