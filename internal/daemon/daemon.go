package daemon

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"

	"github.com/loft-linux/loft/internal/browser"
	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/service"
)

// Daemon bundles the components of one running service: shared state,
// the control interface, the socket server, the config watcher, and the
// browser supervisor.
type Daemon struct {
	def     *service.Definition
	state   *State
	server  *SocketServer
	watcher *ConfigWatcher
	sup     *Supervisor
}

// New assembles a daemon. Startup failures here are fatal by design:
// no socket, no browser runtime, or a lost D-Bus name means the daemon
// cannot do its job.
func New(def *service.Definition, minimized bool) (*Daemon, error) {
	svcCfg, err := config.LoadService(def.Name)
	if err != nil {
		return nil, err
	}
	globalCfg, err := config.LoadGlobal()
	if err != nil {
		return nil, err
	}

	state := NewState(svcCfg.DoNotDisturb, minimized)

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := RegisterControl(conn, def, state); err != nil {
		return nil, err
	}

	info, err := browser.Detect(globalCfg)
	if err != nil {
		return nil, err
	}
	log.Printf("found browser: %s (%s)", info.Path, info.LaunchMethod)

	server, err := NewSocketServer(def.Name, state)
	if err != nil {
		return nil, err
	}

	watcher, err := NewConfigWatcher(def.Name, state)
	if err != nil {
		// External config edits are a convenience, not a requirement.
		log.Printf("config watcher unavailable: %v", err)
	}

	return &Daemon{
		def:     def,
		state:   state,
		server:  server,
		watcher: watcher,
		sup:     NewSupervisor(info, def, state),
	}, nil
}

// State exposes the shared state, primarily for the tray projection.
func (d *Daemon) State() *State {
	return d.state
}

// Run starts the background components and drives the browser lifecycle
// until quit. It blocks; callers that also run a tray put it in a
// goroutine.
func (d *Daemon) Run() error {
	go func() {
		if err := d.server.Serve(); err != nil {
			log.Printf("socket server failed: %v", err)
			d.state.RequestQuit()
		}
	}()

	go RunShellHelper(d.state, d.def)

	if d.watcher != nil {
		d.watcher.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %v, shutting down", sig)
		d.state.RequestQuit()
	}()

	err := d.sup.Run()

	signal.Stop(sigCh)
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.server.Close()
	d.state.Commands.Close()
	return err
}
