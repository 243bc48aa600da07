package daemon

import (
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/daemon/messaging"
	"github.com/loft-linux/loft/internal/service"
)

// ControlInterface is the D-Bus interface every service daemon exports.
const ControlInterface = "chat.loft.Service"

// BusNameFor returns the well-known session bus name for a service,
// e.g. chat.loft.WhatsApp.
func BusNameFor(def *service.Definition) string {
	return "chat.loft." + def.BusName
}

// ObjectPathFor returns the object path the control interface lives at.
func ObjectPathFor(def *service.Definition) dbus.ObjectPath {
	return dbus.ObjectPath("/chat/loft/" + def.BusName)
}

// Control is the exported D-Bus control surface. Methods mutate shared
// state; they never block on the browser.
type Control struct {
	state *State
	def   *service.Definition
}

// Show presents the application window, respawning the browser if it
// was hidden to tray.
func (c *Control) Show() *dbus.Error {
	log.Printf("D-Bus Show() called")
	c.state.RequestShow()
	return nil
}

// Hide hides the application window to the tray.
func (c *Control) Hide() *dbus.Error {
	log.Printf("D-Bus Hide() called")
	c.state.RequestHide()
	return nil
}

// Toggle flips window visibility.
func (c *Control) Toggle() *dbus.Error {
	log.Printf("D-Bus Toggle() called")
	if c.state.Visible() {
		c.state.RequestHide()
	} else {
		c.state.RequestShow()
	}
	return nil
}

// Quit shuts the daemon down.
func (c *Control) Quit() *dbus.Error {
	log.Printf("D-Bus Quit() called")
	c.state.RequestQuit()
	return nil
}

// GetStatus returns visibility, unread count, and do-not-disturb.
func (c *Control) GetStatus() (bool, uint32, bool, *dbus.Error) {
	return c.state.Visible(), c.state.BadgeCount(), c.state.DND(), nil
}

// SetShowTitlebar persists the titlebar preference and pushes it to the
// extension so the running window updates without a restart.
func (c *Control) SetShowTitlebar(show bool) *dbus.Error {
	cfg, err := config.LoadService(c.def.Name)
	if err != nil {
		cfg = config.DefaultService()
	}
	cfg.ShowTitlebar = show
	if err := config.SaveService(c.def.Name, cfg); err != nil {
		return dbus.MakeFailedError(err)
	}
	c.state.Commands.Send(messaging.TitlebarConfig(show))
	return nil
}

// controlIntrospection describes the interface for busctl and friends.
var controlIntrospection = introspect.Interface{
	Name: ControlInterface,
	Methods: []introspect.Method{
		{Name: "Show"},
		{Name: "Hide"},
		{Name: "Toggle"},
		{Name: "Quit"},
		{Name: "GetStatus", Args: []introspect.Arg{
			{Name: "visible", Type: "b", Direction: "out"},
			{Name: "badge_count", Type: "u", Direction: "out"},
			{Name: "dnd", Type: "b", Direction: "out"},
		}},
		{Name: "SetShowTitlebar", Args: []introspect.Arg{
			{Name: "show", Type: "b", Direction: "in"},
		}},
	},
}

// RegisterControl exports the control interface and claims the service's
// well-known name. A failed claim means another daemon got there first.
func RegisterControl(conn *dbus.Conn, def *service.Definition, state *State) error {
	path := ObjectPathFor(def)
	ctl := &Control{state: state, def: def}

	if err := conn.Export(ctl, path, ControlInterface); err != nil {
		return fmt.Errorf("failed to export control interface: %w", err)
	}
	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			controlIntrospection,
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	name := BusNameFor(def)
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name %s: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already owned", name)
	}

	log.Printf("registered %s at %s", name, path)
	return nil
}

// IsAlreadyRunning reports whether a daemon for this service already
// owns its bus name.
func IsAlreadyRunning(def *service.Definition) (bool, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return false, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	var owned bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0,
		BusNameFor(def)).Store(&owned)
	if err != nil {
		return false, fmt.Errorf("failed to query name owner: %w", err)
	}
	return owned, nil
}

// CallControl invokes a no-argument control method (Show, Hide, Toggle,
// Quit) on the running daemon for a service.
func CallControl(def *service.Definition, method string) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	obj := conn.Object(BusNameFor(def), ObjectPathFor(def))
	if call := obj.Call(ControlInterface+"."+method, 0); call.Err != nil {
		return fmt.Errorf("%s call failed: %w", method, call.Err)
	}
	return nil
}

// Status is a point-in-time snapshot from a running daemon.
type Status struct {
	Visible    bool
	BadgeCount uint32
	DND        bool
}

// QueryStatus fetches the running daemon's status for a service.
func QueryStatus(def *service.Definition) (Status, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return Status{}, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	obj := conn.Object(BusNameFor(def), ObjectPathFor(def))
	call := obj.Call(ControlInterface+".GetStatus", 0)
	if call.Err != nil {
		return Status{}, fmt.Errorf("GetStatus call failed: %w", call.Err)
	}
	var st Status
	if err := call.Store(&st.Visible, &st.BadgeCount, &st.DND); err != nil {
		return Status{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return st, nil
}
