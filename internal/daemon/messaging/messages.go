package messaging

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/loft-linux/loft/internal/config"
)

// EventType discriminates messages sent by the extension to the daemon.
type EventType string

// Extension → daemon message types.
const (
	EventReady        EventType = "ready"
	EventBadgeUpdate  EventType = "badge_update"
	EventNotification EventType = "notification"
	EventWindowHidden EventType = "window_hidden"
	EventWindowShown  EventType = "window_shown"
)

// Event is a message from the browser extension. Which fields are set
// depends on Type; state derived from events is level-triggered, so the
// last event received always wins.
type Event struct {
	Type    EventType `json:"type"`
	Service string    `json:"service,omitempty"`
	Count   uint32    `json:"count,omitempty"`
	Title   string    `json:"title,omitempty"`
	Body    string    `json:"body,omitempty"`
	Icon    *string   `json:"icon,omitempty"`
}

// DecodeEvent parses a raw frame body into an Event. Unknown types are
// returned as-is; the caller decides whether to ignore them.
func DecodeEvent(raw json.RawMessage) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to parse extension message: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("extension message has no type field")
	}
	return ev, nil
}

// CommandType discriminates messages sent by the daemon to the extension.
type CommandType string

// Daemon → extension message types.
const (
	CommandDndChanged     CommandType = "dnd_changed"
	CommandHideWindow     CommandType = "hide_window"
	CommandShowWindow     CommandType = "show_window"
	CommandPing           CommandType = "ping"
	CommandTitlebarConfig CommandType = "titlebar_config"
)

// Command is a message to the browser extension. Commands express current
// intent, not history: delivery is at-most-once per subscriber and a
// dropped command is superseded by current state on the next connect.
type Command struct {
	Type    CommandType `json:"type"`
	Enabled *bool       `json:"enabled,omitempty"`
	Show    *bool       `json:"show,omitempty"`
}

// DndChanged tells the extension the do-not-disturb flag changed.
func DndChanged(enabled bool) Command {
	return Command{Type: CommandDndChanged, Enabled: &enabled}
}

// HideWindow tells the extension to hide the application window.
func HideWindow() Command { return Command{Type: CommandHideWindow} }

// ShowWindow tells the extension to show the application window.
func ShowWindow() Command { return Command{Type: CommandShowWindow} }

// Ping is a liveness probe.
func Ping() Command { return Command{Type: CommandPing} }

// TitlebarConfig tells the extension whether to render the titlebar.
func TitlebarConfig(show bool) Command {
	return Command{Type: CommandTitlebarConfig, Show: &show}
}

// SocketPath returns the daemon socket path for a service, derived from
// the user's runtime directory.
func SocketPath(serviceName string) string {
	return filepath.Join(config.RuntimeDir(), serviceName+".sock")
}
