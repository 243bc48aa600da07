package daemon

import (
	"bytes"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/loft-linux/loft/internal/daemon/messaging"
)

func startTestServer(t *testing.T, state *State) *SocketServer {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	srv, err := NewSocketServer("whatsapp", state)
	if err != nil {
		t.Fatalf("NewSocketServer failed: %v", err)
	}
	t.Cleanup(srv.Close)
	go srv.Serve()
	return srv
}

func dialTestServer(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", messaging.SocketPath("whatsapp"))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBadgeUpdateSetsState(t *testing.T) {
	state := NewState(false, false)
	startTestServer(t, state)
	conn := dialTestServer(t)

	if err := messaging.WriteFrame(conn, messaging.Event{Type: messaging.EventBadgeUpdate, Count: 5}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "badge update", func() bool { return state.BadgeCount() == 5 })
}

func TestWindowEventsSetVisibility(t *testing.T) {
	state := NewState(false, false)
	startTestServer(t, state)
	conn := dialTestServer(t)

	if err := messaging.WriteFrame(conn, messaging.Event{Type: messaging.EventWindowShown}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "window shown", func() bool { return state.Visible() })

	if err := messaging.WriteFrame(conn, messaging.Event{Type: messaging.EventWindowHidden}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "window hidden", func() bool { return !state.Visible() })
}

func TestStartMinimizedSuppressesFirstShow(t *testing.T) {
	state := NewState(false, true)
	startTestServer(t, state)
	conn := dialTestServer(t)

	if err := messaging.WriteFrame(conn, messaging.Event{Type: messaging.EventWindowShown}); err != nil {
		t.Fatal(err)
	}

	// The first window_shown is answered with a hide command.
	frame, err := messaging.ReadFrame(conn)
	if err != nil {
		t.Fatalf("no frame from server: %v", err)
	}
	var cmd messaging.Command
	if err := decodeInto(frame, &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Type != messaging.CommandHideWindow {
		t.Errorf("first reply = %+v, want hide_window", cmd)
	}
	if state.Visible() {
		t.Error("state became visible despite --minimized")
	}

	// The second window_shown behaves normally.
	if err := messaging.WriteFrame(conn, messaging.Event{Type: messaging.EventWindowShown}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "second window shown", func() bool { return state.Visible() })
}

func TestBroadcastReachesConnection(t *testing.T) {
	state := NewState(false, false)
	startTestServer(t, state)
	conn := dialTestServer(t)

	if err := messaging.WriteFrame(conn, messaging.Event{Type: messaging.EventReady, Service: "whatsapp"}); err != nil {
		t.Fatal(err)
	}
	// Let the server register the connection's subscription before the
	// broadcast; a subscriber only sees commands sent after subscribing.
	time.Sleep(50 * time.Millisecond)

	state.Commands.Send(messaging.ShowWindow())

	frame, err := messaging.ReadFrame(conn)
	if err != nil {
		t.Fatalf("no broadcast received: %v", err)
	}

	// The connection emits the exact length-prefixed encoding.
	var want bytes.Buffer
	if err := messaging.WriteFrame(&want, messaging.ShowWindow()); err != nil {
		t.Fatal(err)
	}
	var rebuilt bytes.Buffer
	if err := messaging.WriteFrame(&rebuilt, frame); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rebuilt.Bytes(), want.Bytes()) {
		t.Errorf("frame = %q, want %q", rebuilt.Bytes(), want.Bytes())
	}
}

func TestOversizedFrameTerminatesConnection(t *testing.T) {
	state := NewState(false, false)
	startTestServer(t, state)
	conn := dialTestServer(t)

	// 2 MB declared, only a few bytes sent: protocol violation.
	if _, err := conn.Write([]byte{0x80, 0x84, 0x1e, 0x00, '{', '}'}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Error("connection still open after oversized frame")
	}

	// The daemon itself is unaffected: new connections still work.
	conn2 := dialTestServer(t)
	if err := messaging.WriteFrame(conn2, messaging.Event{Type: messaging.EventBadgeUpdate, Count: 9}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "badge after violation", func() bool { return state.BadgeCount() == 9 })
}

func TestUnknownEventIgnored(t *testing.T) {
	state := NewState(false, false)
	startTestServer(t, state)
	conn := dialTestServer(t)

	if err := messaging.WriteFrame(conn, map[string]string{"type": "future_thing"}); err != nil {
		t.Fatal(err)
	}
	// Connection survives; a follow-up event still lands.
	if err := messaging.WriteFrame(conn, messaging.Event{Type: messaging.EventBadgeUpdate, Count: 3}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "badge after unknown event", func() bool { return state.BadgeCount() == 3 })
}

func TestStaleSocketIsReplaced(t *testing.T) {
	state := NewState(false, false)
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	srv, err := NewSocketServer("whatsapp", state)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a crash: the socket file stays behind.
	_ = srv.listener.Close()

	srv2, err := NewSocketServer("whatsapp", state)
	if err != nil {
		t.Fatalf("rebind over stale socket failed: %v", err)
	}
	srv2.Close()
}

func decodeInto(frame []byte, v interface{}) error {
	return json.Unmarshal(frame, v)
}
