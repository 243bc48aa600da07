package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/daemon/broadcast"
	"github.com/loft-linux/loft/internal/daemon/messaging"
)

// SocketServer accepts native-messaging relay connections on the
// service's unix socket. Inbound extension events are applied to shared
// state; outbound commands from the broadcast hub are written back.
// Normally exactly one relay connects per browser instance, but nothing
// enforces that; extra connections just receive duplicate broadcasts.
type SocketServer struct {
	state    *State
	listener net.Listener
	path     string
}

// NewSocketServer binds the service socket, removing a stale socket file
// left behind by a previous daemon first.
func NewSocketServer(serviceName string, state *State) (*SocketServer, error) {
	dir := config.RuntimeDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket dir %s: %w", dir, err)
	}

	path := messaging.SocketPath(serviceName)
	_ = os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to bind socket %s: %w", path, err)
	}

	log.Printf("listening on %s", path)
	return &SocketServer{state: state, listener: listener, path: path}, nil
}

// Serve accepts connections until Close is called. Each connection runs
// independently; a failing connection never takes down the server.
func (s *SocketServer) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go s.handleConn(conn)
	}
}

// Close stops the listener and removes the socket file.
func (s *SocketServer) Close() {
	_ = s.listener.Close()
	_ = os.Remove(s.path)
}

// handleConn runs one relay connection: a reader applying extension
// events to state and a writer draining a hub subscription. Either side
// ending tears the connection down.
func (s *SocketServer) handleConn(conn net.Conn) {
	defer conn.Close()

	sub := s.state.Commands.Subscribe()
	defer sub.Unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			cmd, err := sub.Recv()
			if err != nil {
				var lag *broadcast.LagError
				if errors.As(err, &lag) {
					// Commands are current intent; the ones this
					// connection missed are superseded already.
					log.Printf("relay connection lagged, skipped %d commands", lag.Missed)
					continue
				}
				// Hub closed: daemon is shutting down.
				conn.Close()
				return
			}
			if err := messaging.WriteFrame(conn, cmd); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for {
		frame, err := messaging.ReadFrame(conn)
		if err != nil {
			log.Printf("relay connection ended: %v", err)
			break
		}
		s.applyEvent(frame)
	}

	// Unblock the writer; Unsubscribe closes its subscription.
	sub.Unsubscribe()
	<-writerDone
}

// applyEvent updates shared state from one extension message. Unknown
// message types are logged and ignored, never fatal.
func (s *SocketServer) applyEvent(frame json.RawMessage) {
	ev, err := messaging.DecodeEvent(frame)
	if err != nil {
		log.Printf("ignoring malformed extension message: %v", err)
		return
	}

	switch ev.Type {
	case messaging.EventReady:
		log.Printf("extension ready for service %s", ev.Service)
	case messaging.EventBadgeUpdate:
		s.state.SetBadgeCount(ev.Count)
	case messaging.EventNotification:
		// The browser renders the notification itself; this is metadata.
		log.Printf("notification: %s: %s", ev.Title, ev.Body)
	case messaging.EventWindowHidden:
		log.Printf("extension reports window hidden")
		s.state.SetVisible(false)
	case messaging.EventWindowShown:
		if s.state.ConsumeStartMinimized() {
			// Started with --minimized: answer the first show with a hide.
			log.Printf("suppressing first window_shown (start minimized)")
			s.state.RequestHide()
			return
		}
		log.Printf("extension reports window shown")
		s.state.SetVisible(true)
	default:
		log.Printf("ignoring unknown extension message type %q", ev.Type)
	}
}
