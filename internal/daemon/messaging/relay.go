package messaging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
)

// RunRelay bridges the browser's native-messaging stdio to the daemon's
// unix socket. The browser launches the relay with no arguments, so the
// target service is discovered from the first frame, which must carry a
// "service" field. That frame is forwarded to the daemon, then two
// independent copy loops run until either side closes.
//
// The relay never interprets traffic beyond the first frame.
func RunRelay(in io.Reader, out io.Writer) error {
	first, err := ReadFrame(in)
	if err != nil {
		return fmt.Errorf("failed to read initial message from browser: %w", err)
	}

	var hello struct {
		Service string `json:"service"`
	}
	if err := json.Unmarshal(first, &hello); err != nil || hello.Service == "" {
		return fmt.Errorf("first message must carry a service field")
	}

	log.Printf("relay starting for service %s", hello.Service)

	path := SocketPath(hello.Service)
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon socket %s: %w", path, err)
	}
	defer conn.Close()

	if err := WriteFrame(conn, first); err != nil {
		return fmt.Errorf("failed to forward initial message: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Browser stdin → daemon socket. Ends silently on the first error or
	// EOF from either side.
	go func() {
		defer wg.Done()
		copyFrames(conn, in)
		// Half-close so the daemon sees EOF while replies still in
		// flight can drain to stdout.
		if uc, ok := conn.(*net.UnixConn); ok {
			uc.CloseWrite()
		} else {
			conn.Close()
		}
	}()

	// Daemon socket → browser stdout.
	go func() {
		defer wg.Done()
		copyFrames(out, conn)
	}()

	wg.Wait()
	log.Printf("relay for service %s ended", hello.Service)
	return nil
}

// copyFrames moves frames from src to dst until either side fails.
func copyFrames(dst io.Writer, src io.Reader) {
	for {
		frame, err := ReadFrame(src)
		if err != nil {
			return
		}
		if err := WriteFrame(dst, frame); err != nil {
			return
		}
	}
}
