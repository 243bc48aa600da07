// Package devtools speaks the browser's debugging-protocol pipe just
// enough to load the companion extension into a freshly spawned browser.
//
// The transport is NUL-delimited JSON over two anonymous pipes wired to
// fixed descriptors in the child. Exactly one request is ever sent; its
// id is reserved and everything else on the pipe is event noise.
package devtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// loadRequestID correlates the single loadUnpacked request with its
// response. Event notifications carry other ids (or none) and are
// skipped.
const loadRequestID = 1

// ErrLoadTimeout is returned when the browser does not answer the load
// request within the deadline. It is a normal, reportable failure that
// aborts the spawn attempt; there is no automatic retry.
var ErrLoadTimeout = errors.New("timed out waiting for extension load response")

// Conn is the readable half of the debugging pipe. *os.File and net
// connections both satisfy it; the deadline is what lets the read loop
// poll instead of blocking forever.
type Conn interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// Loader performs the one-shot extension load handshake. Its pipe
// endpoints are borrowed, never closed: the browser treats EOF on the
// debugging pipe as a shutdown signal, so the descriptors must stay open
// for the child's whole lifetime and are reclaimed by the OS when it
// exits.
type Loader struct {
	// StartupDelay gives the browser time to bring up the debugging
	// pipe before the request is written.
	StartupDelay time.Duration

	// PollInterval is how long each read waits before re-checking the
	// overall deadline.
	PollInterval time.Duration

	// Timeout bounds the whole handshake.
	Timeout time.Duration
}

// NewLoader returns a Loader with production timings.
func NewLoader() *Loader {
	return &Loader{
		StartupDelay: 2 * time.Second,
		PollInterval: 100 * time.Millisecond,
		Timeout:      10 * time.Second,
	}
}

type request struct {
	ID     int               `json:"id"`
	Method string            `json:"method"`
	Params map[string]string `json:"params"`
}

type response struct {
	ID     *int `json:"id"`
	Result *struct {
		ID string `json:"id"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// LoadExtension asks the browser to load the unpacked extension at path
// and waits for the correlated response. It returns the extension id on
// success. Responses for other ids are skipped without error.
func (l *Loader) LoadExtension(r Conn, w io.Writer, path string) (string, error) {
	time.Sleep(l.StartupDelay)

	req := request{
		ID:     loadRequestID,
		Method: "Extensions.loadUnpacked",
		Params: map[string]string{"path": path},
	}
	msg, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode load request: %w", err)
	}
	msg = append(msg, 0x00)
	if _, err := w.Write(msg); err != nil {
		return "", fmt.Errorf("failed to write load request: %w", err)
	}
	log.Printf("sent loadUnpacked for %s", path)

	deadline := time.Now().Add(l.Timeout)
	buf := make([]byte, 8192)
	var accumulated []byte

	for {
		if err := r.SetReadDeadline(time.Now().Add(l.PollInterval)); err != nil {
			return "", fmt.Errorf("failed to arm read deadline: %w", err)
		}
		n, err := r.Read(buf)
		if n > 0 {
			accumulated = append(accumulated, buf[:n]...)
			if id, done, err := l.scan(&accumulated); done {
				return id, err
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, os.ErrDeadlineExceeded):
			if time.Now().After(deadline) {
				return "", ErrLoadTimeout
			}
		case errors.Is(err, io.EOF):
			return "", fmt.Errorf("debugging pipe closed before a load response arrived")
		default:
			return "", fmt.Errorf("failed to read load response: %w", err)
		}
	}
}

// scan splits accumulated bytes on NUL delimiters and looks for the
// correlated response. Multiple responses may arrive concatenated.
func (l *Loader) scan(accumulated *[]byte) (string, bool, error) {
	for {
		pos := -1
		for i, b := range *accumulated {
			if b == 0x00 {
				pos = i
				break
			}
		}
		if pos < 0 {
			return "", false, nil
		}

		raw := (*accumulated)[:pos]
		*accumulated = (*accumulated)[pos+1:]

		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			// Garbage between delimiters; skip like any unrelated event.
			continue
		}
		if resp.ID == nil || *resp.ID != loadRequestID {
			continue
		}
		if resp.Error != nil {
			return "", true, fmt.Errorf("extension load failed: %s", resp.Error.Message)
		}
		if resp.Result != nil {
			log.Printf("extension loaded (id: %s)", resp.Result.ID)
			return resp.Result.ID, true, nil
		}
		return "", true, fmt.Errorf("load response carries neither result nor error")
	}
}
