// Package messaging implements the native-messaging transport between the
// daemon, the relay process, and the browser extension: a 4-byte
// little-endian length prefix followed by a UTF-8 JSON body.
package messaging

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the largest accepted message body, inclusive. The
// browser enforces the same limit on its side of the protocol.
const MaxFrameSize = 1_048_576

// ErrFrameTooLarge is returned when a frame header declares a body larger
// than MaxFrameSize. The body is never read in that case.
var ErrFrameTooLarge = errors.New("message too large")

// WriteFrame marshals v and writes it as a length-prefixed frame.
func WriteFrame(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write message length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and returns the JSON body.
// The length header is validated against MaxFrameSize before any body
// bytes are read.
func ReadFrame(r io.Reader) (json.RawMessage, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("message body is not valid JSON")
	}
	return body, nil
}
