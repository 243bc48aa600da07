package messaging

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	msg := map[string]interface{}{"type": "badge_update", "count": float64(5)}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, msg); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	raw, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(got, msg) {
		t.Errorf("roundtrip = %v, want %v", got, msg)
	}
}

func TestFrameTooLarge(t *testing.T) {
	// Header claims 2 MB but only 100 bytes follow. The size check must
	// fire on the header alone, not as a partial-read error.
	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], 2_000_000)
	buf.Write(header[:])
	buf.Write(make([]byte, 100))

	_, err := ReadFrame(&buf)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame error = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameAtLimit(t *testing.T) {
	// Exactly MaxFrameSize bytes is accepted; one more is not.
	big := bytes.Repeat([]byte("a"), MaxFrameSize-2)
	body := append(append([]byte{'"'}, big...), '"')

	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	if _, err := ReadFrame(&buf); err != nil {
		t.Errorf("frame at limit rejected: %v", err)
	}

	buf.Reset()
	binary.LittleEndian.PutUint32(header[:], MaxFrameSize+1)
	buf.Write(header[:])
	if _, err := ReadFrame(&buf); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("frame over limit: error = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameInvalidJSON(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	body := []byte("{not json")
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	if _, err := ReadFrame(&buf); err == nil {
		t.Error("ReadFrame accepted invalid JSON")
	}
}

func TestFrameTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], 50)
	buf.Write(header[:])
	buf.Write([]byte("{}"))

	if _, err := ReadFrame(&buf); err == nil {
		t.Error("ReadFrame accepted truncated body")
	}
}
