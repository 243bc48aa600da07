package devtools

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func testLoader() *Loader {
	return &Loader{
		StartupDelay: 0,
		PollInterval: 10 * time.Millisecond,
		Timeout:      500 * time.Millisecond,
	}
}

// runHandshake drives LoadExtension against an in-memory pipe. The
// respond function receives the raw request and returns the bytes the
// fake browser writes back.
func runHandshake(t *testing.T, respond func(req []byte) []byte) (string, error) {
	t.Helper()

	cmdR, cmdW := net.Pipe()  // daemon writes commands, browser reads
	respR, respW := net.Pipe() // browser writes responses, daemon reads
	t.Cleanup(func() {
		cmdR.Close()
		cmdW.Close()
		respR.Close()
		respW.Close()
	})

	go func() {
		buf := make([]byte, 8192)
		n, err := cmdR.Read(buf)
		if err != nil {
			return
		}
		req := bytes.TrimSuffix(buf[:n], []byte{0x00})
		if reply := respond(req); reply != nil {
			respW.Write(reply)
		}
	}()

	return testLoader().LoadExtension(respR, cmdW, "/opt/loft/extension")
}

func delimited(msgs ...string) []byte {
	var buf bytes.Buffer
	for _, m := range msgs {
		buf.WriteString(m)
		buf.WriteByte(0x00)
	}
	return buf.Bytes()
}

func TestLoadExtensionSuccess(t *testing.T) {
	id, err := runHandshake(t, func(req []byte) []byte {
		var parsed struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
			Params struct {
				Path string `json:"path"`
			} `json:"params"`
		}
		if err := json.Unmarshal(req, &parsed); err != nil {
			t.Errorf("request is not valid JSON: %v", err)
		}
		if parsed.ID != 1 || parsed.Method != "Extensions.loadUnpacked" {
			t.Errorf("unexpected request: %s", req)
		}
		if parsed.Params.Path != "/opt/loft/extension" {
			t.Errorf("path = %q", parsed.Params.Path)
		}
		return delimited(`{"id":1,"result":{"id":"abcdefghijklmnop"}}`)
	})
	if err != nil {
		t.Fatalf("LoadExtension failed: %v", err)
	}
	if id != "abcdefghijklmnop" {
		t.Errorf("extension id = %q", id)
	}
}

func TestLoadExtensionSkipsUnrelatedTraffic(t *testing.T) {
	id, err := runHandshake(t, func([]byte) []byte {
		return delimited(
			`{"method":"Target.targetCreated","params":{}}`,
			`{"id":42,"result":{}}`,
			`not even json`,
			`{"id":1,"result":{"id":"realid"}}`,
			`{"id":99,"result":{}}`,
		)
	})
	if err != nil {
		t.Fatalf("LoadExtension failed: %v", err)
	}
	if id != "realid" {
		t.Errorf("extension id = %q, want the id:1 outcome only", id)
	}
}

func TestLoadExtensionErrorResponse(t *testing.T) {
	_, err := runHandshake(t, func([]byte) []byte {
		return delimited(`{"id":1,"error":{"message":"manifest missing"}}`)
	})
	if err == nil || !strings.Contains(err.Error(), "manifest missing") {
		t.Errorf("error = %v, want the browser's message", err)
	}
}

func TestLoadExtensionTimeout(t *testing.T) {
	start := time.Now()
	_, err := runHandshake(t, func([]byte) []byte {
		return nil // never answer
	})
	if !errors.Is(err, ErrLoadTimeout) {
		t.Fatalf("error = %v, want ErrLoadTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v, deadline not honored", elapsed)
	}
}

func TestLoadExtensionSplitAcrossReads(t *testing.T) {
	cmdR, cmdW := net.Pipe()
	respR, respW := net.Pipe()
	t.Cleanup(func() {
		cmdR.Close()
		cmdW.Close()
		respR.Close()
		respW.Close()
	})

	go func() {
		buf := make([]byte, 8192)
		if _, err := cmdR.Read(buf); err != nil {
			return
		}
		// Response dribbles in two writes, delimiter last.
		respW.Write([]byte(`{"id":1,"result":{"id":"sp`))
		time.Sleep(30 * time.Millisecond)
		respW.Write(append([]byte(`lit"}}`), 0x00))
	}()

	id, err := testLoader().LoadExtension(respR, cmdW, "/x")
	if err != nil {
		t.Fatalf("LoadExtension failed: %v", err)
	}
	if id != "split" {
		t.Errorf("extension id = %q", id)
	}
}
