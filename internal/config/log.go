package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// InitLogging configures the standard logger for the given mode.
//
// The daemon and CLI log to stderr and to a per-mode file under
// ~/.local/share/loft/logs/. In relay mode the browser owns stdout for
// the native-messaging stream and treats stray output as protocol
// corruption, so the relay logs to its file only. Verbose adds source
// locations and microsecond timestamps.
func InitLogging(name string, relayMode, verbose bool) error {
	logsDir, err := LogsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", logsDir, err)
	}

	path := filepath.Join(logsDir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	log.SetPrefix(fmt.Sprintf("[%s] ", name))
	if verbose {
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	} else {
		log.SetFlags(log.Ldate | log.Ltime)
	}
	if relayMode {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}
