// Package config handles TOML configuration and XDG path management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "loft"

// ConfigDir returns ~/.config/loft.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// DataRoot returns the XDG data root, ~/.local/share by default. Shared
// locations like applications/ and icons/hicolor live under it.
func DataRoot() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share"), nil
}

// DataDir returns ~/.local/share/loft.
func DataDir() (string, error) {
	root, err := DataRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, appDirName), nil
}

// RuntimeDir returns the per-user runtime directory for loft sockets,
// $XDG_RUNTIME_DIR/loft with a /run/user/<uid> fallback.
func RuntimeDir() string {
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = fmt.Sprintf("/run/user/%d", os.Getuid())
	}
	return filepath.Join(base, appDirName)
}

// LogsDir returns the log directory, ~/.local/share/loft/logs.
func LogsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// IconsDir returns the downloaded-icon directory, ~/.local/share/loft/icons.
func IconsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "icons"), nil
}

// ProfileDir returns the browser profile directory for a service.
func ProfileDir(serviceName string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles", serviceName), nil
}

// ExtensionDir returns where the companion extension is deployed.
func ExtensionDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "extension"), nil
}

// FileExists reports whether a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
