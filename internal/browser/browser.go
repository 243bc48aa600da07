// Package browser detects and launches the Chromium-based runtime that
// hosts a service's web application.
package browser

import (
	"errors"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/service"
)

// LaunchMethod says how the detected browser must be started.
type LaunchMethod string

const (
	// LaunchDirect executes the binary path directly.
	LaunchDirect LaunchMethod = "direct"
	// LaunchFlatpak runs the browser through flatpak.
	LaunchFlatpak LaunchMethod = "flatpak"
	// LaunchAppImage executes a downloaded AppImage.
	LaunchAppImage LaunchMethod = "appimage"
)

// Info describes a usable browser runtime.
type Info struct {
	Path         string
	LaunchMethod LaunchMethod
}

// ErrNotFound is returned when no usable browser runtime exists. It is
// fatal to daemon startup and the one failure also surfaced through the
// manager GUI.
var ErrNotFound = errors.New("Google Chrome not found; install Google Chrome and try again")

const flatpakAppID = "com.google.Chrome"

// Detect finds a browser runtime. Search order: config override, PATH,
// well-known install paths, flatpak, AppImage scan.
func Detect(cfg *config.Global) (Info, error) {
	if cfg.BrowserPath != "" {
		if isExecutable(cfg.BrowserPath) {
			return Info{Path: cfg.BrowserPath, LaunchMethod: LaunchDirect}, nil
		}
		log.Printf("configured browser path %s is not executable, falling back to detection", cfg.BrowserPath)
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return Info{Path: path, LaunchMethod: LaunchDirect}, nil
		}
	}

	for _, path := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/opt/google/chrome/google-chrome",
	} {
		if isExecutable(path) {
			return Info{Path: path, LaunchMethod: LaunchDirect}, nil
		}
	}

	if exec.Command("flatpak", "info", flatpakAppID).Run() == nil {
		return Info{Path: flatpakAppID, LaunchMethod: LaunchFlatpak}, nil
	}

	if info, ok := scanAppImages(); ok {
		return info, nil
	}

	return Info{}, ErrNotFound
}

// scanAppImages looks for a Chrome AppImage in the usual download spots.
func scanAppImages() (Info, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Info{}, false
	}
	for _, dir := range []string{
		filepath.Join(home, "Applications"),
		filepath.Join(home, ".local", "bin"),
	} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := strings.ToLower(entry.Name())
			if strings.Contains(name, "chrome") && strings.HasSuffix(name, ".appimage") {
				path := filepath.Join(dir, entry.Name())
				if isExecutable(path) {
					return Info{Path: path, LaunchMethod: LaunchAppImage}, true
				}
			}
		}
	}
	return Info{}, false
}

// IsFlatpakSandbox reports whether loft itself runs inside a Flatpak.
func IsFlatpakSandbox() bool {
	_, err := os.Stat("/.flatpak-info")
	return err == nil
}

// BuildArgs returns the browser command line for a service. The
// debugging pipe flags make the browser read protocol commands from fd 3
// and write responses to fd 4, which is how the extension gets loaded
// (branded builds dropped --load-extension).
func BuildArgs(def *service.Definition, profileDir string) []string {
	return []string{
		"--app=" + def.URL,
		"--user-data-dir=" + profileDir,
		"--class=" + def.WMClass(),
		"--remote-debugging-pipe",
		"--enable-unsafe-extension-debugging",
		"--no-first-run",
		"--no-default-browser-check",
		"--ozone-platform=wayland",
	}
}

// BuildCommand constructs the exec.Cmd for a detected browser.
func BuildCommand(info Info, args []string) *exec.Cmd {
	switch info.LaunchMethod {
	case LaunchFlatpak:
		if IsFlatpakSandbox() {
			full := append([]string{"--host", "flatpak", "run", info.Path}, args...)
			return exec.Command("flatpak-spawn", full...)
		}
		full := append([]string{"run", info.Path}, args...)
		return exec.Command("flatpak", full...)
	default:
		return exec.Command(info.Path, args...)
	}
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}
