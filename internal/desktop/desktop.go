// Package desktop integrates services with the Linux desktop: .desktop
// entries, icon-theme installation, the native-messaging host manifest,
// autostart entries, and install/uninstall orchestration.
package desktop

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/service"
)

// ExtensionID is the deterministic extension id derived from the public
// key in the embedded manifest.json.
const ExtensionID = "eofapmpkglkhhdjadegnleadgbjooljp"

// nmHostName is the native-messaging host name the extension connects to.
const nmHostName = "chat.loft.host"

// InstallService sets a service up end to end: extension deployment,
// icons, desktop entries, and the native-messaging host manifest.
func InstallService(def *service.Definition) error {
	if err := DeployExtension(); err != nil {
		return err
	}
	if err := DeployShellExtension(); err != nil {
		return err
	}
	if err := EnsureIconsFor(def); err != nil {
		return err
	}
	if err := CreateDesktopEntry(def); err != nil {
		return err
	}
	if err := RepairBrowserDesktopEntry(def); err != nil {
		return err
	}
	if err := SetupNMHost(); err != nil {
		return err
	}
	if err := config.SaveService(def.Name, config.DefaultService()); err != nil {
		return err
	}
	log.Printf("installed service %s", def.DisplayName)
	return nil
}

// UninstallService removes a service's desktop integration. When
// deleteData is set the browser profile is removed as well.
func UninstallService(def *service.Definition, deleteData bool) error {
	if err := RemoveDesktopEntry(def); err != nil {
		return err
	}

	// Best effort: autostart, theme icons, per-service config.
	_ = SetAutostart(def, false)
	removeIconsFromTheme(def)
	_ = config.RemoveService(def.Name)

	if deleteData {
		profile, err := config.ProfileDir(def.Name)
		if err == nil && config.FileExists(profile) {
			_ = os.RemoveAll(profile)
			log.Printf("removed browser profile %s", profile)
		}
	}

	if !anyServiceInstalled() {
		_ = removeNMHost()
	}

	log.Printf("uninstalled service %s", def.DisplayName)
	return nil
}

// IsServiceInstalled reports whether a service has a desktop entry.
func IsServiceInstalled(def *service.Definition) bool {
	path, err := desktopEntryPath(def)
	return err == nil && config.FileExists(path)
}

func anyServiceInstalled() bool {
	for _, def := range service.All {
		if IsServiceInstalled(def) {
			return true
		}
	}
	return false
}

func applicationsDir() (string, error) {
	root, err := config.DataRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "applications"), nil
}

func desktopEntryPath(def *service.Definition) (string, error) {
	dir, err := applicationsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("loft-%s.desktop", def.Name)), nil
}

func browserDesktopEntryPath(def *service.Definition) (string, error) {
	dir, err := applicationsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, def.BrowserDesktopID+".desktop"), nil
}

// CreateDesktopEntry writes the launcher entry the user clicks.
func CreateDesktopEntry(def *service.Definition) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine loft binary path: %w", err)
	}
	iconsDir, err := config.IconsDir()
	if err != nil {
		return err
	}

	content := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Comment=Open %s via Loft
Exec=%s service %s
Icon=%s
Terminal=false
Categories=Network;InstantMessaging;
StartupWMClass=%s
`, def.DisplayName, def.DisplayName, exe, def.Name,
		filepath.Join(iconsDir, def.AppIconFilename), def.WMClass())

	path, err := desktopEntryPath(def)
	if err != nil {
		return err
	}
	return writeFileMkdir(path, []byte(content), 0o644)
}

// RemoveDesktopEntry deletes both the launcher entry and the repaired
// browser-generated alias.
func RemoveDesktopEntry(def *service.Definition) error {
	path, err := desktopEntryPath(def)
	if err != nil {
		return err
	}
	if config.FileExists(path) {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	if alias, err := browserDesktopEntryPath(def); err == nil && config.FileExists(alias) {
		_ = os.Remove(alias)
	}
	return nil
}

// RepairBrowserDesktopEntry overwrites the desktop entry the browser
// auto-generates for --app mode. The generated one has NoDisplay=true
// and no Exec line, which gives alt-tab a raw class name and crashes
// GNOME Shell when a notification is clicked. The supervisor calls this
// after every spawn because the browser rewrites the file on launch.
func RepairBrowserDesktopEntry(def *service.Definition) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine loft binary path: %w", err)
	}
	iconsDir, err := config.IconsDir()
	if err != nil {
		return err
	}

	content := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Exec=%s service %s
Icon=%s
NoDisplay=true
`, def.DisplayName, exe, def.Name, filepath.Join(iconsDir, def.AppIconFilename))

	path, err := browserDesktopEntryPath(def)
	if err != nil {
		return err
	}
	return writeFileMkdir(path, []byte(content), 0o644)
}

// SetAutostart creates or removes the XDG autostart entry for a service
// and records the setting in its config.
func SetAutostart(def *service.Definition, enabled bool) error {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("failed to determine config dir: %w", err)
	}
	path := filepath.Join(cfgDir, "autostart", fmt.Sprintf("loft-%s.desktop", def.Name))

	if enabled {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to determine loft binary path: %w", err)
		}
		content := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Comment=%s (Loft)
Exec=%s service %s --minimized
Icon=%s
Terminal=false
X-GNOME-Autostart-enabled=true
`, def.DisplayName, def.DisplayName, exe, def.Name, def.AppIconName())
		if err := writeFileMkdir(path, []byte(content), 0o644); err != nil {
			return err
		}
	} else if config.FileExists(path) {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove autostart entry: %w", err)
		}
	}

	cfg, err := config.LoadService(def.Name)
	if err != nil {
		cfg = config.DefaultService()
	}
	cfg.Autostart = enabled
	return config.SaveService(def.Name, cfg)
}

func nmHostManifestPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config dir: %w", err)
	}
	return filepath.Join(cfgDir, "google-chrome", "NativeMessagingHosts", nmHostName+".json"), nil
}

// SetupNMHost writes the native-messaging host manifest plus the wrapper
// script it points at. The browser launches the host binary with no
// arguments, so the wrapper adds the relay subcommand. A copy of the
// manifest also goes into every service profile: a browser started with
// --user-data-dir does not consult the default config location.
func SetupNMHost() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine loft binary path: %w", err)
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}

	wrapper := filepath.Join(dataDir, "nm-host.sh")
	script := fmt.Sprintf("#!/bin/sh\nexec %q relay \"$@\"\n", exe)
	if err := writeFileMkdir(wrapper, []byte(script), 0o755); err != nil {
		return err
	}

	manifest := fmt.Sprintf(`{
  "name": %q,
  "description": "Loft desktop integration native messaging host",
  "path": %q,
  "type": "stdio",
  "allowed_origins": ["chrome-extension://%s/"]
}
`, nmHostName, wrapper, ExtensionID)

	path, err := nmHostManifestPath()
	if err != nil {
		return err
	}
	if err := writeFileMkdir(path, []byte(manifest), 0o644); err != nil {
		return err
	}

	for _, def := range service.All {
		profile, err := config.ProfileDir(def.Name)
		if err != nil {
			return err
		}
		perProfile := filepath.Join(profile, "NativeMessagingHosts", nmHostName+".json")
		if err := writeFileMkdir(perProfile, []byte(manifest), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func removeNMHost() error {
	path, err := nmHostManifestPath()
	if err != nil {
		return err
	}
	if config.FileExists(path) {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	wrapper := filepath.Join(dataDir, "nm-host.sh")
	if config.FileExists(wrapper) {
		_ = os.Remove(wrapper)
	}
	return nil
}

func writeFileMkdir(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
