package desktop

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loft-linux/loft/internal/config"
	"github.com/loft-linux/loft/internal/service"
)

var iconClient = &http.Client{Timeout: 30 * time.Second}

// EnsureIcons downloads icons for every service that is missing them.
// Failures are logged per service so one unreachable icon does not block
// the rest.
func EnsureIcons() {
	for _, def := range service.All {
		if err := EnsureIconsFor(def); err != nil {
			log.Printf("failed to fetch icons for %s: %v", def.DisplayName, err)
		}
	}
}

// EnsureIconsFor downloads and installs a service's app and tray icons.
// Existing files are kept.
func EnsureIconsFor(def *service.Definition) error {
	if err := fetchAppIcon(def); err != nil {
		return err
	}
	if err := installAppIconToTheme(def); err != nil {
		return err
	}
	return fetchTrayIcon(def)
}

// fetchAppIcon downloads the application icon used by desktop entries,
// notifications, and the tray.
func fetchAppIcon(def *service.Definition) error {
	iconsDir, err := config.IconsDir()
	if err != nil {
		return err
	}
	path := filepath.Join(iconsDir, def.AppIconFilename)
	if config.FileExists(path) {
		return nil
	}

	data, err := downloadURL(def.AppIconURL)
	if err != nil {
		return err
	}
	log.Printf("fetched app icon from %s", def.AppIconURL)
	return writeFileMkdir(path, data, 0o644)
}

// themeIconPath places an icon in the hicolor theme: scalable for SVG,
// 48x48 for anything raster.
func themeIconPath(iconName, sourceName string) (string, error) {
	root, err := config.DataRoot()
	if err != nil {
		return "", err
	}
	base := filepath.Join(root, "icons", "hicolor")
	if strings.HasSuffix(sourceName, ".svg") {
		return filepath.Join(base, "scalable", "apps", iconName+".svg"), nil
	}
	return filepath.Join(base, "48x48", "apps", iconName+".png"), nil
}

// installAppIconToTheme copies the downloaded app icon into the XDG icon
// theme so entries can reference it by name instead of by path.
func installAppIconToTheme(def *service.Definition) error {
	dest, err := themeIconPath(def.AppIconName(), def.AppIconFilename)
	if err != nil {
		return err
	}
	if config.FileExists(dest) {
		return nil
	}

	iconsDir, err := config.IconsDir()
	if err != nil {
		return err
	}
	src := filepath.Join(iconsDir, def.AppIconFilename)
	if !config.FileExists(src) {
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return writeFileMkdir(dest, data, 0o644)
}

// fetchTrayIcon downloads the symbolic tray icon straight into the icon
// theme, where the status-notifier host resolves it by name.
func fetchTrayIcon(def *service.Definition) error {
	dest, err := themeIconPath(def.TrayIconName(), def.TrayIconURL)
	if err != nil {
		return err
	}
	if config.FileExists(dest) {
		return nil
	}

	data, err := downloadURL(def.TrayIconURL)
	if err != nil {
		return err
	}
	log.Printf("fetched tray icon from %s", def.TrayIconURL)
	return writeFileMkdir(dest, data, 0o644)
}

// removeIconsFromTheme removes both theme icons for a service; used on
// uninstall.
func removeIconsFromTheme(def *service.Definition) {
	root, err := config.DataRoot()
	if err != nil {
		return
	}
	base := filepath.Join(root, "icons", "hicolor")
	for _, name := range []string{def.AppIconName(), def.TrayIconName()} {
		_ = os.Remove(filepath.Join(base, "scalable", "apps", name+".svg"))
		_ = os.Remove(filepath.Join(base, "48x48", "apps", name+".png"))
	}
}

func downloadURL(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "Loft/1.0")

	resp, err := iconClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s returned %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	return data, nil
}
