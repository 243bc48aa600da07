package desktop

import (
	"embed"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/loft-linux/loft/internal/config"
)

//go:embed assets/extension assets/shell-extension
var assets embed.FS

const shellExtensionUUID = "loft-shell-helper@chat.loft"

// DeployExtension copies the embedded companion extension to
// ~/.local/share/loft/extension, where the supervisor loads it from on
// every browser spawn.
func DeployExtension() error {
	dir, err := config.ExtensionDir()
	if err != nil {
		return err
	}
	if err := copyAssetDir("assets/extension", dir); err != nil {
		return err
	}
	log.Printf("deployed extension to %s", dir)
	return nil
}

// DeployShellExtension installs the GNOME Shell helper extension and
// tries to enable it. Enabling needs the gnome-extensions CLI; failure
// is logged, not fatal, since the helper is optional polish.
func DeployShellExtension() error {
	root, err := config.DataRoot()
	if err != nil {
		return err
	}
	dir := filepath.Join(root, "gnome-shell", "extensions", shellExtensionUUID)
	if err := copyAssetDir("assets/shell-extension", dir); err != nil {
		return err
	}

	out, err := exec.Command("gnome-extensions", "enable", shellExtensionUUID).CombinedOutput()
	if err != nil {
		log.Printf("could not enable shell extension (%v): %s", err, strings.TrimSpace(string(out)))
	} else {
		log.Printf("enabled shell extension %s", shellExtensionUUID)
	}
	return nil
}

func copyAssetDir(src, dest string) error {
	entries, err := assets.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read embedded %s: %w", src, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	for _, entry := range entries {
		data, err := assets.ReadFile(src + "/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dest, entry.Name()), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", entry.Name(), err)
		}
	}
	return nil
}
