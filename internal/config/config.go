package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Global is the global configuration at ~/.config/loft/config.toml.
type Global struct {
	// BrowserPath overrides browser auto-detection when set.
	BrowserPath string `toml:"browser_path,omitempty"`
}

// Service is the per-service configuration at
// ~/.config/loft/services/<name>.toml.
type Service struct {
	Autostart    bool `toml:"autostart"`
	DoNotDisturb bool `toml:"do_not_disturb"`
	ShowTitlebar bool `toml:"show_titlebar"`
}

// DefaultService returns the default per-service configuration. The
// titlebar is shown by default so a fresh install looks like a normal
// application window.
func DefaultService() *Service {
	return &Service{ShowTitlebar: true}
}

// LoadGlobal loads the global config, returning defaults if the file
// doesn't exist.
func LoadGlobal() (*Global, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	var cfg Global
	if err := loadTOML(filepath.Join(dir, "config.toml"), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveGlobal writes the global config.
func SaveGlobal(cfg *Global) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return saveTOML(filepath.Join(dir, "config.toml"), cfg)
}

// ServicePath returns the config file path for a service.
func ServicePath(serviceName string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "services", serviceName+".toml"), nil
}

// LoadService loads a service's config, returning defaults if the file
// doesn't exist.
func LoadService(serviceName string) (*Service, error) {
	path, err := ServicePath(serviceName)
	if err != nil {
		return nil, err
	}
	cfg := DefaultService()
	if err := loadTOML(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveService writes a service's config.
func SaveService(serviceName string, cfg *Service) error {
	path, err := ServicePath(serviceName)
	if err != nil {
		return err
	}
	return saveTOML(path, cfg)
}

// RemoveService deletes a service's config file.
func RemoveService(serviceName string) error {
	path, err := ServicePath(serviceName)
	if err != nil {
		return err
	}
	if !FileExists(path) {
		return nil
	}
	return os.Remove(path)
}

// loadTOML decodes a TOML file into v. A missing file is not an error:
// v is left untouched so callers get their defaults.
func loadTOML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// saveTOML encodes v to a TOML file, creating parent directories.
func saveTOML(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
