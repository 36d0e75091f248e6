package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the XDG subdirectories.
const AppName = "shelf"

// ConfigDir returns the XDG-compliant config directory
// Typically ~/.config/shelf/ on Linux
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the full path to the config file
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json5")
}

// DataDir returns the XDG-compliant data directory
// Typically ~/.local/share/shelf/ on Linux (holds the file store)
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}
