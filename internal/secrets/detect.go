package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-hclog"
)

// warningShown checks if the fallback warning has already been shown.
// Uses a marker file in the data directory to avoid repeating on every command.
func warningShown() bool {
	_, err := os.Stat(warningMarkerPath())
	return err == nil
}

func markWarningShown() {
	_ = os.WriteFile(warningMarkerPath(), []byte("1"), 0600)
}

func warningMarkerPath() string {
	return filepath.Join(xdg.DataHome, "shelf", ".fallback-warning-shown")
}

// quietMode returns true if the user has suppressed warnings via SHELF_QUIET.
func quietMode() bool {
	return os.Getenv("SHELF_QUIET") == "1" || os.Getenv("SHELF_QUIET") == "true"
}

// warnOnce logs a warning the first time a fallback is taken.
func warnOnce(log hclog.Logger, msg string, args ...any) {
	if quietMode() || warningShown() {
		return
	}
	log.Warn(msg, args...)
	markWarningShown()
}

// NewBackend opens the storage area named by kind.
//
// "auto" tries the OS keyring first and falls back to the file backend;
// WSL and headless sessions go straight to the file. When nothing can be
// opened, auto degrades to no backend at all (nil, nil): the SecureStore then
// behaves as an empty, write-ignoring store instead of failing.
func NewBackend(kind string, log hclog.Logger) (Backend, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	switch kind {
	case KindNone:
		return nil, nil
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindFile:
		return NewFileBackend("")
	case KindKeyring:
		return NewKeyringBackend()
	case KindAuto, "":
		return autoBackend(log), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", kind)
	}
}

func autoBackend(log hclog.Logger) Backend {
	if IsWSL() || IsHeadless() {
		fstore, err := NewFileBackend("")
		if err != nil {
			log.Warn("no persistence backend available, state will not be saved", "error", err)
			return nil
		}
		return fstore
	}

	store, err := NewKeyringBackend()
	if err == nil {
		return store
	}

	fstore, ferr := NewFileBackend("")
	if ferr != nil {
		log.Warn("no persistence backend available, state will not be saved", "keyring", err, "file", ferr)
		return nil
	}
	warnOnce(log, "keyring unavailable, falling back to file storage", "error", err)
	return fstore
}

// IsWSL returns true if running under Windows Subsystem for Linux.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// IsHeadless returns true if running in a headless environment (no display server).
// Only applicable on Linux; macOS and Windows are assumed to have GUI.
func IsHeadless() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

// Describe names the backend for status output.
func Describe(b Backend) string {
	switch v := b.(type) {
	case nil:
		return "none"
	case *KeyringBackend:
		return "keyring"
	case *FileBackend:
		return "file (" + v.Path() + ")"
	case *MemoryBackend:
		return "memory"
	default:
		return fmt.Sprintf("%T", b)
	}
}
