// Package paths resolves the configuration directory and the database file
// location for the sqlbridge command.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppName names the per-user configuration directory.
const AppName = "sqlbridge"

// DefaultDatabaseName is the CWD-relative database file used when nothing
// else names one.
const DefaultDatabaseName = "sqlbridge.db"

// Environment variable names for overrides.
const (
	EnvConfigDir = "SQLBRIDGE_CONFIG_DIR"
	EnvDatabase  = "SQLBRIDGE_DB"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/sqlbridge (fallback ~/.config/sqlbridge)
// macOS:   ~/Library/Application Support/sqlbridge
// Windows: %APPDATA%/sqlbridge
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > SQLBRIDGE_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDatabasePath returns the database file following the precedence
// chain: flag > configValue > SQLBRIDGE_DB env > $(CWD)/sqlbridge.db.
//
// The engine's special names (":memory:" and "file:" URIs) are returned
// unchanged.
func ResolveDatabasePath(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDatabase)} {
		if v == "" {
			continue
		}
		if IsSpecialName(v) {
			return v, nil
		}
		return filepath.Abs(v)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDatabaseName), nil
}

// IsSpecialName reports whether name is an in-memory database or a URI
// rather than a file path.
func IsSpecialName(name string) bool {
	return name == ":memory:" || strings.HasPrefix(name, "file:")
}
