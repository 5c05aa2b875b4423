// pkg/xdg/xdg.go

package xdg

import (
	"os"
	"path/filepath"
)

const dirPerm = 0o755

func getEnvOrDefault(envVar, fallback string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return fallback
}

// ConfigPath returns the XDG config location for app-owned file,
// e.g. ~/.config/appdctl/telemetry_on.
func ConfigPath(app, file string) string {
	base := getEnvOrDefault("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config"))
	return filepath.Join(base, app, file)
}

// StatePath returns the XDG state location, e.g. ~/.local/state/appdctl/appdctl.log.
func StatePath(app, file string) string {
	base := getEnvOrDefault("XDG_STATE_HOME", filepath.Join(os.Getenv("HOME"), ".local", "state"))
	return filepath.Join(base, app, file)
}

// EnsureDir creates the parent directory of path if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), dirPerm)
}
