package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir returns mcpwatch's configuration directory. Respects the
// MCPWATCH_CONFIG_DIR override.
func ConfigDir() (string, error) {
	if dir := os.Getenv("MCPWATCH_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "mcpwatch"), nil
}

// LogDir returns the directory for mcpwatch log files.
func LogDir() (string, error) {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("log dir: %w", err)
		}
		return filepath.Join(home, "Library", "Logs", "mcpwatch"), nil
	}
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, "logs"), nil
}

// ConfigFilePath returns the default path to mcpwatch's config file,
// mcpwatch.yaml in ConfigDir, used by the CLI when --config is not given.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mcpwatch.yaml"), nil
}

// PIDFilePath returns the path to the running proxy's PID file, written on
// startup and removed on clean shutdown so a wrapper script can detect a
// still-running instance.
func PIDFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mcpwatch.pid"), nil
}
