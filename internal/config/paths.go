package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "config-resolver"

// Paths contains the standard per-user paths.
type Paths struct {
	Config string // ~/.config/config-resolver
	Cache  string // ~/.cache/config-resolver
	State  string // ~/.local/state/config-resolver
}

// GetPaths returns the standard per-user paths.
func GetPaths() *Paths {
	return &Paths{
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), AppName),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), AppName),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), AppName),
	}
}

// LogDir is where log files are written.
func (p *Paths) LogDir() string {
	return filepath.Join(p.State, "log")
}

// HistoryDir is where resolved configurations are recorded.
func (p *Paths) HistoryDir() string {
	return filepath.Join(p.Cache, "history")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cache")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}

// GlobalConfigPath returns the path to the global settings file.
func GlobalConfigPath() string {
	return filepath.Join(GetPaths().Config, FileNames[0])
}

// ProjectConfigPath returns the path of a settings file inside the project's
// .config-resolver directory.
func ProjectConfigPath(directory, name string) string {
	return filepath.Join(directory, "."+AppName, name)
}
