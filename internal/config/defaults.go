package config

import (
	"os"
	"path/filepath"
)

// Paths follow the XDG Base Directory Specification; pinyind only runs
// where IBus does.

// PlatformDataDir returns $XDG_DATA_HOME/pinyind or ~/.local/share/pinyind.
func PlatformDataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// PlatformConfigDir returns $XDG_CONFIG_HOME/pinyind or ~/.config/pinyind.
func PlatformConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// PlatformStateDir returns $XDG_STATE_HOME/pinyind or
// ~/.local/state/pinyind. Logs go here.
func PlatformStateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// PlatformIBusComponentDir returns the per-user IBus component directory.
func PlatformIBusComponentDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(homeDir(), ".local", "share")
	}
	return filepath.Join(base, "ibus", "component")
}

func xdgDir(env string, fallback ...string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, "pinyind")
	}
	parts := append([]string{homeDir()}, fallback...)
	return filepath.Join(append(parts, "pinyind")...)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}

// DefaultPaths lists the default locations of everything pinyind reads or
// writes.
type DefaultPaths struct {
	DataDir   string
	ConfigDir string
	StateDir  string

	ConfigFile     string
	DictionaryFile string
	LogFile        string
	ComponentFile  string
}

// GetDefaultPaths returns all default paths for the current user.
func GetDefaultPaths() *DefaultPaths {
	dataDir := DataDir()
	configDir := PlatformConfigDir()
	stateDir := PlatformStateDir()

	return &DefaultPaths{
		DataDir:   dataDir,
		ConfigDir: configDir,
		StateDir:  stateDir,

		ConfigFile:     filepath.Join(configDir, "config.toml"),
		DictionaryFile: filepath.Join(dataDir, "dict.db"),
		LogFile:        filepath.Join(stateDir, "pinyind.log"),
		ComponentFile:  filepath.Join(PlatformIBusComponentDir(), "pinyind.xml"),
	}
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"json",
		"yaml",
		"yml",
	}
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first found config file, or empty string if none found.
func FindConfigFile() string {
	// Search order:
	// 1. Current directory
	// 2. Config directory
	searchDirs := []string{
		".",
		PlatformConfigDir(),
	}

	for _, dir := range searchDirs {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}
