// Package config handles configuration loading and validation for pinyind.
//
// Configuration is read from TOML (the default), JSON or YAML, chosen by
// file extension. Values missing from the file keep their defaults and
// PINYIND_* environment variables override both.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration format version.
const Version = 1

// Config is the complete pinyind configuration.
type Config struct {
	// Version is the configuration format version.
	Version int `toml:"version" json:"version" yaml:"version"`

	Toggle   ToggleConfig   `toml:"toggle" json:"toggle" yaml:"toggle"`
	Session  SessionConfig  `toml:"session" json:"session" yaml:"session"`
	Engine   EngineConfig   `toml:"engine" json:"engine" yaml:"engine"`
	Keyboard KeyboardConfig `toml:"keyboard" json:"keyboard" yaml:"keyboard"`
	IBus     IBusConfig     `toml:"ibus" json:"ibus" yaml:"ibus"`
	Logging  LoggingConfig  `toml:"logging" json:"logging" yaml:"logging"`
}

// ToggleConfig describes the gesture that switches composing on and off.
type ToggleConfig struct {
	// Key is the keysym name of the toggle key, e.g. "Control_L".
	Key string `toml:"key" json:"key" yaml:"key"`

	// Taps is the number of isolated taps that make one toggle.
	Taps int `toml:"taps" json:"taps" yaml:"taps"`

	// WindowMs bounds the time between the first and the last tap.
	// Zero means unbounded.
	WindowMs int `toml:"window_ms" json:"window_ms" yaml:"window_ms"`
}

// Window returns WindowMs as a duration.
func (t ToggleConfig) Window() time.Duration {
	return time.Duration(t.WindowMs) * time.Millisecond
}

// SessionConfig holds routing behavior.
type SessionConfig struct {
	// DefaultActive starts the session in composing mode.
	DefaultActive bool `toml:"default_active" json:"default_active" yaml:"default_active"`

	// CommitOnToggleOut commits the preedit when composing is switched off
	// instead of discarding it.
	CommitOnToggleOut bool `toml:"commit_on_toggle_out" json:"commit_on_toggle_out" yaml:"commit_on_toggle_out"`

	// ExitChord makes Ctrl+C and Ctrl+Z in composing mode stop the daemon.
	ExitChord bool `toml:"exit_chord" json:"exit_chord" yaml:"exit_chord"`

	// InlineCandidates renders candidates into the preedit when no panel
	// is available.
	InlineCandidates bool `toml:"inline_candidates" json:"inline_candidates" yaml:"inline_candidates"`
}

// EngineConfig configures the table engine.
type EngineConfig struct {
	// Style is "buffer" or "rawkey".
	Style string `toml:"style" json:"style" yaml:"style"`

	// PageSize is the number of candidates per page.
	PageSize int `toml:"page_size" json:"page_size" yaml:"page_size"`

	// Dictionary is the path of the sqlite dictionary.
	Dictionary string `toml:"dictionary" json:"dictionary" yaml:"dictionary"`

	// SourcePath is an optional plain-text table imported at startup.
	SourcePath string `toml:"source_path" json:"source_path" yaml:"source_path"`

	// WatchSource re-imports SourcePath when it changes.
	WatchSource bool `toml:"watch_source" json:"watch_source" yaml:"watch_source"`

	// Learn raises the weight of chosen candidates.
	Learn bool `toml:"learn" json:"learn" yaml:"learn"`
}

// KeyboardConfig configures keymap and key repeat.
type KeyboardConfig struct {
	// KeymapFile is an xkb text keymap used instead of the built-in US
	// layout until the compositor sends one.
	KeymapFile string `toml:"keymap_file" json:"keymap_file" yaml:"keymap_file"`

	// RepeatRate is in repeats per second. Zero disables repeat.
	RepeatRate int `toml:"repeat_rate" json:"repeat_rate" yaml:"repeat_rate"`

	// RepeatDelayMs is the delay before the first repeat.
	RepeatDelayMs int `toml:"repeat_delay_ms" json:"repeat_delay_ms" yaml:"repeat_delay_ms"`
}

// IBusConfig configures the IBus frontend.
type IBusConfig struct {
	// Address of the IBus bus. Empty means ask ibus (IBUS_ADDRESS, then
	// `ibus address`).
	Address string `toml:"address" json:"address" yaml:"address"`

	// BusName is the well-known name requested on the bus.
	BusName string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`

	// EngineName is the engine name listed in the component file.
	EngineName string `toml:"engine_name" json:"engine_name" yaml:"engine_name"`

	// ComponentPath is where `pinyind install` writes the component XML.
	ComponentPath string `toml:"component_path" json:"component_path" yaml:"component_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format (text, json).
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stdout, stderr, file or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of old log files.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`

	// AddSource adds file:line to every record.
	AddSource bool `toml:"add_source" json:"add_source" yaml:"add_source"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	paths := GetDefaultPaths()

	return &Config{
		Version: Version,
		Toggle: ToggleConfig{
			Key:  "Control_L",
			Taps: 2,
		},
		Session: SessionConfig{
			ExitChord:        true,
			InlineCandidates: true,
		},
		Engine: EngineConfig{
			Style:      "buffer",
			PageSize:   5,
			Dictionary: paths.DictionaryFile,
		},
		Keyboard: KeyboardConfig{
			RepeatDelayMs: 600,
		},
		IBus: IBusConfig{
			BusName:       "org.freedesktop.IBus.Pinyind",
			EngineName:    "pinyind",
			ComponentPath: paths.ComponentFile,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   paths.LogFile,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if envPath := os.Getenv("PINYIND_CONFIG"); envPath != "" {
		return envPath
	}
	return GetDefaultPaths().ConfigFile
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
// The result has environment overrides applied but is not validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Engine.Dictionary)}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DataDir returns the base pinyind data directory.
// PINYIND_DATA_DIR overrides the platform default.
func DataDir() string {
	if envDir := os.Getenv("PINYIND_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with PINYIND_.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("PINYIND_TOGGLE_KEY"); v != "" {
		c.Toggle.Key = v
	}
	if err := envInt("PINYIND_TOGGLE_TAPS", &c.Toggle.Taps); err != nil {
		return err
	}
	if err := envBool("PINYIND_DEFAULT_ACTIVE", &c.Session.DefaultActive); err != nil {
		return err
	}
	if err := envBool("PINYIND_COMMIT_ON_TOGGLE_OUT", &c.Session.CommitOnToggleOut); err != nil {
		return err
	}

	if v := os.Getenv("PINYIND_ENGINE_STYLE"); v != "" {
		c.Engine.Style = v
	}
	if v := os.Getenv("PINYIND_DICTIONARY"); v != "" {
		c.Engine.Dictionary = v
	}
	if v := os.Getenv("PINYIND_SOURCE_PATH"); v != "" {
		c.Engine.SourcePath = v
	}

	if v := os.Getenv("PINYIND_KEYMAP_FILE"); v != "" {
		c.Keyboard.KeymapFile = v
	}
	if err := envInt("PINYIND_REPEAT_RATE", &c.Keyboard.RepeatRate); err != nil {
		return err
	}
	if err := envInt("PINYIND_REPEAT_DELAY_MS", &c.Keyboard.RepeatDelayMs); err != nil {
		return err
	}

	if v := os.Getenv("PINYIND_IBUS_ADDRESS"); v != "" {
		c.IBus.Address = v
	}

	if v := os.Getenv("PINYIND_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PINYIND_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("PINYIND_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	*dst = n
	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	*dst = b
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Encode writes the configuration in the named format (toml, json, yaml).
func (c *Config) Encode(w io.Writer, format string) error {
	switch strings.TrimPrefix(format, ".") {
	case "", "toml":
		return toml.NewEncoder(w).Encode(c)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)
		return enc.Encode(c)
	}
	return fmt.Errorf("unsupported config format %q", format)
}
