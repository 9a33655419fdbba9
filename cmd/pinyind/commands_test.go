package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinyind/internal/config"
	"pinyind/internal/engine"
	"pinyind/internal/keycodec"
	"pinyind/internal/keys"
	"pinyind/internal/logging"
	"pinyind/internal/protocol"
)

// testConfig writes a valid configuration whose paths all live in a temp
// dir and returns its path.
func testConfig(t *testing.T, edit func(*config.Config)) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Engine.Dictionary = filepath.Join(dir, "dict.db")
	cfg.IBus.ComponentPath = filepath.Join(dir, "component", "pinyind.xml")
	cfg.Logging.FilePath = filepath.Join(dir, "pinyind.log")
	if edit != nil {
		edit(cfg)
	}
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.SaveConfig(cfg, path))
	return path, cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigShow(t *testing.T) {
	path, _ := testConfig(t, nil)

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[toggle]")
	assert.Contains(t, out, `key = "Control_L"`)

	out, err = execute(t, "--config", path, "config", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"page_size": 5`)

	out, err = execute(t, "--config", path, "--debug", "config", "show", "-f", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
}

func TestConfigCheck(t *testing.T) {
	path, _ := testConfig(t, nil)
	out, err := execute(t, "--config", path, "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad, _ := testConfig(t, func(c *config.Config) { c.Toggle.Taps = 9 })
	out, err = execute(t, "--config", bad, "config", "check")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, out, "toggle.taps")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, path)

	_, err = execute(t, "--config", path, "config", "init")
	assert.Error(t, err, "existing file is kept")

	_, err = execute(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestInstallUninstall(t *testing.T) {
	path, cfg := testConfig(t, nil)

	out, err := execute(t, "--config", path, "install", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "<name>org.freedesktop.IBus.Pinyind</name>")
	assert.Contains(t, out, " run</exec>")
	assert.NoFileExists(t, cfg.IBus.ComponentPath, "--print does not write")

	out, err = execute(t, "--config", path, "install")
	require.NoError(t, err)
	assert.Contains(t, out, "ibus restart")
	data, err := os.ReadFile(cfg.IBus.ComponentPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<engine>")

	_, err = execute(t, "--config", path, "uninstall")
	require.NoError(t, err)
	assert.NoFileExists(t, cfg.IBus.ComponentPath)

	_, err = execute(t, "--config", path, "uninstall")
	assert.NoError(t, err, "uninstalling twice is fine")
}

func TestDictImportAndStats(t *testing.T) {
	path, cfg := testConfig(t, nil)
	src := filepath.Join(filepath.Dir(cfg.Engine.Dictionary), "extra.txt")
	require.NoError(t, os.WriteFile(src, []byte("# extra\nni\t你\t100\nhao\t好\n"), 0644))

	out, err := execute(t, "--config", path, "dict", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:     0")
	assert.Contains(t, out, "Last import: never")

	out, err = execute(t, "--config", path, "dict", "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 entries")

	out, err = execute(t, "--config", path, "dict", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:     2")
	assert.Contains(t, out, "Last import: "+src+" (2 entries")

	_, err = execute(t, "--config", path, "dict", "import", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSessionOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Toggle.WindowMs = 400
	cfg.Session.CommitOnToggleOut = true

	opts, err := sessionOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, keys.ControlL, opts.Toggle.Sym)
	assert.Equal(t, 2, opts.Toggle.Taps)
	assert.Equal(t, 400*time.Millisecond, opts.Toggle.Window)
	assert.True(t, opts.CommitOnToggleOut)
	assert.True(t, opts.ExitChord)
	assert.False(t, opts.DefaultActive)

	cfg.Toggle.Key = "NoSuchKey"
	_, err = sessionOptions(cfg)
	assert.Error(t, err)
}

func TestTableOptions(t *testing.T) {
	opts, err := tableOptions(config.EngineConfig{Style: "rawkey", PageSize: 7, Learn: true})
	require.NoError(t, err)
	assert.Equal(t, engine.StyleRawKey, opts.Style)
	assert.Equal(t, 7, opts.PageSize)
	assert.True(t, opts.Learn)
	assert.Positive(t, opts.MaxCompletions)

	_, err = tableOptions(config.EngineConfig{Style: "shape"})
	assert.Error(t, err)
}

func TestLoggingConfig(t *testing.T) {
	lc, err := loggingConfig(config.LoggingConfig{
		Level: "warn", Format: "json", Output: "file", FilePath: "/tmp/x.log",
		MaxSizeMB: 4, MaxBackups: 2, MaxAgeDays: 7, Compress: true,
	})
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, int64(4), lc.MaxSize)
	assert.Equal(t, "pinyind", lc.Component)

	_, err = loggingConfig(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = loggingConfig(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestStartupEvents(t *testing.T) {
	events, err := startupEvents(config.KeyboardConfig{})
	require.NoError(t, err)
	assert.Empty(t, events)

	keymap := filepath.Join(t.TempDir(), "keymap.xkb")
	require.NoError(t, os.WriteFile(keymap, []byte("xkb_keymap {\n};\n"), 0644))

	events, err = startupEvents(config.KeyboardConfig{KeymapFile: keymap, RepeatRate: 30, RepeatDelayMs: 250})
	require.NoError(t, err)
	assert.Equal(t, []protocol.Event{
		protocol.KeymapEvent{Format: keycodec.FormatXKBV1, Keymap: "xkb_keymap {\n};\n"},
		protocol.RepeatInfoEvent{Rate: 30, DelayMs: 250},
	}, events)

	_, err = startupEvents(config.KeyboardConfig{KeymapFile: keymap + ".missing"})
	assert.Error(t, err)
}
