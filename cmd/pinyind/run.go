package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pinyind/internal/config"
	"pinyind/internal/dict"
	"pinyind/internal/engine"
	"pinyind/internal/engine/table"
	"pinyind/internal/eventloop"
	"pinyind/internal/ibus"
	"pinyind/internal/keycodec"
	"pinyind/internal/logging"
	"pinyind/internal/protocol"
	"pinyind/internal/repeat"
	"pinyind/internal/session"
)

func newRunCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve the input method on the IBus bus",
		Long: `Connect to ibus-daemon, register the engine and route keys until
SIGINT or SIGTERM, the exit chord, or the bus going away.

ibus-daemon starts this command through the component file written by
'pinyind install'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := flags.load()
			if err != nil {
				return err
			}
			defer loader.Close()

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watchConfig(loader, logger)
			if err := serve(ctx, cfg, logger); err != nil {
				logger.Error("pinyind stopped", "error", err)
				return err
			}
			return nil
		},
	}
}

// loggingConfig maps the logging section onto the logging package.
func loggingConfig(c config.LoggingConfig) (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	return &logging.Config{
		Level:      level,
		Format:     format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    int64(c.MaxSizeMB),
		MaxAge:     c.MaxAgeDays,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
		AddSource:  c.AddSource,
		Component:  "pinyind",
	}, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lc, err := loggingConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return logging.New(lc)
}

// watchConfig applies log level changes without a restart. Everything
// else in the file needs one.
func watchConfig(loader *config.Loader, logger *logging.Logger) {
	loader.OnChange(func(old, cur *config.Config) {
		if old.Logging.Level != cur.Logging.Level {
			if level, err := logging.ParseLevel(cur.Logging.Level); err == nil {
				logger.SetLevel(level)
				logger.Info("log level changed", "level", cur.Logging.Level)
			}
		}
		if *old != *cur {
			logger.Info("configuration changed, restart to apply", "path", loader.Path())
		}
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("configuration will not be reloaded", "error", err)
		return
	}
	go func() {
		for err := range loader.Errors() {
			logger.Warn("configuration reload failed", "error", err)
		}
	}()
}

func tableOptions(c config.EngineConfig) (table.Options, error) {
	style, err := engine.ParseStyle(c.Style)
	if err != nil {
		return table.Options{}, err
	}
	opts := table.DefaultOptions()
	opts.Style = style
	opts.PageSize = c.PageSize
	opts.Learn = c.Learn
	return opts, nil
}

func sessionOptions(cfg *config.Config) (session.Options, error) {
	toggle, err := session.ParseToggle(cfg.Toggle.Key, cfg.Toggle.Taps, cfg.Toggle.WindowMs)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Toggle:            toggle,
		DefaultActive:     cfg.Session.DefaultActive,
		CommitOnToggleOut: cfg.Session.CommitOnToggleOut,
		ExitChord:         cfg.Session.ExitChord,
		InlineCandidates:  cfg.Session.InlineCandidates,
	}, nil
}

// openEngine opens the dictionary and builds the table engine over it.
func openEngine(ctx context.Context, cfg config.EngineConfig, logger *logging.Logger) (*table.Engine, *dict.Store, error) {
	opts, err := tableOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := dict.Open(cfg.Dictionary)
	if err != nil {
		return nil, nil, err
	}
	if seeded, err := store.EnsureSeeded(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("seed dictionary: %w", err)
	} else if seeded {
		logger.Info("dictionary seeded", "path", cfg.Dictionary)
	}
	eng, err := table.New(ctx, store, opts, logger.Logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}

// startupEvents are posted before any frontend event so that a configured
// keymap and repeat rate are in place for the first key.
func startupEvents(cfg config.KeyboardConfig) ([]protocol.Event, error) {
	var events []protocol.Event
	if cfg.KeymapFile != "" {
		blob, err := keycodec.ReadKeymapFile(cfg.KeymapFile)
		if err != nil {
			return nil, err
		}
		events = append(events, protocol.KeymapEvent{Format: keycodec.FormatXKBV1, Keymap: blob})
	}
	if cfg.RepeatRate > 0 {
		events = append(events, protocol.RepeatInfoEvent{
			Rate:    int32(cfg.RepeatRate),
			DelayMs: int32(cfg.RepeatDelayMs),
		})
	}
	return events, nil
}

// serve wires the engine, the IBus frontend and the session, and runs the
// event loop until ctx ends or the session exits.
func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sopts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}
	startup, err := startupEvents(cfg.Keyboard)
	if err != nil {
		return err
	}

	eng, store, err := openEngine(ctx, cfg.Engine, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Engine.SourcePath != "" {
		w := dict.NewSourceWatcher(cfg.Engine.SourcePath, store, eng, logger.Logger)
		if err := w.Sync(ctx); err != nil {
			logger.Warn("dictionary source not imported", "path", cfg.Engine.SourcePath, "error", err)
		}
		if cfg.Engine.WatchSource {
			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("dictionary source watcher stopped", "error", err)
				}
			}()
		}
	}

	timer, err := repeat.NewTimerFD()
	if err != nil {
		return err
	}
	defer timer.Close()

	queue, err := eventloop.NewQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	for _, ev := range startup {
		if err := queue.Post(ev); err != nil {
			return err
		}
	}

	conn, err := ibus.Dial(cfg.IBus.Address)
	if err != nil {
		return err
	}
	defer conn.Close()

	fe := ibus.New(conn, queue, ibus.Options{
		BusName:    cfg.IBus.BusName,
		EngineName: cfg.IBus.EngineName,
	}, logger.Logger)

	s, err := session.New(session.Deps{
		Engine:   eng,
		Input:    fe,
		Keyboard: fe,
		Panel:    fe,
		Timer:    timer,
		Logger:   logger.Logger,
	}, sopts)
	if err != nil {
		return err
	}

	if err := fe.Register(); err != nil {
		_ = s.Close()
		return err
	}
	go func() {
		if err := fe.Supervise(ctx, conn); err != nil {
			cancel(err)
		}
	}()

	if err := eventloop.New(queue, timer, s, logger.Logger).Run(ctx); err != nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
