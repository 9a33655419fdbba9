package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pinyind/internal/config"
)

// version is reported by --version and written to the component file.
const version = "0.3.0"

type globalFlags struct {
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "pinyind",
		Short: "pinyind - pinyin input method for IBus",
		Long: `pinyind is a table based pinyin input method engine for IBus.

Double tap the left Control key to switch between typing through and
composing. While composing, letters build a pinyin syllable, digits and
Space choose candidates, and Return commits the input as typed.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file (default: $PINYIND_CONFIG or the XDG config dir)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Log at debug level")

	cmd.AddCommand(newRunCommand(flags))
	cmd.AddCommand(newInstallCommand(flags))
	cmd.AddCommand(newUninstallCommand(flags))
	cmd.AddCommand(newDictCommand(flags))
	cmd.AddCommand(newConfigCommand(flags))

	return cmd
}

// load reads and validates the configuration named by the flags.
func (g *globalFlags) load() (*config.Config, *config.Loader, error) {
	loader := config.NewLoader(g.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", loader.Path(), err)
	}
	if g.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, loader, nil
}
