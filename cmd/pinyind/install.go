package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pinyind/internal/config"
	"pinyind/internal/ibus"
)

func component(cfg *config.Config) (ibus.Component, error) {
	exe, err := os.Executable()
	if err != nil {
		return ibus.Component{}, fmt.Errorf("locate executable: %w", err)
	}
	if abs, err := filepath.EvalSymlinks(exe); err == nil {
		exe = abs
	}
	opts := ibus.Options{BusName: cfg.IBus.BusName, EngineName: cfg.IBus.EngineName}
	return ibus.NewComponent(opts, exe+" run", version), nil
}

func newInstallCommand(flags *globalFlags) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the IBus component file",
		Long: `Write the IBus component file that tells ibus-daemon how to start
pinyind. Run 'ibus restart' afterwards and add the engine in your input
source settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			c, err := component(cfg)
			if err != nil {
				return err
			}
			if printOnly {
				data, err := c.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := ibus.Install(cfg.IBus.ComponentPath, c); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Installed %s. Run 'ibus restart' to load.\n", cfg.IBus.ComponentPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the component file instead of writing it")
	return cmd
}

func newUninstallCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the IBus component file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			if err := ibus.Uninstall(cfg.IBus.ComponentPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", cfg.IBus.ComponentPath)
			return nil
		},
	}
}
