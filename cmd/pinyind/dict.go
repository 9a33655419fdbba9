package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pinyind/internal/dict"
)

func newDictCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Manage the dictionary",
	}
	cmd.AddCommand(newDictImportCommand(flags))
	cmd.AddCommand(newDictStatsCommand(flags))
	return cmd
}

func newDictImportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a plain-text table",
		Long: `Import a table of tab separated "code, text[, weight]" lines into the
dictionary. Blank lines and lines starting with # are skipped. An entry
that already exists keeps the larger of its two weights.

A running daemon picks the entries up on its next restart, or at once
when the file is its engine.source_path with engine.watch_source set.

Examples:
  pinyind dict import ~/pinyin.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			store, err := dict.Open(cfg.Engine.Dictionary)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries from %s\n", n, args[0])
			return nil
		},
	}
}

func newDictStatsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dictionary size and the last import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			store, err := dict.Open(cfg.Engine.Dictionary)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Dictionary:  %s\n", cfg.Engine.Dictionary)
			_, _ = fmt.Fprintf(out, "Entries:     %d\n", n)

			last, err := store.LastImport(cmd.Context())
			if err != nil {
				return err
			}
			if last == nil {
				_, _ = fmt.Fprintln(out, "Last import: never")
				return nil
			}
			_, _ = fmt.Fprintf(out, "Last import: %s (%d entries, %s)\n",
				last.Source, last.Entries, last.ImportedAt.Local().Format(time.DateTime))
			return nil
		},
	}
}
