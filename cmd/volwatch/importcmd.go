package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/volwatch/internal/logger"
	"github.com/rewired-gh/volwatch/internal/series"
	"github.com/rewired-gh/volwatch/internal/storage"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Load a CSV of weekly volumes into the SQLite store",
		Long: `Validate a CSV export and upsert it into input.sqlite_path. Without an
argument the configured input.path is imported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Input.Path
			if len(args) == 1 {
				path = args[0]
			}

			obs, err := storage.LoadCSV(path)
			if err != nil {
				return err
			}
			// Reject the whole file on any malformed row.
			if _, err := series.Build(obs); err != nil {
				return fmt.Errorf("rejected input: %w", err)
			}

			store, err := storage.Open(cfg.Input.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Import(cmd.Context(), obs)
			if err != nil {
				return err
			}

			logger.Info("Imported %d observations from %s into %s", n, path, cfg.Input.SQLitePath)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d observations\n", n)
			return nil
		},
	}
}
