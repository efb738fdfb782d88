package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/report"
	"github.com/rewired-gh/volwatch/internal/storage"
)

func historyCmd() *cobra.Command {
	var (
		app, messageType string
		limit            int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded alerts for one category",
		Long: `Read the run history written when output.record_runs is enabled and list
the alerts raised for one app and message type, newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := models.CategoryKey{AppID: app, MessageTypeID: messageType}
			return printHistory(cmd.Context(), cmd.OutOrStdout(), cfg.Output.SQLitePath, key, limit)
		},
	}

	cmd.Flags().StringVar(&app, "app", "", "application id")
	cmd.Flags().StringVar(&messageType, "message-type", "", "message type id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of alerts to list")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("message-type")
	return cmd
}

func printHistory(ctx context.Context, w io.Writer, path string, key models.CategoryKey, limit int) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if limit < 1 {
		return errors.New("--limit must be at least 1")
	}

	store, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RunCount(ctx)
	if err != nil {
		return err
	}
	alerts, err := store.AlertHistory(ctx, key, limit)
	if err != nil {
		return err
	}

	report.PrintHistory(w, key, runs, alerts)
	return nil
}
