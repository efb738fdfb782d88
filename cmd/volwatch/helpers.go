package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/volwatch/internal/config"
	"github.com/rewired-gh/volwatch/internal/logger"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/series"
	"github.com/rewired-gh/volwatch/internal/storage"
)

// loadSeries reads the configured input and groups it into validated series.
func loadSeries(ctx context.Context, in config.InputConfig) ([]models.OccurrenceSeries, error) {
	obs, err := storage.Load(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	all, err := series.Build(obs)
	if err != nil {
		return nil, fmt.Errorf("rejected input: %w", err)
	}

	if first, last := series.Span(all); !first.IsZero() {
		logger.Info("Loaded %d records across %d categories (%s to %s)",
			len(obs), len(all), first.Format(models.DateLayout), last.Format(models.DateLayout))
	}
	return all, nil
}

// lastMonday returns the most recent Monday at or before now, in UTC.
func lastMonday(now time.Time) time.Time {
	d := models.TruncateDay(now.UTC())
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// checkDate resolves the --date flag, defaulting to lastMonday(now).
func checkDate(flag string, now time.Time) (time.Time, error) {
	if flag == "" {
		return lastMonday(now), nil
	}
	return models.ParseDate(flag)
}
