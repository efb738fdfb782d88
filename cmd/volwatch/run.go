package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/volwatch/internal/config"
	"github.com/rewired-gh/volwatch/internal/logger"
	"github.com/rewired-gh/volwatch/internal/metrics"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/monitor"
	"github.com/rewired-gh/volwatch/internal/report"
	"github.com/rewired-gh/volwatch/internal/storage"
	"github.com/rewired-gh/volwatch/internal/telegram"
)

// runner performs one monitoring pass and fans its result out to reports,
// run history, Telegram and metrics. serve reuses one runner across runs.
type runner struct {
	cfg      *config.Config
	out      io.Writer
	metrics  *metrics.Metrics
	recorder storage.Recorder
	notifier *telegram.Client
}

func newRunner(cfg *config.Config, out io.Writer) (*runner, error) {
	rec, err := storage.NewRecorder(cfg.Output.RecordRuns, cfg.Output.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	r := &runner{
		cfg:      cfg,
		out:      out,
		metrics:  metrics.New(),
		recorder: rec,
	}

	if cfg.Telegram.Enabled {
		r.notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			_ = rec.Close()
			return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}
	return r, nil
}

func (r *runner) Close() error {
	return r.recorder.Close()
}

// check evaluates the period starting at date with the named sensitivity.
func (r *runner) check(ctx context.Context, sensitivity string, date time.Time) (*monitor.CheckResult, error) {
	start := time.Now()
	res, err := r.checkOnce(ctx, sensitivity, date)
	if err != nil {
		r.metrics.ObserveFailure(time.Since(start))
		r.exportMetrics()
		return nil, err
	}
	r.metrics.ObserveCheck(res, time.Since(start), time.Now())
	r.exportMetrics()
	return res, nil
}

func (r *runner) checkOnce(ctx context.Context, sensitivity string, date time.Time) (*monitor.CheckResult, error) {
	startedAt := time.Now()

	settings, err := r.cfg.AnalysisFor(sensitivity)
	if err != nil {
		return nil, err
	}
	logger.Info("Checking period starting %s (sensitivity: %s)", date.Format(models.DateLayout), settings.Sensitivity.Name)

	all, err := loadSeries(ctx, r.cfg.Input)
	if err != nil {
		return nil, err
	}

	mon, err := monitor.New(settings)
	if err != nil {
		return nil, err
	}
	res, err := mon.Check(ctx, all, date)
	if err != nil {
		return nil, fmt.Errorf("check failed: %w", err)
	}

	writer := report.Writer{Dir: r.cfg.Output.Dir, YAML: r.cfg.Output.YAML}
	paths, err := writer.WriteCheck(res, settings.Sensitivity, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to write reports: %w", err)
	}
	for _, p := range paths {
		logger.Debug("Wrote %s", p)
	}

	run := &models.Run{
		ID:          uuid.New().String(),
		CheckDate:   res.Date,
		Sensitivity: res.Sensitivity,
		StartedAt:   startedAt,
		Duration:    time.Since(startedAt),
		Evaluated:   res.Evaluated,
		Skipped:     res.Skipped,
		Alerts:      res.Alerts,
	}
	if err := r.recorder.RecordRun(ctx, run); err != nil {
		logger.Error("Failed to record run: %v", err)
	}

	if r.notifier != nil && len(res.Alerts) > 0 {
		if err := r.notifier.Send(ctx, res); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		} else {
			logger.Info("Telegram notification sent (%d alerts)", len(res.Alerts))
		}
	}

	report.PrintCheck(r.out, res)
	logger.Info("Check complete: %d alerts, %d evaluated, %d skipped, reports in %s",
		len(res.Alerts), res.Evaluated, res.Skipped, r.cfg.Output.Dir)
	return res, nil
}

func (r *runner) exportMetrics() {
	if r.cfg.Metrics.Textfile == "" {
		return
	}
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		logger.Error("Failed to write metrics textfile: %v", err)
	}
}
