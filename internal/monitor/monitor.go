// Package monitor runs the per-category pipeline over a whole batch.
//
// Every category is independent, so work fans out over a bounded errgroup.
// Each task writes only its own slot of a pre-sized result slice and the
// caller merges slots in category-key order, which keeps output stable no
// matter how tasks are scheduled:
//
//	series ──┬─ frequency.Classifier ─┐
//	         ├─ threshold.Calculate ──┼─ slot[i] ── merge (sorted by key)
//	         ├─ trend.Analyzer ───────┤
//	         └─ alert.Engine ─────────┘
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/volwatch/internal/alert"
	"github.com/rewired-gh/volwatch/internal/config"
	"github.com/rewired-gh/volwatch/internal/frequency"
	"github.com/rewired-gh/volwatch/internal/logger"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/threshold"
	"github.com/rewired-gh/volwatch/internal/trend"
)

// Monitor handles batch analysis and alert checks for one configuration.
type Monitor struct {
	settings   config.Analysis
	classifier frequency.Classifier
	regular    bool // classifier measures gap regularity
	trends     *trend.Analyzer
	engine     *alert.Engine
	progress   func()
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithProgress registers a callback invoked once per finished category. It
// may be called from several goroutines at once.
func WithProgress(fn func()) Option {
	return func(m *Monitor) {
		m.progress = fn
	}
}

// New creates a Monitor from a per-run settings snapshot.
func New(settings config.Analysis, opts ...Option) (*Monitor, error) {
	classifier, err := frequency.New(settings.Classifier, settings.TotalPeriods)
	if err != nil {
		return nil, err
	}
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	m := &Monitor{
		settings:   settings,
		classifier: classifier,
		regular:    frequency.MeasuresRegularity(classifier),
		trends:     trend.New(settings.Windows, settings.PeriodDays),
		engine:     alert.NewEngine(settings.Sensitivity, settings.TrailingPeriods, settings.PatternAware),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Settings returns the snapshot the monitor was built with.
func (m *Monitor) Settings() config.Analysis {
	return m.settings
}

// CategoryError represents a per-category failure inside a batch.
type CategoryError struct {
	Key models.CategoryKey
	Err error
}

func (e CategoryError) Error() string {
	return fmt.Sprintf("category %s: %v", e.Key, e.Err)
}

func (e CategoryError) Unwrap() error {
	return e.Err
}

// AnalysisResult holds the descriptive tables for every category.
type AnalysisResult struct {
	Frequencies []models.FrequencyProfile
	Thresholds  []models.ThresholdProfile
	Trends      []models.TrendProfile
	// InsufficientHistory lists categories left out of Thresholds.
	InsufficientHistory []models.CategoryKey
}

// CheckResult is the outcome of checking one period.
type CheckResult struct {
	Date            time.Time
	Sensitivity     string
	TrailingPeriods int
	Alerts          []models.Alert
	Thresholds      []models.ThresholdProfile
	Evaluated       int
	Skipped         int
	// EmptyPeriod is set when no category reported for Date at all.
	EmptyPeriod bool
}

type analysisSlot struct {
	frequency models.FrequencyProfile
	threshold *models.ThresholdProfile
	trend     models.TrendProfile
}

// Analyze profiles every series as of ref. A zero ref uses each series'
// latest observation for its trend windows.
func (m *Monitor) Analyze(ctx context.Context, all []models.OccurrenceSeries, ref time.Time) (*AnalysisResult, error) {
	all = sortedByKey(all)
	slots := make([]analysisSlot, len(all))

	err := m.fanOut(ctx, len(all), func(i int) error {
		s := all[i]
		fp := m.classifier.Classify(s)
		slot := analysisSlot{
			frequency: fp,
			trend:     m.trends.Analyze(s, ref, m.settings.RecentPeriods),
		}

		opts := []threshold.Option{threshold.WithFrequency(fp.Category)}
		if m.regular {
			opts = append(opts, threshold.WithRegularity(fp.RegularityScore))
		}
		tp, err := threshold.Calculate(s.Key, s.Counts(), m.settings.Sensitivity, opts...)
		switch {
		case err == nil:
			slot.threshold = &tp
		case !errors.Is(err, threshold.ErrInsufficientHistory):
			return CategoryError{Key: s.Key, Err: err}
		}

		slots[i] = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &AnalysisResult{
		Frequencies: make([]models.FrequencyProfile, 0, len(slots)),
		Trends:      make([]models.TrendProfile, 0, len(slots)),
	}
	for i, slot := range slots {
		res.Frequencies = append(res.Frequencies, slot.frequency)
		res.Trends = append(res.Trends, slot.trend)
		if slot.threshold != nil {
			res.Thresholds = append(res.Thresholds, *slot.threshold)
		} else {
			res.InsufficientHistory = append(res.InsufficientHistory, all[i].Key)
		}
	}

	logger.Debug("Analyze: %d categories, %d thresholded, %d with insufficient history",
		len(all), len(res.Thresholds), len(res.InsufficientHistory))
	return res, nil
}

// Check evaluates the period starting at date for every series.
func (m *Monitor) Check(ctx context.Context, all []models.OccurrenceSeries, date time.Time) (*CheckResult, error) {
	date = models.TruncateDay(date)
	all = sortedByKey(all)
	outcomes := make([]alert.Outcome, len(all))

	err := m.fanOut(ctx, len(all), func(i int) error {
		o, err := m.engine.Evaluate(all[i], date)
		if err != nil {
			return CategoryError{Key: all[i].Key, Err: err}
		}
		outcomes[i] = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &CheckResult{
		Date:            date,
		Sensitivity:     m.settings.Sensitivity.Name,
		TrailingPeriods: m.settings.TrailingPeriods,
		EmptyPeriod:     len(all) > 0,
	}
	for i, o := range outcomes {
		if _, ok := all[i].At(date); ok {
			res.EmptyPeriod = false
		}
		if o.Skipped {
			res.Skipped++
			continue
		}
		res.Evaluated++
		res.Thresholds = append(res.Thresholds, o.Threshold)
		if o.Alert != nil {
			res.Alerts = append(res.Alerts, *o.Alert)
		}
	}
	alert.Sort(res.Alerts)

	if res.EmptyPeriod {
		logger.Warn("No data found for period starting %s; every qualified category reports NO_DATA",
			date.Format(models.DateLayout))
	}
	logger.Debug("Check %s: evaluated=%d skipped=%d alerts=%d",
		date.Format(models.DateLayout), res.Evaluated, res.Skipped, len(res.Alerts))
	return res, nil
}

// fanOut runs task for 0..n-1 on at most settings.Workers goroutines.
func (m *Monitor) fanOut(parent context.Context, n int, task func(i int) error) error {
	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(m.settings.Workers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := task(i); err != nil {
				return err
			}
			if m.progress != nil {
				m.progress()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return parent.Err()
}

// sortedByKey returns a key-ordered copy of all.
func sortedByKey(all []models.OccurrenceSeries) []models.OccurrenceSeries {
	out := make([]models.OccurrenceSeries, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key.Less(out[j].Key)
	})
	return out
}
