// Package alert classifies one checked period per category into "no alert",
// a VOLUME_DROP alert or a NO_DATA alert.
//
// The threshold is always derived from observations strictly before the
// checked period, so the period under test never influences its own bound.
// Evaluation is a pure function of its inputs: the same series and date yield
// the same alert, including its ID.
package alert

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/volwatch/internal/frequency"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/stats"
	"github.com/rewired-gh/volwatch/internal/threshold"
)

// Severity boundaries on drop from the historical mean, in percent.
const (
	CriticalDropPct = 70.0
	HighDropPct     = 50.0
	MediumDropPct   = 30.0
)

const noDataMessage = "No data received this period - possible system failure"

var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rewired-gh/volwatch/alert"))

// Outcome is the evaluation of one category for one period.
type Outcome struct {
	Key models.CategoryKey
	// Threshold is unset when Skipped.
	Threshold models.ThresholdProfile
	Alert     *models.Alert
	// Skipped reports a category with too little prior history.
	Skipped bool
}

// Engine evaluates categories against one sensitivity.
type Engine struct {
	Sensitivity     models.Sensitivity
	TrailingPeriods int
	// PatternAware widens the z band of irregular categories using their
	// gap regularity.
	PatternAware bool
}

// NewEngine returns an engine. A non-positive trailing window defaults to 4.
func NewEngine(s models.Sensitivity, trailingPeriods int, patternAware bool) *Engine {
	if trailingPeriods <= 0 {
		trailingPeriods = 4
	}
	return &Engine{Sensitivity: s, TrailingPeriods: trailingPeriods, PatternAware: patternAware}
}

// Evaluate checks a single category for the period starting at date.
func (e *Engine) Evaluate(s models.OccurrenceSeries, date time.Time) (Outcome, error) {
	date = models.TruncateDay(date)
	out := Outcome{Key: s.Key}

	prior := s.Before(date)
	if prior.Len() < e.Sensitivity.MinWeeks {
		out.Skipped = true
		return out, nil
	}

	var opts []threshold.Option
	if e.PatternAware {
		p := frequency.GapRegularity{}.Classify(prior)
		opts = append(opts, threshold.WithRegularity(p.RegularityScore), threshold.WithFrequency(p.Category))
	}
	counts := prior.Counts()
	t, err := threshold.Calculate(s.Key, counts, e.Sensitivity, opts...)
	if errors.Is(err, threshold.ErrInsufficientHistory) {
		out.Skipped = true
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Threshold = t

	recent := stats.Mean(tail(counts, e.TrailingPeriods))

	current, ok := s.At(date)
	if !ok {
		out.Alert = e.newAlert(s.Key, date, t, recent, 0, 100, SeverityFor(100), models.AlertNoData, noDataMessage)
		return out, nil
	}

	observed := float64(current.Count)
	if observed >= t.FinalThreshold {
		return out, nil
	}

	drop := stats.SafeDiv(t.Mean-observed, t.Mean) * 100
	out.Alert = e.newAlert(s.Key, date, t, recent, observed, drop, SeverityFor(drop), models.AlertVolumeDrop,
		fmt.Sprintf("Volume dropped %.1f%% below historical mean", drop))
	return out, nil
}

// Check evaluates every series sequentially and returns the alerts sorted by
// category key.
func (e *Engine) Check(all []models.OccurrenceSeries, date time.Time) ([]models.Alert, error) {
	var alerts []models.Alert
	for _, s := range all {
		o, err := e.Evaluate(s, date)
		if err != nil {
			return nil, err
		}
		if o.Alert != nil {
			alerts = append(alerts, *o.Alert)
		}
	}
	Sort(alerts)
	return alerts, nil
}

// SeverityFor maps a drop percentage onto a severity.
func SeverityFor(dropPct float64) models.Severity {
	switch {
	case dropPct >= CriticalDropPct:
		return models.SeverityCritical
	case dropPct >= HighDropPct:
		return models.SeverityHigh
	case dropPct >= MediumDropPct:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Sort orders alerts by category key.
func Sort(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Key.Less(alerts[j].Key)
	})
}

// ID returns the deterministic alert identifier for a category, period and
// sensitivity.
func ID(key models.CategoryKey, date time.Time, sensitivity string) string {
	name := key.String() + "|" + date.Format(models.DateLayout) + "|" + sensitivity
	return uuid.NewSHA1(alertNamespace, []byte(name)).String()
}

// CountBySeverity tallies alerts per severity.
func CountBySeverity(alerts []models.Alert) map[models.Severity]int {
	counts := make(map[models.Severity]int, len(models.Severities))
	for _, a := range alerts {
		counts[a.Severity]++
	}
	return counts
}

func (e *Engine) newAlert(key models.CategoryKey, date time.Time, t models.ThresholdProfile,
	recent, observed, drop float64, sev models.Severity, typ models.AlertType, msg string) *models.Alert {
	return &models.Alert{
		ID:            ID(key, date, e.Sensitivity.Name),
		Key:           key,
		AppID:         key.AppID,
		MessageTypeID: key.MessageTypeID,
		PeriodStart:   date,
		Period:        date.Format(models.DateLayout),
		ObservedCount: observed,
		Threshold:     t.FinalThreshold,
		Mean:          t.Mean,
		RecentAvg:     recent,
		DropPct:       drop,
		Severity:      sev,
		Type:          typ,
		Message:       msg,
	}
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
