// Package trend summarises a category's volume over named lookback windows
// and compares its most recent periods against the rest of its history.
package trend

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/stats"
)

const (
	// StableBandPct is the growth rate below which a window is stable.
	StableBandPct = 5.0
	// NormalBandPct is the change below which recent volume is normal.
	NormalBandPct = 10.0
	// MinHistoricalPeriods is the history required beyond the recent periods.
	MinHistoricalPeriods = 4
)

// Analyzer computes window metrics with a fixed set of windows.
type Analyzer struct {
	Windows    []models.TrendWindow
	PeriodDays int
}

// New returns an Analyzer. Empty windows fall back to the defaults and a
// non-positive period length to one week.
func New(windows []models.TrendWindow, periodDays int) *Analyzer {
	if len(windows) == 0 {
		windows = models.DefaultTrendWindows()
	}
	if periodDays <= 0 {
		periodDays = 7
	}
	return &Analyzer{Windows: windows, PeriodDays: periodDays}
}

// Analyze returns the trend profile of s as of ref. A zero ref uses the
// latest observation date.
func (a *Analyzer) Analyze(s models.OccurrenceSeries, ref time.Time, recentPeriods int) models.TrendProfile {
	if ref.IsZero() {
		ref = s.Last()
	}
	p := models.TrendProfile{
		Key:        s.Key,
		Windows:    make([]models.TrendWindowMetrics, 0, len(a.Windows)),
		Comparison: CompareRecent(s, recentPeriods),
	}
	for _, w := range a.Windows {
		p.Windows = append(p.Windows, a.Window(s, ref, w))
	}
	return p
}

// Window computes the metrics of one window ending at ref inclusive.
func (a *Analyzer) Window(s models.OccurrenceSeries, ref time.Time, w models.TrendWindow) models.TrendWindowMetrics {
	m := models.TrendWindowMetrics{Window: w.Name, Periods: w.Periods}

	from := ref.AddDate(0, 0, -w.Periods*a.PeriodDays)
	var counts []float64
	for _, o := range s.Observations {
		if o.PeriodStart.After(from) && !o.PeriodStart.After(ref) {
			counts = append(counts, float64(o.Count))
		}
	}

	m.SampleSize = len(counts)
	if len(counts) == 0 {
		m.Direction = models.TrendNoData
		return m
	}

	m.Avg = stats.Mean(counts)
	m.Total = stats.Sum(counts)
	m.Min = stats.Min(counts)
	m.Max = stats.Max(counts)
	m.Median = stats.Median(counts)
	m.Volatility = stats.SafeDiv(stats.StdDev(counts), m.Avg)

	if len(counts) < 2 {
		m.Direction = models.TrendInsufficientData
		return m
	}

	m.Slope = stats.LinearSlope(counts)
	m.GrowthRatePct = GrowthRate(counts)
	m.Direction = direction(m.GrowthRatePct)
	return m
}

// GrowthRate compares the first half of counts with the second half, in
// percent. Fewer than four points compare the first and last point only.
func GrowthRate(counts []float64) float64 {
	n := len(counts)
	if n < 2 {
		return 0
	}
	var first, second float64
	if n < 4 {
		first, second = counts[0], counts[n-1]
	} else {
		mid := n / 2
		first, second = stats.Mean(counts[:mid]), stats.Mean(counts[mid:])
	}
	return stats.SafeDiv(second-first, first) * 100
}

func direction(growthPct float64) models.TrendDirection {
	switch {
	case math.Abs(growthPct) < StableBandPct:
		return models.TrendStable
	case growthPct > 0:
		return models.TrendIncreasing
	default:
		return models.TrendDecreasing
	}
}

// CompareRecent contrasts the last recentPeriods observations with all the
// earlier ones.
func CompareRecent(s models.OccurrenceSeries, recentPeriods int) models.RecentComparison {
	c := models.RecentComparison{RecentPeriods: recentPeriods}
	if recentPeriods <= 0 || s.Len() < recentPeriods+MinHistoricalPeriods {
		c.Status = models.ComparisonInsufficientData
		return c
	}

	counts := s.Counts()
	split := len(counts) - recentPeriods
	c.HistoricalAvg = stats.Mean(counts[:split])
	c.RecentAvg = stats.Mean(counts[split:])
	c.ChangePct = stats.SafeDiv(c.RecentAvg-c.HistoricalAvg, c.HistoricalAvg) * 100

	switch {
	case math.Abs(c.ChangePct) < NormalBandPct:
		c.Status = models.ComparisonNormal
	case c.ChangePct > 0:
		c.Status = models.ComparisonIncreasing
	default:
		c.Status = models.ComparisonDecreasing
	}
	return c
}

// Summary renders a multi-line text block for one trend profile.
func Summary(p models.TrendProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.Key)
	for _, w := range p.Windows {
		if w.SampleSize == 0 {
			fmt.Fprintf(&b, "  %-10s no data\n", w.Window)
			continue
		}
		fmt.Fprintf(&b, "  %-10s avg %14.0f  growth %+7.1f%%  volatility %.2f  %s\n",
			w.Window, w.Avg, w.GrowthRatePct, w.Volatility, w.Direction)
	}
	c := p.Comparison
	if c.Status == models.ComparisonInsufficientData {
		fmt.Fprintf(&b, "  recent %d periods: insufficient data\n", c.RecentPeriods)
	} else {
		fmt.Fprintf(&b, "  recent %d periods: %.0f vs %.0f historical (%+.1f%%, %s)\n",
			c.RecentPeriods, c.RecentAvg, c.HistoricalAvg, c.ChangePct, c.Status)
	}
	return b.String()
}
