package trend

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/volwatch/internal/models"
)

var (
	start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	key   = models.CategoryKey{AppID: "APP_004", MessageTypeID: "MT940"}
)

func weekly(counts ...float64) models.OccurrenceSeries {
	s := models.OccurrenceSeries{Key: key}
	for i, c := range counts {
		s.Observations = append(s.Observations, models.VolumeObservation{
			Key:         key,
			PeriodStart: start.AddDate(0, 0, 7*i),
			Count:       int64(c),
		})
	}
	return s
}

func linear(n int, from, to float64) models.OccurrenceSeries {
	counts := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range counts {
		counts[i] = from + step*float64(i)
	}
	return weekly(counts...)
}

func byName(p models.TrendProfile) map[string]models.TrendWindowMetrics {
	out := make(map[string]models.TrendWindowMetrics, len(p.Windows))
	for _, w := range p.Windows {
		out[w.Window] = w
	}
	return out
}

func TestAnalyze_LinearGrowth(t *testing.T) {
	s := linear(52, 1_000_000, 2_000_000)
	p := New(nil, 7).Analyze(s, time.Time{}, 4)

	require.Len(t, p.Windows, 7)
	w := byName(p)

	assert.Equal(t, 2, w["2_weeks"].SampleSize)
	assert.Equal(t, 4, w["1_month"].SampleSize)
	assert.Equal(t, 13, w["3_months"].SampleSize)
	assert.Equal(t, 52, w["12_months"].SampleSize)
	assert.Equal(t, 52, w["18_months"].SampleSize)

	assert.Greater(t, w["1_month"].Slope, 0.0)
	assert.Equal(t, models.TrendIncreasing, w["3_months"].Direction)
	assert.Equal(t, models.TrendIncreasing, w["18_months"].Direction)
	assert.Greater(t, w["18_months"].GrowthRatePct, 5.0)

	assert.Equal(t, models.ComparisonIncreasing, p.Comparison.Status)
}

func TestWindow_Metrics(t *testing.T) {
	s := weekly(10, 20, 30, 40)
	m := New(nil, 7).Window(s, s.Last(), models.TrendWindow{Name: "1_month", Periods: 4})

	assert.Equal(t, 4, m.SampleSize)
	assert.InDelta(t, 25, m.Avg, 1e-9)
	assert.InDelta(t, 100, m.Total, 1e-9)
	assert.InDelta(t, 10, m.Min, 1e-9)
	assert.InDelta(t, 40, m.Max, 1e-9)
	assert.InDelta(t, 25, m.Median, 1e-9)
	assert.InDelta(t, 10, m.Slope, 1e-9)
	// (35 - 15) / 15
	assert.InDelta(t, 133.333333, m.GrowthRatePct, 1e-4)
	assert.Equal(t, models.TrendIncreasing, m.Direction)
}

func TestWindow_DegenerateSelections(t *testing.T) {
	a := New(nil, 7)
	s := weekly(100, 200, 300)

	empty := a.Window(s, start.AddDate(0, 0, -1), models.TrendWindow{Name: "2_weeks", Periods: 2})
	assert.Equal(t, models.TrendNoData, empty.Direction)
	assert.Zero(t, empty.Avg)
	assert.Zero(t, empty.Volatility)

	single := a.Window(s, start, models.TrendWindow{Name: "2_weeks", Periods: 2})
	assert.Equal(t, models.TrendInsufficientData, single.Direction)
	assert.Equal(t, 1, single.SampleSize)
	assert.Zero(t, single.Slope)

	zero := a.Window(weekly(0, 0, 0, 0), start.AddDate(0, 0, 21), models.TrendWindow{Name: "1_month", Periods: 4})
	assert.Zero(t, zero.Volatility)
	assert.Zero(t, zero.GrowthRatePct)
	assert.Equal(t, models.TrendStable, zero.Direction)
}

func TestWindow_BoundaryExclusive(t *testing.T) {
	s := weekly(1, 2, 3, 4, 5)
	ref := s.Last()

	m := New(nil, 7).Window(s, ref, models.TrendWindow{Name: "2_weeks", Periods: 2})
	// ref-14d is excluded, ref itself included.
	assert.Equal(t, 2, m.SampleSize)
	assert.InDelta(t, 4.5, m.Avg, 1e-9)
}

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name   string
		counts []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"two points", []float64{100, 110}, 10},
		{"three points use ends", []float64{100, 1, 50}, -50},
		{"halves", []float64{100, 100, 90, 90}, -10},
		{"zero first half", []float64{0, 0, 10, 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, GrowthRate(tt.counts), 1e-9)
		})
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, models.TrendStable, direction(4.99))
	assert.Equal(t, models.TrendStable, direction(-4.99))
	assert.Equal(t, models.TrendIncreasing, direction(5))
	assert.Equal(t, models.TrendDecreasing, direction(-5))
}

func TestCompareRecent(t *testing.T) {
	tests := []struct {
		name   string
		series models.OccurrenceSeries
		want   models.ComparisonStatus
		change float64
	}{
		{"too short", weekly(1, 2, 3, 4, 5, 6, 7), models.ComparisonInsufficientData, 0},
		{"flat", weekly(100, 100, 100, 100, 105, 100, 100, 100), models.ComparisonNormal, 1.25},
		{"drop", weekly(100, 100, 100, 100, 50, 50, 50, 50), models.ComparisonDecreasing, -50},
		{"rise", weekly(100, 100, 100, 100, 150, 150, 150, 150), models.ComparisonIncreasing, 50},
		{"zero history", weekly(0, 0, 0, 0, 10, 10, 10, 10), models.ComparisonNormal, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CompareRecent(tt.series, 4)
			assert.Equal(t, tt.want, c.Status)
			assert.InDelta(t, tt.change, c.ChangePct, 1e-9)
			assert.Equal(t, 4, c.RecentPeriods)
		})
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	s := weekly(5, 8, 2, 9, 14, 3, 7, 7, 1, 12)
	a := New(nil, 7)
	assert.Equal(t, a.Analyze(s, time.Time{}, 4), a.Analyze(s, time.Time{}, 4))
}

func TestSummary(t *testing.T) {
	p := New([]models.TrendWindow{{Name: "1_month", Periods: 4}, {Name: "ancient", Periods: 1}}, 7).
		Analyze(weekly(10, 20, 30, 40, 50, 60, 70, 80), start.AddDate(0, 0, 7*7), 4)

	out := Summary(p)
	assert.True(t, strings.HasPrefix(out, "APP_004|MT940\n"))
	assert.Contains(t, out, "1_month")
	assert.Contains(t, out, "increasing")
	assert.Contains(t, out, "recent 4 periods")
}
