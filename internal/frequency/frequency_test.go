package frequency

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/volwatch/internal/models"
)

var (
	start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	key   = models.CategoryKey{AppID: "APP_001", MessageTypeID: "MT103"}
)

func seriesAtDays(days []int, count int64) models.OccurrenceSeries {
	s := models.OccurrenceSeries{Key: key}
	for _, d := range days {
		s.Observations = append(s.Observations, models.VolumeObservation{
			Key:         key,
			PeriodStart: start.AddDate(0, 0, d),
			Count:       count,
		})
	}
	return s
}

func everyNDays(n, step int, count int64) models.OccurrenceSeries {
	days := make([]int, n)
	for i := range days {
		days[i] = i * step
	}
	return seriesAtDays(days, count)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGapRegularity(t *testing.T) {
	tests := []struct {
		name           string
		series         models.OccurrenceSeries
		wantCategory   models.FrequencyCategory
		wantConfidence float64
		wantGap        float64
	}{
		{
			name:           "weekly cadence lands in the shortest band",
			series:         everyNDays(52, 7, 1000),
			wantCategory:   models.FrequencyDaily,
			wantConfidence: 1.0,
			wantGap:        7,
		},
		{
			name:           "regular 28 day spacing",
			series:         everyNDays(13, 28, 5000),
			wantCategory:   models.FrequencyBiweekly,
			wantConfidence: 1.0,
			wantGap:        28,
		},
		{
			name:           "regular 14 day spacing",
			series:         everyNDays(10, 14, 10),
			wantCategory:   models.FrequencyWeekly,
			wantConfidence: 1.0,
			wantGap:        14,
		},
		{
			name:           "regular 91 day spacing",
			series:         everyNDays(5, 91, 10),
			wantCategory:   models.FrequencyMonthly,
			wantConfidence: 0.8,
			wantGap:        91,
		},
		{
			name:           "regular 182 day spacing",
			series:         everyNDays(3, 182, 10),
			wantCategory:   models.FrequencyQuarterly,
			wantConfidence: 0.7,
			wantGap:        182,
		},
		{
			name:           "regular yearly spacing",
			series:         everyNDays(3, 364, 10),
			wantCategory:   models.FrequencySemiAnnual,
			wantConfidence: 0.5,
			wantGap:        364,
		},
	}

	c := GapRegularity{TotalPeriods: 104}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.Classify(tt.series)
			if p.Category != tt.wantCategory {
				t.Errorf("category = %s, want %s", p.Category, tt.wantCategory)
			}
			if !approx(p.Confidence, tt.wantConfidence) {
				t.Errorf("confidence = %v, want %v", p.Confidence, tt.wantConfidence)
			}
			if !approx(p.AvgGapDays, tt.wantGap) {
				t.Errorf("avg gap = %v, want %v", p.AvgGapDays, tt.wantGap)
			}
			if !approx(p.RegularityScore, 1) {
				t.Errorf("regularity = %v, want 1", p.RegularityScore)
			}
		})
	}
}

func TestGapRegularity_ForcedIrregular(t *testing.T) {
	weeks := []int{0, 2, 8, 10, 30, 45, 50}
	days := make([]int, len(weeks))
	for i, w := range weeks {
		days[i] = w * 7
	}

	p := GapRegularity{TotalPeriods: 104}.Classify(seriesAtDays(days, 100))

	if p.RegularityScore >= 0.3 {
		t.Fatalf("regularity = %v, want < 0.3", p.RegularityScore)
	}
	if p.Category != models.FrequencyIrregular {
		t.Errorf("category = %s, want irregular", p.Category)
	}
	if !approx(p.Confidence, 1-p.RegularityScore) {
		t.Errorf("confidence = %v, want %v", p.Confidence, 1-p.RegularityScore)
	}
	if p.OccurrenceCount != 7 {
		t.Errorf("occurrences = %d, want 7", p.OccurrenceCount)
	}
}

func TestGapRegularity_DegenerateSeries(t *testing.T) {
	c := GapRegularity{TotalPeriods: 104}

	empty := c.Classify(models.OccurrenceSeries{Key: key})
	if empty.Category != models.FrequencyInsufficientData || empty.Confidence != 0 {
		t.Errorf("empty series = %s/%v", empty.Category, empty.Confidence)
	}

	single := c.Classify(seriesAtDays([]int{0}, 42))
	if single.Category != models.FrequencySingleOccurrence || single.Confidence != 0 {
		t.Errorf("single series = %s/%v", single.Category, single.Confidence)
	}
	if single.AvgVolume != 42 || single.OccurrenceCount != 1 {
		t.Errorf("single series descriptives = %+v", single)
	}
}

func TestGapRegularity_Invariants(t *testing.T) {
	inputs := []models.OccurrenceSeries{
		everyNDays(20, 7, 5),
		seriesAtDays([]int{0, 1, 2, 50, 51, 300}, 9),
		seriesAtDays([]int{0, 0 + 7, 400}, 1),
	}
	c := GapRegularity{TotalPeriods: 104}
	for _, s := range inputs {
		p := c.Classify(s)
		if p.RegularityScore < 0 || p.RegularityScore > 1 {
			t.Errorf("regularity out of range: %v", p.RegularityScore)
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("confidence out of range: %v", p.Confidence)
		}
		if again := c.Classify(s); again != p {
			t.Errorf("classification is not deterministic: %+v != %+v", again, p)
		}
	}
}

func TestOccurrenceRate(t *testing.T) {
	tests := []struct {
		present int
		want    models.FrequencyCategory
	}{
		{100, models.FrequencyDaily},
		{80, models.FrequencyWeekly},
		{40, models.FrequencyBiweekly},
		{20, models.FrequencyMonthly},
		{6, models.FrequencyQuarterly},
		{2, models.FrequencySemiAnnual},
	}

	c := OccurrenceRate{TotalPeriods: 100}
	for _, tt := range tests {
		p := c.Classify(everyNDays(tt.present, 7, 1))
		if p.Category != tt.want {
			t.Errorf("%d/100 periods: category = %s, want %s", tt.present, p.Category, tt.want)
		}
	}

	if p := c.Classify(models.OccurrenceSeries{Key: key}); p.Category != models.FrequencyInsufficientData {
		t.Errorf("empty series category = %s", p.Category)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "gap", "rate"} {
		if _, err := New(name, 10); err != nil {
			t.Errorf("New(%q) error: %v", name, err)
		}
	}
	if _, err := New("fourier", 10); err == nil {
		t.Error("expected error for unknown classifier")
	}
}

func TestMeasuresRegularity(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"gap", true},
		{"rate", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.name, 10)
			if err != nil {
				t.Fatalf("New(%q) error: %v", tt.name, err)
			}
			if got := MeasuresRegularity(c); got != tt.want {
				t.Errorf("MeasuresRegularity(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	p := GapRegularity{TotalPeriods: 104}.Classify(everyNDays(52, 7, 1000))
	got := Summary(p)
	for _, want := range []string{"DAILY pattern", "confidence: high", "regular", "7.0 days", "52 occurrences"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}
