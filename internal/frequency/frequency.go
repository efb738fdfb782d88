// Package frequency infers how often a category is expected to report.
//
// The default GapRegularity classifier looks at the spacing between
// consecutive occurrences rather than their density:
//
//	cv         = std(gaps) / mean(gaps)        (1.0 when the mean gap is 0)
//	regularity = max(0, 1 - min(cv, 1))
//
// The mean gap selects a cadence band and the regularity score breaks ties
// inside it. Series with fewer than two observations resolve to sentinel
// categories rather than failing.
package frequency

import (
	"fmt"
	"math"
	"strings"

	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/stats"
)

const hoursPerDay = 24

// Classifier assigns a FrequencyProfile to one category's series.
type Classifier interface {
	Classify(s models.OccurrenceSeries) models.FrequencyProfile
}

// RegularityMeasurer is implemented by classifiers whose profiles carry a
// measured RegularityScore.
type RegularityMeasurer interface {
	MeasuresRegularity() bool
}

// MeasuresRegularity reports whether profiles from c carry a regularity score.
func MeasuresRegularity(c Classifier) bool {
	m, ok := c.(RegularityMeasurer)
	return ok && m.MeasuresRegularity()
}

// New returns the classifier registered under name ("gap" or "rate").
func New(name string, totalPeriods int) (Classifier, error) {
	switch name {
	case "", "gap":
		return GapRegularity{TotalPeriods: totalPeriods}, nil
	case "rate":
		return OccurrenceRate{TotalPeriods: totalPeriods}, nil
	default:
		return nil, fmt.Errorf("unknown frequency classifier %q", name)
	}
}

// GapRegularity classifies by mean gap and gap regularity.
type GapRegularity struct {
	// TotalPeriods is the analysis horizon used for the occurrence rate.
	TotalPeriods int
}

// MeasuresRegularity implements RegularityMeasurer.
func (GapRegularity) MeasuresRegularity() bool { return true }

// Classify implements Classifier.
func (g GapRegularity) Classify(s models.OccurrenceSeries) models.FrequencyProfile {
	p := describe(s, g.TotalPeriods)

	switch s.Len() {
	case 0:
		p.Category = models.FrequencyInsufficientData
		return p
	case 1:
		p.Category = models.FrequencySingleOccurrence
		return p
	}

	gaps := GapsInDays(s)
	avgGap := stats.Mean(gaps)
	cv := 1.0
	if avgGap > 0 {
		cv = stats.StdDev(gaps) / avgGap
	}
	regularity := RegularityFromCV(cv)

	p.AvgGapDays = avgGap
	p.RegularityScore = regularity
	p.Category, p.Confidence = classifyGap(avgGap, regularity, len(gaps))
	return p
}

// GapsInDays returns the whole-day intervals between consecutive observations.
func GapsInDays(s models.OccurrenceSeries) []float64 {
	if s.Len() < 2 {
		return nil
	}
	gaps := make([]float64, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		d := s.Observations[i].PeriodStart.Sub(s.Observations[i-1].PeriodStart)
		gaps[i-1] = math.Floor(d.Hours() / hoursPerDay)
	}
	return gaps
}

// RegularityFromCV maps a gap coefficient of variation onto [0, 1].
func RegularityFromCV(cv float64) float64 {
	return math.Max(0, 1-math.Min(cv, 1))
}

// classifyGap applies the cadence bands. Boundaries are inclusive on the upper
// edge of each band.
func classifyGap(avgGap, regularity float64, gapCount int) (models.FrequencyCategory, float64) {
	var (
		category   models.FrequencyCategory
		confidence float64
	)

	switch {
	case avgGap <= 10 && regularity > 0.5:
		category, confidence = models.FrequencyDaily, regularity
	case avgGap > 10 && avgGap <= 21 && regularity > 0.4:
		category, confidence = models.FrequencyWeekly, regularity
	case avgGap > 21 && avgGap <= 45:
		category = models.FrequencyMonthly
		if regularity > 0.4 {
			category = models.FrequencyBiweekly
		}
		confidence = regularity
	case avgGap > 45 && avgGap <= 120:
		category = models.FrequencyQuarterly
		if regularity > 0.5 {
			category = models.FrequencyMonthly
		}
		confidence = regularity * 0.8
	case avgGap > 120 && avgGap <= 270:
		category = models.FrequencySemiAnnual
		if regularity > 0.5 {
			category = models.FrequencyQuarterly
		}
		confidence = regularity * 0.7
	default:
		category = models.FrequencyIrregular
		if regularity > 0.3 {
			category = models.FrequencySemiAnnual
		}
		confidence = regularity * 0.5
	}

	// Very uneven spacing overrides the band; confidence becomes
	// confidence in the irregularity itself.
	if regularity < 0.3 && gapCount > 3 {
		category = models.FrequencyIrregular
		confidence = 1 - regularity
	}

	return category, confidence
}

// OccurrenceRate is the coarse density classifier: the share of periods in
// the horizon that carried any data.
type OccurrenceRate struct {
	TotalPeriods int
}

// Classify implements Classifier.
func (o OccurrenceRate) Classify(s models.OccurrenceSeries) models.FrequencyProfile {
	p := describe(s, o.TotalPeriods)
	if s.Len() == 0 {
		p.Category = models.FrequencyInsufficientData
		return p
	}
	if gaps := GapsInDays(s); len(gaps) > 0 {
		p.AvgGapDays = stats.Mean(gaps)
	}

	rate := p.OccurrenceRate
	switch {
	case rate >= 0.95:
		p.Category = models.FrequencyDaily
	case rate >= 0.75:
		p.Category = models.FrequencyWeekly
	case rate >= 0.35:
		p.Category = models.FrequencyBiweekly
	case rate >= 0.15:
		p.Category = models.FrequencyMonthly
	case rate >= 0.05:
		p.Category = models.FrequencyQuarterly
	default:
		p.Category = models.FrequencySemiAnnual
	}
	p.Confidence = math.Min(1, math.Max(0, rate))
	return p
}

// describe fills the volume descriptives shared by every classifier.
func describe(s models.OccurrenceSeries, totalPeriods int) models.FrequencyProfile {
	counts := s.Counts()
	return models.FrequencyProfile{
		Key:             s.Key,
		OccurrenceCount: s.Len(),
		OccurrenceRate:  stats.SafeDiv(float64(s.Len()), float64(totalPeriods)),
		AvgVolume:       stats.Mean(counts),
		StdVolume:       stats.StdDev(counts),
		MinVolume:       stats.Min(counts),
		MaxVolume:       stats.Max(counts),
		CVVolume:        stats.CV(counts),
	}
}

// Summary renders a one-line human readable description of a profile.
func Summary(p models.FrequencyProfile) string {
	confidence := "low"
	switch {
	case p.Confidence > 0.7:
		confidence = "high"
	case p.Confidence > 0.4:
		confidence = "medium"
	}
	regularity := "irregular"
	switch {
	case p.RegularityScore > 0.7:
		regularity = "regular"
	case p.RegularityScore > 0.4:
		regularity = "somewhat regular"
	}
	return fmt.Sprintf("%s pattern (confidence: %s, %s) | Avg gap: %.1f days | %d occurrences",
		strings.ToUpper(string(p.Category)), confidence, regularity, p.AvgGapDays, p.OccurrenceCount)
}
