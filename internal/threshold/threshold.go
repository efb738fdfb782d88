// Package threshold derives the lower-bound volume a category is expected to
// stay above, given its recent history.
//
// Three estimators are computed and the largest one wins, so the binding
// threshold is always the most sensitive of them:
//
//	z          = max(0, mean - z_score*std)
//	percentile = P(sensitivity.percentile) of the sample
//	iqr        = max(0, Q1 - 1.5*(Q3-Q1))
//
// A fourth value, a flat 30% drop from the mean, is reported for reference
// only.
package threshold

import (
	"errors"
	"fmt"
	"math"

	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/stats"
)

// ErrInsufficientHistory is returned when the sample is smaller than the
// sensitivity's minimum. Callers skip the category.
var ErrInsufficientHistory = errors.New("insufficient history")

// PercentageFloor is the share of the mean used for the reference threshold.
const PercentageFloor = 0.7

type options struct {
	regularity *float64
	frequency  models.FrequencyCategory
}

// Option tunes a single calculation.
type Option func(*options)

// WithRegularity widens the z band for irregular categories. Values are
// clamped to [0, 1].
func WithRegularity(r float64) Option {
	return func(o *options) {
		r = math.Max(0, math.Min(1, r))
		o.regularity = &r
	}
}

// WithFrequency records the category's frequency label on the profile.
func WithFrequency(f models.FrequencyCategory) Option {
	return func(o *options) {
		o.frequency = f
	}
}

// Calculate computes the threshold profile for one sample of counts.
func Calculate(key models.CategoryKey, counts []float64, s models.Sensitivity, opts ...Option) (models.ThresholdProfile, error) {
	if len(counts) < s.MinWeeks || len(counts) == 0 {
		return models.ThresholdProfile{}, fmt.Errorf("%s: %d periods, need %d: %w",
			key, len(counts), s.MinWeeks, ErrInsufficientHistory)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mean := stats.Mean(counts)
	std := stats.StdDev(counts)

	z := s.ZScore
	if o.regularity != nil {
		z = AdjustedZ(s.ZScore, *o.regularity)
	}

	q1, q3 := stats.Quartiles(counts)
	zThreshold := math.Max(0, mean-z*std)
	pctThreshold := stats.Percentile(counts, s.Percentile)
	iqrThreshold := math.Max(0, q1-1.5*(q3-q1))

	p := models.ThresholdProfile{
		Key:                 key,
		Frequency:           o.frequency,
		SampleSize:          len(counts),
		Mean:                mean,
		Std:                 std,
		CV:                  stats.SafeDiv(std, mean),
		AdjustedZ:           z,
		ZThreshold:          zThreshold,
		PercentileThreshold: pctThreshold,
		IQRThreshold:        iqrThreshold,
		PercentageThreshold: mean * PercentageFloor,
		FinalThreshold:      math.Max(0, math.Max(zThreshold, math.Max(pctThreshold, iqrThreshold))),
	}
	if o.regularity != nil {
		p.RegularityScore = *o.regularity
	}
	return p, nil
}

// AdjustedZ scales a z-score up as regularity drops, from 1x at perfect
// regularity to 1.5x at none.
func AdjustedZ(z, regularity float64) float64 {
	return z * (1 + (1-regularity)*0.5)
}
