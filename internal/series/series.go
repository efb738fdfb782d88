// Package series turns raw volume observations into validated, per-category
// occurrence series. Malformed input is rejected here so the analysis
// packages can assume well-formed, strictly increasing series.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rewired-gh/volwatch/internal/models"
)

// ValidationError describes one rejected observation.
type ValidationError struct {
	Key    models.CategoryKey
	Date   time.Time
	Reason string
}

func (e ValidationError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("invalid observation for %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid observation for %s on %s: %s", e.Key, e.Date.Format(models.DateLayout), e.Reason)
}

// Build validates observations and groups them into ascending series, one per
// category, ordered by category key. Dates are normalised to UTC midnight.
// All problems are reported together via errors.Join.
func Build(observations []models.VolumeObservation) ([]models.OccurrenceSeries, error) {
	byKey := make(map[models.CategoryKey][]models.VolumeObservation)
	seen := make(map[models.CategoryKey]map[time.Time]bool)
	var errs []error

	for _, obs := range observations {
		obs.PeriodStart = models.TruncateDay(obs.PeriodStart)
		if err := obs.Validate(); err != nil {
			errs = append(errs, ValidationError{Key: obs.Key, Date: obs.PeriodStart, Reason: err.Error()})
			continue
		}
		dates, ok := seen[obs.Key]
		if !ok {
			dates = make(map[time.Time]bool)
			seen[obs.Key] = dates
		}
		if dates[obs.PeriodStart] {
			errs = append(errs, ValidationError{Key: obs.Key, Date: obs.PeriodStart, Reason: "duplicate period"})
			continue
		}
		dates[obs.PeriodStart] = true
		byKey[obs.Key] = append(byKey[obs.Key], obs)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	keys := make([]models.CategoryKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	result := make([]models.OccurrenceSeries, 0, len(keys))
	for _, k := range keys {
		obs := byKey[k]
		sort.Slice(obs, func(i, j int) bool { return obs[i].PeriodStart.Before(obs[j].PeriodStart) })
		result = append(result, models.OccurrenceSeries{Key: k, Observations: obs})
	}
	return result, nil
}

// Span returns the earliest and latest period across all series.
func Span(all []models.OccurrenceSeries) (first, last time.Time) {
	for _, s := range all {
		if s.Len() == 0 {
			continue
		}
		d0 := s.Observations[0].PeriodStart
		d1 := s.Last()
		if first.IsZero() || d0.Before(first) {
			first = d0
		}
		if d1.After(last) {
			last = d1
		}
	}
	return first, last
}
