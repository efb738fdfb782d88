// Package models defines the core domain entities for volwatch.
// These models represent weekly volume observations, the per-category profiles
// derived from them, and the alerts raised when a period looks abnormally low.
// All input models include built-in validation so malformed rows are rejected
// before they reach the analysis pipeline.
//
// Terminology:
//   - Category: an (application, message type) pair whose weekly counts are tracked.
//   - Period: a fixed-length calendar bucket (one week) starting on PeriodStart.
package models

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for period boundaries in all
// tabular inputs and outputs.
const DateLayout = "2006-01-02"

// CategoryKey identifies a tracked category. Both parts are opaque.
type CategoryKey struct {
	AppID         string `json:"app"`
	MessageTypeID string `json:"message_type"`
}

// String returns the composite "app|message_type" form.
func (k CategoryKey) String() string {
	return k.AppID + "|" + k.MessageTypeID
}

// Less orders keys by application, then message type.
func (k CategoryKey) Less(other CategoryKey) bool {
	if k.AppID != other.AppID {
		return k.AppID < other.AppID
	}
	return k.MessageTypeID < other.MessageTypeID
}

// Validate checks that both identifiers are present.
func (k CategoryKey) Validate() error {
	if k.AppID == "" {
		return errors.New("application ID must not be empty")
	}
	if k.MessageTypeID == "" {
		return errors.New("message type ID must not be empty")
	}
	return nil
}

// VolumeObservation is the count reported for one category in one period.
type VolumeObservation struct {
	Key         CategoryKey `json:"key"`
	PeriodStart time.Time   `json:"week_start_date"` // UTC midnight
	Count       int64       `json:"volume"`
}

// Validate checks that all observation fields are valid.
func (o *VolumeObservation) Validate() error {
	if err := o.Key.Validate(); err != nil {
		return err
	}
	if o.PeriodStart.IsZero() {
		return errors.New("period start date must be set")
	}
	if o.Count < 0 {
		return fmt.Errorf("volume must not be negative, got %d", o.Count)
	}
	return nil
}

// TruncateDay normalises t to UTC midnight so that dates compare by calendar day.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD period boundary.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// OccurrenceSeries is the ascending-by-date observation sequence of one category.
// Methods never mutate the receiver; derived views are fresh slices.
type OccurrenceSeries struct {
	Key          CategoryKey
	Observations []VolumeObservation
}

// Len returns the number of observations.
func (s OccurrenceSeries) Len() int {
	return len(s.Observations)
}

// Dates returns the period start dates in order.
func (s OccurrenceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		dates[i] = o.PeriodStart
	}
	return dates
}

// Counts returns the observed counts in order as float64.
func (s OccurrenceSeries) Counts() []float64 {
	counts := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		counts[i] = float64(o.Count)
	}
	return counts
}

// Before returns a new series holding only observations strictly before date.
func (s OccurrenceSeries) Before(date time.Time) OccurrenceSeries {
	out := OccurrenceSeries{Key: s.Key}
	for _, o := range s.Observations {
		if o.PeriodStart.Before(date) {
			out.Observations = append(out.Observations, o)
		}
	}
	return out
}

// At returns the observation for the given period, if present.
func (s OccurrenceSeries) At(date time.Time) (VolumeObservation, bool) {
	for _, o := range s.Observations {
		if o.PeriodStart.Equal(date) {
			return o, true
		}
	}
	return VolumeObservation{}, false
}

// Last returns the most recent observation date, or the zero time when empty.
func (s OccurrenceSeries) Last() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].PeriodStart
}
