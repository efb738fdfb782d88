package models

import (
	"errors"
	"time"
)

// Run summarises one monitoring pass over a checked period.
type Run struct {
	ID          string
	CheckDate   time.Time
	Sensitivity string
	StartedAt   time.Time
	Duration    time.Duration
	Evaluated   int
	Skipped     int
	Alerts      []Alert
}

// Validate checks that the run can be persisted.
func (r *Run) Validate() error {
	if r.ID == "" {
		return errors.New("run ID must not be empty")
	}
	if r.CheckDate.IsZero() {
		return errors.New("run check date must be set")
	}
	if r.Sensitivity == "" {
		return errors.New("run sensitivity must not be empty")
	}
	for i := range r.Alerts {
		if err := r.Alerts[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
