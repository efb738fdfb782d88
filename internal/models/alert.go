package models

import (
	"errors"
	"fmt"
	"time"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Severities lists severities from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// AlertType distinguishes a low count from a missing one.
type AlertType string

const (
	AlertVolumeDrop AlertType = "VOLUME_DROP"
	AlertNoData     AlertType = "NO_DATA"
)

// Alert is raised for one category in one checked period. Alerts are never
// mutated after creation.
type Alert struct {
	ID            string      `json:"id" yaml:"id"`
	Key           CategoryKey `json:"-" yaml:"-"`
	AppID         string      `json:"app" yaml:"app"`
	MessageTypeID string      `json:"message_type" yaml:"message_type"`
	PeriodStart   time.Time   `json:"-" yaml:"-"`
	Period        string      `json:"week_start_date" yaml:"week_start_date"`
	ObservedCount float64     `json:"current_volume" yaml:"current_volume"`
	Threshold     float64     `json:"threshold" yaml:"threshold"`
	Mean          float64     `json:"mean_volume" yaml:"mean_volume"`
	RecentAvg     float64     `json:"recent_avg" yaml:"recent_avg"`
	DropPct       float64     `json:"drop_from_mean_pct" yaml:"drop_from_mean_pct"`
	Severity      Severity    `json:"severity" yaml:"severity"`
	Type          AlertType   `json:"alert_type" yaml:"alert_type"`
	Message       string      `json:"message" yaml:"message"`
}

// Validate checks that all alert fields are valid.
func (a *Alert) Validate() error {
	if a.ID == "" {
		return errors.New("alert ID must not be empty")
	}
	if err := a.Key.Validate(); err != nil {
		return err
	}
	if a.PeriodStart.IsZero() {
		return errors.New("alert period must be set")
	}
	switch a.Severity {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
	default:
		return fmt.Errorf("unknown severity %q", a.Severity)
	}
	switch a.Type {
	case AlertVolumeDrop:
	case AlertNoData:
		if a.Severity != SeverityCritical {
			return errors.New("no-data alerts must be critical")
		}
		if a.ObservedCount != 0 {
			return errors.New("no-data alerts must have zero observed volume")
		}
	default:
		return fmt.Errorf("unknown alert type %q", a.Type)
	}
	if a.ObservedCount < 0 {
		return errors.New("observed volume must not be negative")
	}
	if a.Threshold < 0 {
		return errors.New("threshold must not be negative")
	}
	if a.DropPct > 100 {
		return errors.New("drop percentage must not exceed 100")
	}
	return nil
}
