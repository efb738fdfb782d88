package models

import (
	"testing"
	"time"
)

func TestVolumeObservationValidate(t *testing.T) {
	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		obs     VolumeObservation
		wantErr bool
	}{
		{
			name:    "valid observation",
			obs:     VolumeObservation{Key: CategoryKey{"APP_001", "MT103"}, PeriodStart: week, Count: 1500},
			wantErr: false,
		},
		{
			name:    "zero count is valid",
			obs:     VolumeObservation{Key: CategoryKey{"APP_001", "MT103"}, PeriodStart: week},
			wantErr: false,
		},
		{
			name:    "empty app",
			obs:     VolumeObservation{Key: CategoryKey{"", "MT103"}, PeriodStart: week, Count: 10},
			wantErr: true,
		},
		{
			name:    "empty message type",
			obs:     VolumeObservation{Key: CategoryKey{"APP_001", ""}, PeriodStart: week, Count: 10},
			wantErr: true,
		},
		{
			name:    "missing date",
			obs:     VolumeObservation{Key: CategoryKey{"APP_001", "MT103"}, Count: 10},
			wantErr: true,
		},
		{
			name:    "negative count",
			obs:     VolumeObservation{Key: CategoryKey{"APP_001", "MT103"}, PeriodStart: week, Count: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("VolumeObservation.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryKeyOrdering(t *testing.T) {
	a := CategoryKey{"APP_001", "MT202"}
	b := CategoryKey{"APP_002", "MT103"}
	c := CategoryKey{"APP_001", "MT103"}

	if !a.Less(b) {
		t.Errorf("expected %s < %s", a, b)
	}
	if !c.Less(a) {
		t.Errorf("expected %s < %s", c, a)
	}
	if a.Less(a) {
		t.Errorf("key must not be less than itself")
	}
	if got := a.String(); got != "APP_001|MT202" {
		t.Errorf("String() = %q, want APP_001|MT202", got)
	}
}

func TestOccurrenceSeriesViews(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	key := CategoryKey{"APP_001", "MT103"}
	s := OccurrenceSeries{Key: key}
	for i := 0; i < 5; i++ {
		s.Observations = append(s.Observations, VolumeObservation{
			Key:         key,
			PeriodStart: start.AddDate(0, 0, 7*i),
			Count:       int64(100 * (i + 1)),
		})
	}

	before := s.Before(start.AddDate(0, 0, 14))
	if before.Len() != 2 {
		t.Fatalf("Before() len = %d, want 2", before.Len())
	}
	if s.Len() != 5 {
		t.Errorf("Before() must not mutate the receiver, len = %d", s.Len())
	}

	obs, ok := s.At(start.AddDate(0, 0, 21))
	if !ok || obs.Count != 400 {
		t.Errorf("At() = %+v, %v; want count 400", obs, ok)
	}
	if _, ok := s.At(start.AddDate(0, 0, 3)); ok {
		t.Error("At() should not find an off-boundary date")
	}

	counts := s.Counts()
	if counts[4] != 500 {
		t.Errorf("Counts()[4] = %v, want 500", counts[4])
	}
	if !s.Last().Equal(start.AddDate(0, 0, 28)) {
		t.Errorf("Last() = %v", s.Last())
	}
	if !(OccurrenceSeries{}).Last().IsZero() {
		t.Error("Last() of empty series should be zero")
	}
}

func TestAlertValidate(t *testing.T) {
	week := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	key := CategoryKey{"APP_001", "MT103"}

	tests := []struct {
		name    string
		alert   Alert
		wantErr bool
	}{
		{
			name: "valid volume drop",
			alert: Alert{
				ID: "a-1", Key: key, PeriodStart: week,
				ObservedCount: 700, Threshold: 900, Mean: 1000, DropPct: 30,
				Severity: SeverityMedium, Type: AlertVolumeDrop,
			},
			wantErr: false,
		},
		{
			name: "valid no data",
			alert: Alert{
				ID: "a-2", Key: key, PeriodStart: week,
				Threshold: 900, Mean: 1000, DropPct: 100,
				Severity: SeverityCritical, Type: AlertNoData,
			},
			wantErr: false,
		},
		{
			name: "no data must be critical",
			alert: Alert{
				ID: "a-3", Key: key, PeriodStart: week, DropPct: 100,
				Severity: SeverityHigh, Type: AlertNoData,
			},
			wantErr: true,
		},
		{
			name: "unknown severity",
			alert: Alert{
				ID: "a-4", Key: key, PeriodStart: week,
				Severity: "URGENT", Type: AlertVolumeDrop,
			},
			wantErr: true,
		},
		{
			name: "missing ID",
			alert: Alert{
				Key: key, PeriodStart: week,
				Severity: SeverityLow, Type: AlertVolumeDrop,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.alert.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Alert.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
