package models

import "fmt"

// Sensitivity is a named bundle controlling alert strictness.
type Sensitivity struct {
	Name        string  `mapstructure:"-" json:"name"`
	ZScore      float64 `mapstructure:"z_score" json:"z_score"`
	Percentile  float64 `mapstructure:"percentile" json:"percentile"`
	MinWeeks    int     `mapstructure:"min_weeks" json:"min_weeks"`
	Description string  `mapstructure:"description" json:"description"`
}

// Validate checks that the sensitivity values are usable.
func (s Sensitivity) Validate() error {
	if s.ZScore <= 0 {
		return fmt.Errorf("sensitivity %s: z_score must be positive", s.Name)
	}
	if s.Percentile < 0 || s.Percentile > 100 {
		return fmt.Errorf("sensitivity %s: percentile must be between 0 and 100", s.Name)
	}
	if s.MinWeeks < 1 {
		return fmt.Errorf("sensitivity %s: min_weeks must be at least 1", s.Name)
	}
	return nil
}

// TrendWindow is a named lookback window measured in periods.
type TrendWindow struct {
	Name    string `mapstructure:"name" json:"name"`
	Periods int    `mapstructure:"periods" json:"periods"`
}

// DefaultTrendWindows are the standard lookback windows.
func DefaultTrendWindows() []TrendWindow {
	return []TrendWindow{
		{Name: "2_weeks", Periods: 2},
		{Name: "1_month", Periods: 4},
		{Name: "3_months", Periods: 13},
		{Name: "6_months", Periods: 26},
		{Name: "9_months", Periods: 39},
		{Name: "12_months", Periods: 52},
		{Name: "18_months", Periods: 78},
	}
}

// DefaultSensitivities returns the standard high/medium/low bundles.
func DefaultSensitivities() map[string]Sensitivity {
	return map[string]Sensitivity{
		"high": {
			Name: "high", ZScore: 1.5, Percentile: 10, MinWeeks: 4,
			Description: "High sensitivity - More alerts, catches smaller drops",
		},
		"medium": {
			Name: "medium", ZScore: 2.0, Percentile: 5, MinWeeks: 6,
			Description: "Medium sensitivity - Balanced approach (recommended)",
		},
		"low": {
			Name: "low", ZScore: 2.5, Percentile: 2, MinWeeks: 8,
			Description: "Low sensitivity - Fewer alerts, only significant drops",
		},
	}
}
