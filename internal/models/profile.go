package models

// FrequencyCategory is the inferred reporting cadence of a category.
type FrequencyCategory string

const (
	FrequencyDaily            FrequencyCategory = "daily"
	FrequencyWeekly           FrequencyCategory = "weekly"
	FrequencyBiweekly         FrequencyCategory = "biweekly"
	FrequencyMonthly          FrequencyCategory = "monthly"
	FrequencyQuarterly        FrequencyCategory = "quarterly"
	FrequencySemiAnnual       FrequencyCategory = "semi_annual"
	FrequencyIrregular        FrequencyCategory = "irregular"
	FrequencyInsufficientData FrequencyCategory = "insufficient_data"
	FrequencySingleOccurrence FrequencyCategory = "single_occurrence"
)

// FrequencyProfile describes how often a category reports and how evenly.
type FrequencyProfile struct {
	Key             CategoryKey       `json:"key"`
	Category        FrequencyCategory `json:"frequency_category"`
	Confidence      float64           `json:"confidence"`
	AvgGapDays      float64           `json:"avg_gap_days"`
	RegularityScore float64           `json:"regularity_score"`
	OccurrenceCount int               `json:"total_occurrences"`
	OccurrenceRate  float64           `json:"occurrence_rate"`
	AvgVolume       float64           `json:"avg_volume"`
	StdVolume       float64           `json:"std_volume"`
	MinVolume       float64           `json:"min_volume"`
	MaxVolume       float64           `json:"max_volume"`
	CVVolume        float64           `json:"cv_volume"`
}

// ThresholdProfile is the lower-bound snapshot computed for one category.
// FinalThreshold is the binding value for alerting.
type ThresholdProfile struct {
	Key                 CategoryKey       `json:"key"`
	Frequency           FrequencyCategory `json:"frequency_category,omitempty"`
	RegularityScore     float64           `json:"regularity_score"`
	SampleSize          int               `json:"weeks_of_data"`
	Mean                float64           `json:"mean_volume"`
	Std                 float64           `json:"std_volume"`
	CV                  float64           `json:"cv"`
	AdjustedZ           float64           `json:"adjusted_z_score"`
	ZThreshold          float64           `json:"z_threshold"`
	PercentileThreshold float64           `json:"percentile_threshold"`
	IQRThreshold        float64           `json:"iqr_threshold"`
	PercentageThreshold float64           `json:"percentage_threshold"`
	FinalThreshold      float64           `json:"threshold"`
}

// TrendDirection classifies the movement inside a window.
type TrendDirection string

const (
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
	TrendNoData           TrendDirection = "no_data"
)

// TrendWindowMetrics holds the metrics of one named lookback window.
type TrendWindowMetrics struct {
	Window        string         `json:"window"`
	Periods       int            `json:"periods"`
	Avg           float64        `json:"avg_volume"`
	Total         float64        `json:"total_volume"`
	Min           float64        `json:"min_volume"`
	Max           float64        `json:"max_volume"`
	Median        float64        `json:"median_volume"`
	Volatility    float64        `json:"volatility"`
	Slope         float64        `json:"slope"`
	GrowthRatePct float64        `json:"growth_rate_pct"`
	Direction     TrendDirection `json:"trend_direction"`
	SampleSize    int            `json:"data_points"`
}

// ComparisonStatus is the outcome of a recent-vs-historical comparison.
type ComparisonStatus string

const (
	ComparisonNormal           ComparisonStatus = "normal"
	ComparisonIncreasing       ComparisonStatus = "increasing"
	ComparisonDecreasing       ComparisonStatus = "decreasing"
	ComparisonInsufficientData ComparisonStatus = "insufficient_data"
)

// RecentComparison contrasts the last few periods with everything before them.
type RecentComparison struct {
	RecentAvg     float64          `json:"recent_avg"`
	HistoricalAvg float64          `json:"historical_avg"`
	ChangePct     float64          `json:"change_pct"`
	Status        ComparisonStatus `json:"status"`
	RecentPeriods int              `json:"recent_weeks"`
}

// TrendProfile bundles all windows of one category.
type TrendProfile struct {
	Key        CategoryKey          `json:"key"`
	Windows    []TrendWindowMetrics `json:"windows"`
	Comparison RecentComparison     `json:"recent_vs_historical"`
}
