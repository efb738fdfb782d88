package report

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/rewired-gh/volwatch/internal/models"
)

// Table is a header plus rows, ready for CSV encoding.
type Table struct {
	Header []string
	Rows   [][]string
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// FrequencyTable renders one row per frequency profile.
func FrequencyTable(profiles []models.FrequencyProfile) Table {
	t := Table{Header: []string{
		"app", "message_type", "frequency_category", "confidence", "avg_gap_days",
		"regularity_score", "total_occurrences", "occurrence_rate",
		"avg_volume", "std_volume", "min_volume", "max_volume", "cv_volume",
	}}
	for _, p := range profiles {
		t.Rows = append(t.Rows, []string{
			p.Key.AppID, p.Key.MessageTypeID, string(p.Category), f4(p.Confidence), f4(p.AvgGapDays),
			f4(p.RegularityScore), strconv.Itoa(p.OccurrenceCount), f4(p.OccurrenceRate),
			f4(p.AvgVolume), f4(p.StdVolume), f(p.MinVolume), f(p.MaxVolume), f4(p.CVVolume),
		})
	}
	return t
}

// ThresholdTable renders one row per threshold profile.
func ThresholdTable(profiles []models.ThresholdProfile) Table {
	t := Table{Header: []string{
		"app", "message_type", "frequency_category", "regularity_score", "weeks_of_data",
		"mean_volume", "std_volume", "cv", "adjusted_z_score",
		"z_threshold", "percentile_threshold", "iqr_threshold", "percentage_threshold", "threshold",
	}}
	for _, p := range profiles {
		t.Rows = append(t.Rows, []string{
			p.Key.AppID, p.Key.MessageTypeID, string(p.Frequency), f4(p.RegularityScore), strconv.Itoa(p.SampleSize),
			f4(p.Mean), f4(p.Std), f4(p.CV), f4(p.AdjustedZ),
			f4(p.ZThreshold), f4(p.PercentileThreshold), f4(p.IQRThreshold), f4(p.PercentageThreshold), f4(p.FinalThreshold),
		})
	}
	return t
}

// TrendTable renders one row per category and window.
func TrendTable(profiles []models.TrendProfile) Table {
	t := Table{Header: []string{
		"app", "message_type", "window", "periods", "data_points",
		"avg_volume", "total_volume", "min_volume", "max_volume", "median_volume",
		"volatility", "slope", "growth_rate_pct", "trend_direction",
	}}
	for _, p := range profiles {
		for _, w := range p.Windows {
			t.Rows = append(t.Rows, []string{
				p.Key.AppID, p.Key.MessageTypeID, w.Window, strconv.Itoa(w.Periods), strconv.Itoa(w.SampleSize),
				f4(w.Avg), f(w.Total), f(w.Min), f(w.Max), f4(w.Median),
				f4(w.Volatility), f4(w.Slope), f4(w.GrowthRatePct), string(w.Direction),
			})
		}
	}
	return t
}

// AlertTable renders one row per alert.
func AlertTable(alerts []models.Alert) Table {
	t := Table{Header: []string{
		"id", "app", "message_type", "week_start_date", "current_volume", "threshold",
		"mean_volume", "recent_avg", "drop_from_mean_pct", "severity", "alert_type", "message",
	}}
	for _, a := range alerts {
		t.Rows = append(t.Rows, []string{
			a.ID, a.AppID, a.MessageTypeID, a.Period, f(a.ObservedCount), f4(a.Threshold),
			f4(a.Mean), f4(a.RecentAvg), f4(a.DropPct), string(a.Severity), string(a.Type), a.Message,
		})
	}
	return t
}

// CSV encodes the table.
func (t Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
