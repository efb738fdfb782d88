// Package report renders analysis and alert results into files and text.
//
// Every file is written in one piece through storage.WriteFileAtomic, after
// the whole batch has been computed. A failed run leaves no partial tables.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/volwatch/internal/alert"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/monitor"
	"github.com/rewired-gh/volwatch/internal/storage"
)

// Output file names.
const (
	FrequencyFile = "frequency_analysis.csv"
	ThresholdFile = "threshold_configuration.csv"
	TrendFile     = "trend_analysis.csv"
)

const fileDateLayout = "20060102"

// AlertDocument is the machine-readable alert payload.
type AlertDocument struct {
	CheckDate   string         `json:"check_date" yaml:"check_date"`
	Sensitivity string         `json:"sensitivity" yaml:"sensitivity"`
	AlertCount  int            `json:"alert_count" yaml:"alert_count"`
	Alerts      []models.Alert `json:"alerts" yaml:"alerts"`
}

// NewAlertDocument builds the document for a check result.
func NewAlertDocument(res *monitor.CheckResult) AlertDocument {
	alerts := res.Alerts
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return AlertDocument{
		CheckDate:   res.Date.Format(models.DateLayout),
		Sensitivity: res.Sensitivity,
		AlertCount:  len(alerts),
		Alerts:      alerts,
	}
}

type outputFile struct {
	name string
	data []byte
}

// Writer writes report files into Dir.
type Writer struct {
	Dir  string
	YAML bool
}

// WriteAnalysis writes the frequency, threshold and trend tables and returns
// the written paths.
func (w Writer) WriteAnalysis(res *monitor.AnalysisResult) ([]string, error) {
	files := []struct {
		name  string
		table Table
	}{
		{FrequencyFile, FrequencyTable(res.Frequencies)},
		{ThresholdFile, ThresholdTable(res.Thresholds)},
		{TrendFile, TrendTable(res.Trends)},
	}

	var paths []string
	for _, file := range files {
		data, err := file.table.CSV()
		if err != nil {
			return paths, fmt.Errorf("failed to encode %s: %w", file.name, err)
		}
		path := filepath.Join(w.Dir, file.name)
		if err := storage.WriteFileAtomic(path, data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteCheck writes the alert table, JSON (and optionally YAML) document and
// the text report for one checked period.
func (w Writer) WriteCheck(res *monitor.CheckResult, s models.Sensitivity, generatedAt time.Time) ([]string, error) {
	stamp := res.Date.Format(fileDateLayout)
	doc := NewAlertDocument(res)

	csvData, err := AlertTable(res.Alerts).CSV()
	if err != nil {
		return nil, fmt.Errorf("failed to encode alerts: %w", err)
	}
	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alerts: %w", err)
	}

	outputs := []outputFile{
		{"alerts_" + stamp + ".csv", csvData},
		{"alerts_" + stamp + ".json", jsonData},
	}
	if w.YAML {
		yamlData, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alerts: %w", err)
		}
		outputs = append(outputs, outputFile{"alerts_" + stamp + ".yaml", yamlData})
	}
	outputs = append(outputs, outputFile{"report_" + stamp + ".txt", []byte(AlertReport(res, s, generatedAt))})

	var paths []string
	for _, out := range outputs {
		path := filepath.Join(w.Dir, out.name)
		if err := storage.WriteFileAtomic(path, out.data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// AlertReport renders the human-readable alert report, grouped by severity.
func AlertReport(res *monitor.CheckResult, s models.Sensitivity, generatedAt time.Time) string {
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("VOLUME ALERT REPORT")
	line(rule)
	line("Period Starting: %s", res.Date.Format(models.DateLayout))
	line("Report Generated: %s", generatedAt.Format("2006-01-02 15:04:05"))
	line("Sensitivity Level: %s", strings.ToUpper(s.Name))
	if s.Description != "" {
		line("Description: %s", s.Description)
	}
	line("Categories Evaluated: %d (skipped for short history: %d)", res.Evaluated, res.Skipped)
	line(rule)
	line("")

	if len(res.Alerts) == 0 {
		line("NO ALERTS DETECTED")
		line("All categories within normal volume ranges.")
		line("")
		return b.String()
	}

	counts := alert.CountBySeverity(res.Alerts)
	line("ALERT SUMMARY:")
	line("  Total Alerts: %d", len(res.Alerts))
	for _, sev := range models.Severities {
		if counts[sev] > 0 {
			line("  %-10s: %d", sev, counts[sev])
		}
	}
	line("")

	recentLabel := "Avg"
	if res.TrailingPeriods > 0 {
		recentLabel = fmt.Sprintf("%d-Period Avg", res.TrailingPeriods)
	}
	for _, sev := range models.Severities {
		if counts[sev] == 0 {
			continue
		}
		line(thin)
		line("%s PRIORITY ALERTS (%d)", sev, counts[sev])
		line(thin)
		line("")
		for _, a := range res.Alerts {
			if a.Severity != sev {
				continue
			}
			line("App: %s | Message Type: %s", a.AppID, a.MessageTypeID)
			line("  Current Volume: %s", Comma(a.ObservedCount))
			line("  Threshold: %s", Comma(a.Threshold))
			line("  Mean Volume: %s", Comma(a.Mean))
			line("  Recent %s: %s", recentLabel, Comma(a.RecentAvg))
			line("  Drop from Mean: %.1f%%", a.DropPct)
			line("  Message: %s", a.Message)
			line("")
		}
	}

	line(rule)
	line("END OF REPORT")
	line(rule)
	return b.String()
}

// Comma formats v rounded to a whole number with thousands separators.
func Comma(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
