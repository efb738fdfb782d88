package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rewired-gh/volwatch/internal/alert"
	"github.com/rewired-gh/volwatch/internal/frequency"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/monitor"
	"github.com/rewired-gh/volwatch/internal/trend"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ECDC4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)

	severityStyles = map[models.Severity]lipgloss.Style{
		models.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF3B30")),
		models.SeverityHigh:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF9500")),
		models.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D")),
		models.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3")),
	}
)

// PrintCheck writes a short styled summary of a check result.
func PrintCheck(w io.Writer, res *monitor.CheckResult) {
	fmt.Fprintln(w, titleStyle.Render("Volume check "+res.Date.Format(models.DateLayout)))
	fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("sensitivity %s, %d evaluated, %d skipped",
		res.Sensitivity, res.Evaluated, res.Skipped)))

	if len(res.Alerts) == 0 {
		fmt.Fprintln(w, okStyle.Render("No alerts detected"))
		return
	}

	counts := alert.CountBySeverity(res.Alerts)
	var parts []string
	for _, sev := range models.Severities {
		if counts[sev] > 0 {
			parts = append(parts, severityStyles[sev].Render(fmt.Sprintf("%s %d", sev, counts[sev])))
		}
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(parts, "  ")))

	for _, a := range res.Alerts {
		fmt.Fprintf(w, "%s %s  %s\n",
			severityStyles[a.Severity].Render(fmt.Sprintf("%-8s", a.Severity)),
			a.Key,
			subtleStyle.Render(fmt.Sprintf("%s of %s, %s", Comma(a.ObservedCount), Comma(a.Threshold), a.Message)))
	}
}

// PrintHistory lists stored alerts for one category out of runs recorded runs.
func PrintHistory(w io.Writer, key models.CategoryKey, runs int, alerts []models.Alert) {
	fmt.Fprintln(w, titleStyle.Render("Alert history "+key.String()))
	fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("%d alerts shown, %d runs recorded", len(alerts), runs)))

	if len(alerts) == 0 {
		fmt.Fprintln(w, okStyle.Render("No alerts recorded"))
		return
	}
	for _, a := range alerts {
		fmt.Fprintf(w, "%s %s  %s\n",
			a.Period,
			severityStyles[a.Severity].Render(fmt.Sprintf("%-8s", a.Severity)),
			subtleStyle.Render(fmt.Sprintf("%s of %s, %s", Comma(a.ObservedCount), Comma(a.Threshold), a.Message)))
	}
}

// PrintAnalysis writes frequency distribution and the trend detail of the top
// categories by average volume. top <= 0 prints every category.
func PrintAnalysis(w io.Writer, res *monitor.AnalysisResult, top int) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Analyzed %d categories", len(res.Frequencies))))

	dist := make(map[models.FrequencyCategory]int)
	for _, p := range res.Frequencies {
		dist[p.Category]++
	}
	cats := make([]string, 0, len(dist))
	for c := range dist {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	var rows []string
	for _, c := range cats {
		rows = append(rows, fmt.Sprintf("%-18s %d", c, dist[models.FrequencyCategory(c)]))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(rows, "\n")))
	fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("%d thresholded, %d with insufficient history",
		len(res.Thresholds), len(res.InsufficientHistory))))

	order := make([]int, len(res.Frequencies))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return res.Frequencies[order[a]].AvgVolume > res.Frequencies[order[b]].AvgVolume
	})
	if top > 0 && top < len(order) {
		order = order[:top]
	}
	for _, i := range order {
		fmt.Fprintln(w, frequency.Summary(res.Frequencies[i]))
		if i < len(res.Trends) {
			fmt.Fprint(w, trend.Summary(res.Trends[i]))
		}
	}
}
