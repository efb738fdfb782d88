package main

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/volwatch/internal/logger"
	"github.com/rewired-gh/volwatch/internal/monitor"
	"github.com/rewired-gh/volwatch/internal/report"
	"github.com/rewired-gh/volwatch/internal/series"
)

func analyzeCmd() *cobra.Command {
	var (
		top        int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Profile frequency, thresholds and trends for every category",
		Long: `Classify each category's reporting frequency, compute its dynamic threshold
from the full history and summarise its trend over the configured windows.
Writes frequency_analysis.csv, threshold_configuration.csv and trend_analysis.csv.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := cfg.AnalysisFor("")
			if err != nil {
				return err
			}

			all, err := loadSeries(cmd.Context(), cfg.Input)
			if err != nil {
				return err
			}

			var opts []monitor.Option
			if !noProgress {
				bar := progressbar.NewOptions(len(all),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("Analyzing categories..."),
					progressbar.OptionClearOnFinish(),
				)
				defer func() { _ = bar.Finish() }()
				opts = append(opts, monitor.WithProgress(func() { _ = bar.Add(1) }))
			}

			mon, err := monitor.New(settings, opts...)
			if err != nil {
				return err
			}

			_, ref := series.Span(all)
			start := time.Now()
			res, err := mon.Analyze(cmd.Context(), all, ref)
			if err != nil {
				return err
			}

			paths, err := report.Writer{Dir: cfg.Output.Dir}.WriteAnalysis(res)
			if err != nil {
				return err
			}
			for _, p := range paths {
				logger.Debug("Wrote %s", p)
			}

			report.PrintAnalysis(cmd.OutOrStdout(), res, top)
			logger.Info("Analysis of %d categories finished in %s, tables in %s",
				len(res.Frequencies), time.Since(start).Round(time.Millisecond), cfg.Output.Dir)
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "categories by volume to print trend detail for (0 = all)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}
