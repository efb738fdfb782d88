package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func monitorCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Check one period for volume drops and missing data",
		Long: `Check the period starting at --date (default: the most recent Monday) against
thresholds learned from all earlier periods. Writes alerts_YYYYMMDD.{csv,json},
report_YYYYMMDD.txt and exits with status 1 when any alert was raised.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checked, err := checkDate(date, time.Now())
			if err != nil {
				return err
			}

			r, err := newRunner(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer r.Close()

			res, err := r.check(cmd.Context(), "", checked)
			if err != nil {
				return err
			}
			if len(res.Alerts) > 0 {
				return &exitError{code: exitAlerts, msg: fmt.Sprintf("%d alerts raised", len(res.Alerts))}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "start of the period to check (YYYY-MM-DD)")
	return cmd
}
