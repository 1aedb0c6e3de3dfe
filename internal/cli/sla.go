package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jinzhu/now"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/api/dto"
)

const reportDateLayout = "2006-01-02"

// NewSweepCommand creates the sweep command.
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one SLA monitor pass and print the summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := contextWithTimeout(cmd, app.cfg.SLA.SweepTimeout())
			defer cancel()
			result, err := app.monitor.Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			for _, f := range result.Failures {
				app.logger.Warn("ticket skipped", zap.String("ticket_id", f.TicketID), zap.Error(f.Err))
			}
			return printJSON(cmd.OutOrStdout(), dto.NewSweepResponse(result))
		},
	}
}

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	Date string
}

// NewReportCommand creates the report command.
func NewReportCommand(opts *RootOptions) *cobra.Command {
	reportOpts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the daily SLA report for a calendar day",
		Long:  "Build the daily SLA report. Without --date the report covers yesterday.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reference, err := reportReference(reportOpts.Date, time.Now())
			if err != nil {
				return err
			}
			app, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.reporter.DailyReport(cmd.Context(), reference)
			if err != nil {
				return fmt.Errorf("daily report: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&reportOpts.Date, "date", "", "day to report on (YYYY-MM-DD)")

	return cmd
}

// reportReference turns the day to report on into the reference time the
// reporter expects, which is the start of the following day.
func reportReference(date string, current time.Time) (time.Time, error) {
	if date == "" {
		return current, nil
	}
	day, err := time.ParseInLocation(reportDateLayout, date, current.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
	}
	return now.With(day).BeginningOfDay().AddDate(0, 0, 1), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
