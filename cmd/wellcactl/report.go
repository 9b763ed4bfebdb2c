package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mamadbah2/wellca/internal/chart"
	"github.com/mamadbah2/wellca/internal/dashboard"
	"github.com/mamadbah2/wellca/internal/export"
	"github.com/mamadbah2/wellca/internal/service/reporting"
)

type reportOptions struct {
	start       string
	end         string
	granularity string
	pngPath     string
	xlsxPath    string
	jsonOutput  bool
}

func newReportCmd(opts *globalOptions) *cobra.Command {
	ro := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a report over a date range",
		Long: `Fetch every record between --start and --end, print the totals and the
monthly service breakdown, and optionally write the chart as PNG and the
full report as an XLSX workbook.`,
		Example: `  wellcactl report --start 2024-01-01 --end 2024-01-31 --granularity weekly --png chart.png --xlsx report.xlsx`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts, ro)
		},
	}

	cmd.Flags().StringVar(&ro.start, "start", "", "first day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ro.end, "end", "", "last day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&ro.granularity, "granularity", "g", "daily", "chart buckets: daily, weekly or monthly")
	cmd.Flags().StringVar(&ro.pngPath, "png", "", "write the chart to this PNG file")
	cmd.Flags().StringVar(&ro.xlsxPath, "xlsx", "", "write the report to this XLSX file")
	cmd.Flags().BoolVar(&ro.jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func runReport(cmd *cobra.Command, opts *globalOptions, ro *reportOptions) error {
	if verr := dashboard.ValidateRange(ro.start, ro.end); verr != nil {
		return verr
	}
	granularity, err := reporting.ParseGranularity(ro.granularity)
	if err != nil {
		return err
	}

	cfg, log, err := opts.load(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	client := newClient(cmd.Context(), cmd, cfg, false)
	svc := reporting.NewService(client, nil, nil, cfg.Reporting.Location(), log.Named("svc.reporting"))

	report, dataset, err := svc.Build(cmd.Context(), ro.start, ro.end)
	if err != nil {
		return err
	}
	series := reporting.Bucket(report.TimeSeries, granularity)

	out := cmd.OutOrStdout()
	if ro.jsonOutput {
		if err := printJSON(cmd, struct {
			Report reporting.Report  `json:"report"`
			Series []reporting.Point `json:"series"`
		}{report, series}); err != nil {
			return err
		}
	} else {
		printReport(out, report, ro.start, ro.end)
	}

	if ro.pngPath != "" {
		renderer := chart.NewRenderer(cfg.Reporting.ChartWidth, cfg.Reporting.ChartHeight, log.Named("chart"))
		if _, err := renderer.Render(series); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := renderer.WritePNG(&buf); err != nil {
			return err
		}
		renderer.Dispose()
		if err := os.WriteFile(ro.pngPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("wellcactl: write chart: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "chart written to %s\n", ro.pngPath)
	}

	if ro.xlsxPath != "" {
		workbook, err := export.BuildWorkbook(report, series, dataset, ro.start, ro.end)
		if err != nil {
			return err
		}
		err = writeFile(ro.xlsxPath, func(w io.Writer) error { return export.Write(w, workbook) })
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "workbook written to %s\n", ro.xlsxPath)
	}
	return nil
}

// writeFile creates path, fills it with write and removes it again when
// either the write or the close fails.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wellcactl: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("wellcactl: close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return write(f)
}

func printReport(out io.Writer, report reporting.Report, start, end string) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(out, reporting.Summary(report, start, end))
	fmt.Fprintln(out)

	t := report.Totals
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Entries\t%d\n", t.Entries)
	fmt.Fprintf(tw, "Deliveries\t%d\t(Purolator %d, FedEx %d, 1Courier %d, GoBolt %d)\n", t.Deliveries, t.Purolator, t.Fedex, t.OneCourier, t.GoBolt)
	fmt.Fprintf(tw, "Rx filled\t%d\t(new %d, refill %d, re-auth %d)\n", t.Rx, t.NewRx, t.Refill, t.ReAuth)
	fmt.Fprintf(tw, "Rx processed\t%d\t(hold %d)\n", t.Processed, t.Hold)
	fmt.Fprintf(tw, "Profiles entered\t%d\n", t.ProfilesEntered)
	fmt.Fprintf(tw, "Services\t%d\t$%s\n", t.Services, t.ServiceCost.StringFixed(2))
	fmt.Fprintf(tw, "Avg profiles entered\t%s\n", report.Weekly.AvgProfilesEntered.StringFixed(2))
	fmt.Fprintf(tw, "Avg active %%\t%s\n", report.Weekly.AvgActivePercentage.StringFixed(2))
	for _, stat := range report.ServiceStats.Services {
		fmt.Fprintf(tw, "  %s\t%d\t$%s\n", stat.Label, stat.Count, stat.Revenue.StringFixed(2))
	}
	_ = tw.Flush()

	if len(report.Breakdown.Months) == 0 {
		return
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, month := range report.Breakdown.Months {
		fmt.Fprintf(tw, "%s\t\t$%s\n", bold.Sprint(month.Label), month.Total.StringFixed(2))
		for _, group := range month.Services {
			fmt.Fprintf(tw, "  %s\t%d\t$%s\n", group.Label, len(group.Entries), group.Subtotal.StringFixed(2))
		}
	}
	fmt.Fprintf(tw, "Grand total\t\t$%s\n", report.Breakdown.GrandTotal.StringFixed(2))
	_ = tw.Flush()
}
