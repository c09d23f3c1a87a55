package commands

import (
	"clinicstaff/internal/reports"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type reportFlags struct {
	from, to    string
	doctorID    string
	specialtyID string
	groupBy     string
	format      string
	output      string
}

func (f reportFlags) query() (reports.Query, error) {
	from, err := reports.ParseDate(f.from)
	if err != nil {
		return reports.Query{}, fmt.Errorf("--from: %w", err)
	}
	to, err := reports.ParseDate(f.to)
	if err != nil {
		return reports.Query{}, fmt.Errorf("--to: %w", err)
	}
	return reports.Query{
		From:        from,
		To:          to,
		DoctorID:    f.doctorID,
		SpecialtyID: f.specialtyID,
		GroupBy:     reports.GroupBy(f.groupBy),
	}.Normalize()
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the productivity report",
		Long: `report consolidates shifts and encounters in the given range and
writes the productivity report to stdout or to --output.`,
		Example: `  clinicstaff report --from 2024-04-01 --to 2024-05-01 --group-by specialty
  clinicstaff report --format xlsx --output produtividade.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := f.query()
			if err != nil {
				return fail(a.printer, "Invalid report query", err, "Dates use YYYY-MM-DD; --group-by is doctor, specialty, month or unit.")
			}
			format, err := reports.ParseFormat(f.format)
			if err != nil {
				return fail(a.printer, "Invalid --format", err)
			}
			if f.output == "" && (format == reports.FormatXLSX || format == reports.FormatPDF) {
				return fail(a.printer, "Binary format needs --output", fmt.Errorf("%s output cannot go to the terminal", format))
			}
			rep, err := a.service().Productivity(cmd.Context(), q)
			if err != nil {
				return fail(a.printer, "Report failed", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if f.output != "" {
				file, err := os.Create(f.output)
				if err != nil {
					return fail(a.printer, "Cannot create output file", err)
				}
				defer file.Close()
				w = file
			}
			if err := reports.Render(w, rep, format); err != nil {
				return fail(a.printer, "Rendering failed", err)
			}
			if f.output != "" {
				a.printer.Success("wrote %d rows to %s", len(rep.Rows), f.output)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.from, "from", "", "range start (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&f.to, "to", "", "range end, exclusive")
	flags.StringVar(&f.doctorID, "doctor", "", "restrict to one doctor id")
	flags.StringVar(&f.specialtyID, "specialty", "", "restrict to one specialty id")
	flags.StringVar(&f.groupBy, "group-by", string(reports.GroupByDoctor), "doctor, specialty, month or unit")
	flags.StringVarP(&f.format, "format", "f", string(reports.FormatCSV), "json, csv, xlsx or pdf")
	flags.StringVarP(&f.output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
