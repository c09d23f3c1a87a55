package reports

import (
	"clinicstaff/pkg/domain"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// Format names a report rendering.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Formats lists every renderer.
var Formats = []Format{FormatJSON, FormatCSV, FormatXLSX, FormatPDF}

// ParseFormat resolves a format name; empty selects JSON.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSON, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported report format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Extension returns the file extension, without the dot.
func (f Format) Extension() string { return string(f) }

// Render writes rep to w in format f.
func Render(w io.Writer, rep Report, f Format) error {
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatCSV:
		return renderCSV(w, rep)
	case FormatXLSX:
		return renderXLSX(w, rep)
	case FormatPDF:
		return renderPDF(w, rep)
	default:
		return fmt.Errorf("unsupported report format %q", f)
	}
}

func header() []string {
	cols := []string{"group", "label", "shifts", "completed_shifts", "cancelled_shifts",
		"scheduled_hours", "worked_hours", "encounters", "encounters_per_hour"}
	for _, k := range domain.EncounterKinds {
		cols = append(cols, string(k))
	}
	return cols
}

func record(r Row) []string {
	rec := []string{
		r.Key,
		r.Label,
		strconv.Itoa(r.Shifts),
		strconv.Itoa(r.CompletedShifts),
		strconv.Itoa(r.CancelledShifts),
		formatHours(r.ScheduledHours),
		formatHours(r.WorkedHours),
		strconv.Itoa(r.Encounters),
		strconv.FormatFloat(r.EncountersPerHour, 'f', 2, 64),
	}
	for _, k := range domain.EncounterKinds {
		rec = append(rec, strconv.Itoa(r.ByKind[k]))
	}
	return rec
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 1, 64)
}

func renderCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return err
	}
	for _, r := range rep.Rows {
		if err := cw.Write(record(r)); err != nil {
			return err
		}
	}
	if err := cw.Write(record(rep.Totals)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

const xlsxSheet = "Produtividade"

func renderXLSX(w io.Writer, rep Report) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	cols := header()
	if err := writeXLSXRow(f, 1, toAny(cols)); err != nil {
		return err
	}
	row := 2
	for _, r := range rep.Rows {
		if err := writeXLSXRow(f, row, xlsxValues(r)); err != nil {
			return err
		}
		row++
	}
	if err := writeXLSXRow(f, row, xlsxValues(rep.Totals)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(xlsxSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	totalFirst, _ := excelize.CoordinatesToCellName(1, row)
	totalLast, _ := excelize.CoordinatesToCellName(len(cols), row)
	if err := f.SetCellStyle(xlsxSheet, totalFirst, totalLast, bold); err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	if err := f.SetColWidth(xlsxSheet, "B", "B", 32); err != nil {
		return fmt.Errorf("xlsx width: %w", err)
	}
	return f.Write(w)
}

func xlsxValues(r Row) []any {
	vals := []any{r.Key, r.Label, r.Shifts, r.CompletedShifts, r.CancelledShifts,
		round1(r.ScheduledHours), round1(r.WorkedHours), r.Encounters, round2(r.EncountersPerHour)}
	for _, k := range domain.EncounterKinds {
		vals = append(vals, r.ByKind[k])
	}
	return vals
}

func writeXLSXRow(f *excelize.File, row int, vals []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(xlsxSheet, cell, &vals); err != nil {
		return fmt.Errorf("xlsx row %d: %w", row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func round1(v float64) float64 { return float64(int64(v*10+0.5)) / 10 }
func round2(v float64) float64 { return float64(int64(v*100+0.5)) / 100 }

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Grupo", 80, "L"},
	{"Plantões", 22, "R"},
	{"Realizados", 24, "R"},
	{"Cancelados", 24, "R"},
	{"Horas prev.", 26, "R"},
	{"Horas trab.", 26, "R"},
	{"Atendimentos", 30, "R"},
	{"Atend./h", 22, "R"},
}

func renderPDF(w io.Writer, rep Report) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCreationDate(rep.GeneratedAt)
	pdf.SetTitle("Relatório de produtividade", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr("Relatório de produtividade"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr(describeQuery(rep.Query)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 7, tr(col.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rep.Rows {
		pdfRow(pdf, tr, r)
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdfRow(pdf, tr, rep.Totals)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func pdfRow(pdf *fpdf.Fpdf, tr func(string) string, r Row) {
	cells := []string{
		r.Label,
		strconv.Itoa(r.Shifts),
		strconv.Itoa(r.CompletedShifts),
		strconv.Itoa(r.CancelledShifts),
		formatHours(r.ScheduledHours),
		formatHours(r.WorkedHours),
		strconv.Itoa(r.Encounters),
		strconv.FormatFloat(r.EncountersPerHour, 'f', 2, 64),
	}
	for i, col := range pdfColumns {
		pdf.CellFormat(col.width, 6, tr(cells[i]), "1", 0, col.align, false, 0, "")
	}
	pdf.Ln(-1)
}

func describeQuery(q Query) string {
	from, to := "início", "hoje"
	if !q.From.IsZero() {
		from = q.From.Format("02/01/2006")
	}
	if !q.To.IsZero() {
		to = q.To.Add(-time.Nanosecond).Format("02/01/2006")
	}
	return fmt.Sprintf("Período: %s a %s | Agrupado por: %s", from, to, q.GroupBy)
}
