package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/validate"
)

const (
	scheduleSheet = "Schedule"
	warningsSheet = "Warnings"
)

// Schedule is an extracted installment plan ready for export.
type Schedule struct {
	Document     string               `json:"document"`
	Currency     string               `json:"currency"`
	Installments []entity.Installment `json:"installments"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// Service renders schedules as XLSX workbooks or CSV.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

var headers = []string{
	"Seq", "Due Date", "Amount", "Amount (display)", "Tributo", "Anno",
	"Debito", "Interessi", "Description", "Notes", "Source",
}

// ScheduleXLSX returns XLSX bytes with the schedule on one sheet and the
// validation warnings on a second one.
func (s *Service) ScheduleXLSX(ctx context.Context, sch Schedule) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", scheduleSheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(scheduleSheet, cell, h)
	}

	for i, inst := range sch.Installments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(scheduleSheet, cell, v)
		}

		if inst.Seq > 0 {
			write(1, inst.Seq)
		}
		write(2, inst.DueDate)
		write(3, inst.Amount.InexactFloat64())
		write(4, validate.Display(inst.Amount, sch.Currency))
		write(5, inst.Tributo)
		write(6, inst.Anno)
		if inst.Debito != nil {
			write(7, inst.Debito.InexactFloat64())
		}
		if inst.Interessi != nil {
			write(8, inst.Interessi.InexactFloat64())
		}
		write(9, truncate(inst.Description, 140))
		write(10, inst.Notes)
		write(11, string(inst.Source))
	}

	if n := len(sch.Installments); n > 0 {
		total := decimal.Zero
		for _, inst := range sch.Installments {
			total = total.Add(inst.Amount)
		}
		row := n + 2
		cell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(scheduleSheet, cell, "Total")
		cell, _ = excelize.CoordinatesToCellName(3, row)
		_ = f.SetCellFormula(scheduleSheet, cell, fmt.Sprintf("SUM(C2:C%d)", row-1))
		cell, _ = excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellValue(scheduleSheet, cell, validate.Display(total, sch.Currency))
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err == nil {
		_ = f.SetColStyle(scheduleSheet, "C", style)
		_ = f.SetColStyle(scheduleSheet, "G:H", style)
	}
	_ = f.SetColWidth(scheduleSheet, "A", "A", 6)
	_ = f.SetColWidth(scheduleSheet, "B", "B", 12)
	_ = f.SetColWidth(scheduleSheet, "C", "D", 16)
	_ = f.SetColWidth(scheduleSheet, "G", "H", 14)
	_ = f.SetColWidth(scheduleSheet, "I", "I", 48)

	if _, err := f.NewSheet(warningsSheet); err != nil {
		return nil, err
	}
	_ = f.SetCellValue(warningsSheet, "A1", "Warning")
	for i, w := range sch.Warnings {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetCellValue(warningsSheet, cell, w)
	}
	_ = f.SetColWidth(warningsSheet, "A", "A", 90)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"document", sch.Document,
		"rows", len(sch.Installments),
		"warnings", len(sch.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

type csvRow struct {
	Seq         string `csv:"seq"`
	DueDate     string `csv:"due_date"`
	Amount      string `csv:"amount"`
	Tributo     string `csv:"tributo"`
	Anno        string `csv:"anno"`
	Debito      string `csv:"debito"`
	Interessi   string `csv:"interessi"`
	Description string `csv:"description"`
	Notes       string `csv:"notes"`
	Source      string `csv:"source"`
}

// ScheduleCSV writes one row per installment. Amounts use a dot decimal
// separator and two digits.
func (s *Service) ScheduleCSV(ctx context.Context, sch Schedule, w io.Writer) error {
	rows := make([]*csvRow, 0, len(sch.Installments))
	for _, inst := range sch.Installments {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := &csvRow{
			DueDate:     inst.DueDate,
			Amount:      inst.Amount.StringFixed(2),
			Tributo:     inst.Tributo,
			Anno:        inst.Anno,
			Description: inst.Description,
			Notes:       inst.Notes,
			Source:      string(inst.Source),
		}
		if inst.Seq > 0 {
			r.Seq = strconv.Itoa(inst.Seq)
		}
		if inst.Debito != nil {
			r.Debito = inst.Debito.StringFixed(2)
		}
		if inst.Interessi != nil {
			r.Interessi = inst.Interessi.StringFixed(2)
		}
		rows = append(rows, r)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	s.logger.Info("export.csv.ok", "document", sch.Document, "rows", len(rows))
	return nil
}

// WriteFile picks the format from the extension of path; see
// constants.ExportFormats.
func (s *Service) WriteFile(ctx context.Context, path string, sch Schedule) error {
	var buf bytes.Buffer
	switch constants.NormalizeExt(filepath.Ext(path)) {
	case "xlsx":
		b, err := s.ScheduleXLSX(ctx, sch)
		if err != nil {
			return err
		}
		buf.Write(b)
	case "csv":
		if err := s.ScheduleCSV(ctx, sch, &buf); err != nil {
			return err
		}
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sch); err != nil {
			return fmt.Errorf("json write: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
