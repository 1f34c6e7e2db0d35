package compose

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/studiolegale/fascicolo/internal/common"
	"github.com/studiolegale/fascicolo/internal/repository"
)

// ExportBillingXLSX returns an XLSX workbook (as bytes) listing the
// case's document snapshots with their pricing metadata, one row per
// generated document.
func ExportBillingXLSX(c *repository.Case, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Documenti"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Data",
		"Titolo",
		"Origine",
		"Modello",
		"Moltiplicatore",
		"Token input",
		"Token output",
		"Quota fissa",
		"Quota variabile",
		"Prezzo finale",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, snap := range c.GeneratedDocs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		if !snap.CreatedAt.IsZero() {
			write(1, snap.CreatedAt.Format("2006-01-02"))
		} else {
			write(1, "")
		}
		write(2, common.Truncate(snap.Title, 140))
		write(3, snap.Origin)
		write(4, snap.Model)
		write(5, snap.Multiplier)
		write(6, snap.InputTokens)
		write(7, snap.OutputTokens)
		write(8, snap.FixedPart)
		write(9, snap.VariablePart)
		write(10, snap.FinalPrice)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 42)
	_ = f.SetColWidth(sheet, "C", "D", 18)
	_ = f.SetColWidth(sheet, "E", "J", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("compose.export.ok",
		"case_id", c.ID.String(),
		"rows", len(c.GeneratedDocs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
