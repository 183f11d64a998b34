package outfmt

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kestcalc/kestcalc/kest"
)

// XLSXWriter collects every rendered table as a sheet of one workbook.
// Call Save once all tables have been printed.
type XLSXWriter struct {
	file       *excelize.File
	path       string
	sheetCount int
}

func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{
		file: excelize.NewFile(),
		path: path,
	}
}

// PrintRenderTable implements ReportWriter.
func (w *XLSXWriter) PrintRenderTable(outType OutputType, name string, tableModel *kest.RenderTable) error {
	var sheet string
	switch outType {
	case Ledger:
		sheet = name
	case Summary:
		sheet = "Summary"
	default:
		return fmt.Errorf("OutputType %v not implemented", outType)
	}

	// The workbook starts with a default sheet; reuse it for the first
	// table and add sheets for the rest.
	if w.sheetCount == 0 {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), sheet); err != nil {
			return fmt.Errorf("rename sheet %q: %w", sheet, err)
		}
	} else {
		if _, err := w.file.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	w.sheetCount++

	row := 1
	if err := w.writeRow(sheet, row, tableModel.Header); err != nil {
		return err
	}
	headerEnd, _ := excelize.CoordinatesToCellName(len(tableModel.Header), 1)
	boldStyle, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		w.file.SetCellStyle(sheet, "A1", headerEnd, boldStyle)
	}

	for _, r := range tableModel.Rows {
		row++
		if err := w.writeRow(sheet, row, r); err != nil {
			return err
		}
	}
	if len(tableModel.Footer) > 0 {
		row++
		if err := w.writeRow(sheet, row, tableModel.Footer); err != nil {
			return err
		}
	}
	for _, note := range tableModel.Notes {
		row += 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := w.file.SetCellValue(sheet, cell, note); err != nil {
			return fmt.Errorf("write note: %w", err)
		}
	}
	return nil
}

func (w *XLSXWriter) writeRow(sheet string, row int, values []string) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(sheet, cell, val); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}
	return nil
}

func (w *XLSXWriter) Save() error {
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %q: %w", w.path, err)
	}
	return w.file.Close()
}
