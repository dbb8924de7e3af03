package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Excel caps sheet names at 31 characters.
const maxSheetNameLen = 31

// ExcelizeWriter is the excelize-backed ExcelWriter. It tracks one active
// sheet and a write cursor; AddSheet resets the cursor to the first row.
type ExcelizeWriter struct {
	file        *excelize.File
	sheet       string
	row         int
	headerStyle int
}

// NewExcelizeWriter creates a writer over a fresh workbook.
func NewExcelizeWriter() ExcelWriter {
	return &ExcelizeWriter{file: excelize.NewFile()}
}

func (w *ExcelizeWriter) AddSheet(name string) error {
	if len(name) > maxSheetNameLen {
		name = name[:maxSheetNameLen]
	}

	// A new workbook always starts with "Sheet1"; the first AddSheet claims
	// it instead of leaving an empty default sheet behind.
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename default sheet to %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.sheet = name
	w.row = 1
	return nil
}

func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	row := make([]interface{}, len(columns))
	for i, col := range columns {
		row[i] = col
	}
	headerRow := w.row
	if err := w.WriteRow(row); err != nil {
		return err
	}

	style, err := w.boldStyle()
	if err != nil {
		return nil // header stays plain, data is intact
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(columns), headerRow)
	_ = w.file.SetCellStyle(w.sheet, first, last, style)
	return nil
}

func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return fmt.Errorf("cell coordinates (%d,%d): %w", i+1, w.row, err)
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}

	w.row++
	return nil
}

func (w *ExcelizeWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *ExcelizeWriter) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

// boldStyle lazily creates the shared header style.
func (w *ExcelizeWriter) boldStyle() (int, error) {
	if w.headerStyle != 0 {
		return w.headerStyle, nil
	}
	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, err
	}
	w.headerStyle = style
	return style, nil
}
