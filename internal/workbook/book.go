package workbook

import (
	"slices"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// Book is an open workbook. Row 1 of every sheet is the header row; data
// rows start at row 2. Data-row indexes used by Book are 0-based positions
// in the slice returned by Rows, and column indexes are 0-based positions
// in the header.
type Book struct {
	file     *excelize.File
	path     string
	readOnly bool
}

// Path returns the file the book was loaded from.
func (b *Book) Path() string { return b.path }

// ReadOnly reports whether the book refuses saves.
func (b *Book) ReadOnly() bool { return b.readOnly }

// Sheets returns the sheet names in workbook order.
func (b *Book) Sheets() []string {
	return b.file.GetSheetList()
}

// HasSheet reports whether the workbook contains the named sheet.
func (b *Book) HasSheet(name string) bool {
	return slices.Contains(b.file.GetSheetList(), name)
}

// Header returns the header row of sheet, trailing blank cells trimmed.
func (b *Book) Header(sheet string) ([]string, error) {
	all, err := b.all(sheet)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// Rows returns the data rows of sheet. Rows may be shorter than the header;
// use Cell for bounds-safe access.
func (b *Book) Rows(sheet string) ([][]string, error) {
	all, err := b.all(sheet)
	if err != nil {
		return nil, err
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}

// AppendRow writes values into the first row after the last used one and
// returns its data-row index. Empty strings are left as blank cells.
func (b *Book) AppendRow(sheet string, values []any) (int, error) {
	all, err := b.all(sheet)
	if err != nil {
		return 0, err
	}
	rowNum := len(all) + 1
	if err := b.setRow(sheet, rowNum, values); err != nil {
		return 0, err
	}
	return rowNum - 2, nil
}

// SetCell overwrites one cell of a data row.
func (b *Book) SetCell(sheet string, dataRow, col int, value any) error {
	if !b.HasSheet(sheet) {
		return eris.Wrapf(ErrSheetMissing, "workbook: set cell in %s", sheet)
	}
	return b.setCell(sheet, dataRow+2, col, value)
}

// Close releases the file's temporary resources.
func (b *Book) Close() error {
	return b.file.Close()
}

func (b *Book) all(sheet string) ([][]string, error) {
	if !b.HasSheet(sheet) {
		return nil, eris.Wrapf(ErrSheetMissing, "workbook: read %s", sheet)
	}
	rows, err := b.file.GetRows(sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "workbook: read %s", sheet)
	}
	return rows, nil
}

// setRow writes values starting at column A of the 1-based sheet row.
func (b *Book) setRow(sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return eris.Wrapf(err, "workbook: row %d of %s", rowNum, sheet)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		cells[i] = v
	}
	if err := b.file.SetSheetRow(sheet, cell, &cells); err != nil {
		return eris.Wrapf(err, "workbook: write row %d of %s", rowNum, sheet)
	}
	return nil
}

// setCell writes one value at the 1-based sheet row and 0-based column.
func (b *Book) setCell(sheet string, rowNum, col int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
	if err != nil {
		return eris.Wrapf(err, "workbook: cell %d,%d of %s", rowNum, col, sheet)
	}
	if err := b.file.SetCellValue(sheet, cell, value); err != nil {
		return eris.Wrapf(err, "workbook: write %s!%s", sheet, cell)
	}
	return nil
}

// Cell returns row[i], or "" when the row is too short or i is negative.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
