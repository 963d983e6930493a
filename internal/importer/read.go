// Package importer loads reference tables from other spreadsheets into the
// intake store.
package importer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/extrememax/expo-feria/internal/model"
)

// ReadOptions selects the table inside a source file.
type ReadOptions struct {
	SheetName string // xlsx only; default is a sheet named PROVINCIA, else the first
	Delimiter rune   // csv only; default ','
}

// ReadTable returns the header row and the data rows of an .xlsx or .csv
// file. Blank rows are dropped.
func ReadTable(path string, opts ReadOptions) ([]string, [][]string, error) {
	var (
		all [][]string
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		all, err = readXLSX(path, opts)
	case ".csv", ".txt":
		all, err = readCSV(path, opts)
	default:
		return nil, nil, eris.Errorf("importer: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for _, r := range all {
		if !blank(r) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, nil, eris.Errorf("importer: %s has no rows", path)
	}
	return rows[0], rows[1:], nil
}

func readXLSX(path string, opts ReadOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}

	sheet, err := pickSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("importer: sheet %q not found", name)
		}
		return sheet, nil
	}
	if sheet, ok := f.Sheet[model.SheetLocations]; ok {
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func readCSV(path string, opts ReadOptions) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open csv")
	}
	defer fh.Close() //nolint:errcheck

	r := csv.NewReader(fh)
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "importer: read csv")
		}
		rows = append(rows, rec)
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
