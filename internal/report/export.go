package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/extrememax/expo-feria/internal/model"
)

var (
	codeHeaders  = []string{model.ColCode, model.ColScore, model.ColDocument, model.ColName, model.ColPhone, model.ColType, model.ColStand}
	prizeHeaders = []string{model.ColCode, model.ColPrize, model.ColDocument, model.ColName, model.ColPhone, model.ColType, model.ColStand}
)

// WriteXLSX writes the view as a two-sheet workbook: codes ordered by
// score, then prizes in registry order.
func WriteXLSX(w io.Writer, v *View) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", model.SheetCodes); err != nil {
		return eris.Wrap(err, "report: rename sheet")
	}
	if _, err := f.NewSheet(model.SheetPrizes); err != nil {
		return eris.Wrap(err, "report: add prizes sheet")
	}

	codes := SortByScore(v.Codes)
	if err := streamSheet(f, model.SheetCodes, codeHeaders, len(codes), func(i int) []any {
		r := codes[i]
		return []any{r.Code, r.Score, r.Document, r.Name, r.Phone, r.Type, r.Stand}
	}); err != nil {
		return err
	}
	if err := streamSheet(f, model.SheetPrizes, prizeHeaders, len(v.Prizes), func(i int) []any {
		r := v.Prizes[i]
		return []any{r.Code, r.Prize, r.Document, r.Name, r.Phone, r.Type, r.Stand}
	}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

func streamSheet(f *excelize.File, sheet string, headers []string, n int, row func(int) []any) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return eris.Wrapf(err, "report: stream %s", sheet)
	}

	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := sw.SetRow("A1", head); err != nil {
		return eris.Wrapf(err, "report: %s header", sheet)
	}

	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return eris.Wrap(err, "report: cell name")
		}
		if err := sw.SetRow(cell, row(i)); err != nil {
			return eris.Wrapf(err, "report: %s row %d", sheet, i+2)
		}
	}
	if err := sw.Flush(); err != nil {
		return eris.Wrapf(err, "report: flush %s", sheet)
	}
	return nil
}
