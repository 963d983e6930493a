// Package dedupe warns when a submission looks like someone already
// registered. Matches are advisory and never block a write.
package dedupe

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/normalize"
	"github.com/extrememax/expo-feria/internal/store"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// Match is an existing person row sharing an identifier with the query.
type Match struct {
	Sheet string `json:"sheet"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

// Finder scans the person sheets of a store.
type Finder struct {
	store store.RowStore
}

// NewFinder returns a Finder over s.
func NewFinder(s store.RowStore) *Finder {
	return &Finder{store: s}
}

// Find returns every person row whose normalized document, email or phone
// equals the corresponding non-empty input. Blank inputs never match.
func (f *Finder) Find(ctx context.Context, id, email, phone string) ([]Match, error) {
	id = normalize.ID(id)
	email = normalize.Email(email)
	phone = normalize.Phone(phone)

	var out []Match
	if id == "" && email == "" && phone == "" {
		return out, nil
	}

	for _, sheet := range model.PersonSheets {
		tbl, err := f.store.ScanRows(ctx, sheet)
		if err != nil {
			return nil, eris.Wrapf(err, "dedupe: scan %s", sheet)
		}
		out = append(out, scan(tbl, id, email, phone)...)
	}
	return out, nil
}

func scan(tbl *store.Table, id, email, phone string) []Match {
	cols := tbl.Columns()
	var (
		idCol    = cols.Find("CEDULA", "RUC")
		phoneCol = cols.Find(model.ColPhone)
		emailCol = cols.Find(model.ColEmail)
		codeCol  = cols.Find(model.ColCode)
		nameCol  = cols.Find(model.ColName)
	)

	var out []Match
	for _, row := range tbl.Rows {
		hit := (id != "" && idCol >= 0 && normalize.ID(workbook.Cell(row, idCol)) == id) ||
			(email != "" && emailCol >= 0 && normalize.Email(workbook.Cell(row, emailCol)) == email) ||
			(phone != "" && phoneCol >= 0 && normalize.Phone(workbook.Cell(row, phoneCol)) == phone)
		if !hit {
			continue
		}
		out = append(out, Match{
			Sheet: tbl.Sheet,
			Code:  workbook.Cell(row, codeCol),
			Name:  workbook.Cell(row, nameCol),
		})
	}
	return out
}
