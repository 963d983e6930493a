// Package report reads the registry sheets into typed rows and implements
// the lookup views: substring search, top scores and a score summary.
package report

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/normalize"
	"github.com/extrememax/expo-feria/internal/store"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// DefaultTopN is the size of the leaderboard when no size is given.
const DefaultTopN = 10

// DefaultFields are the columns searched by FilterByQuery.
var DefaultFields = []string{model.ColCode, model.ColDocument, model.ColName, model.ColPhone, model.ColStand}

// Row is a registry row that can be searched by header.
type Row interface {
	Field(header string) string
}

// View is the registry of codes and the registry of prizes read together.
type View struct {
	Codes  []model.CodeRow  `json:"codes"`
	Prizes []model.PrizeRow `json:"prizes"`
}

// LoadCodes reads the registry of codes. Every row with at least one value
// is kept, blank code included; missing columns read as empty and an
// unreadable score as 0.
func LoadCodes(ctx context.Context, s store.RowStore) ([]model.CodeRow, error) {
	tbl, err := s.ScanRows(ctx, model.SheetCodes)
	if err != nil {
		return nil, eris.Wrap(err, "report: load codes")
	}
	cols := tbl.Columns()
	var (
		codeCol  = cols.Find(model.ColCode)
		scoreCol = cols.Find(model.ColScore)
		docCol   = cols.Find(model.ColDocument)
		nameCol  = cols.Find(model.ColName)
		phoneCol = cols.Find(model.ColPhone)
		typeCol  = cols.Find(model.ColType)
		standCol = cols.Find(model.ColStand)
	)

	out := make([]model.CodeRow, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if emptyRow(row) {
			continue
		}
		out = append(out, model.CodeRow{
			Code:     strings.TrimSpace(workbook.Cell(row, codeCol)),
			Score:    ParseScore(workbook.Cell(row, scoreCol)),
			Document: strings.TrimSpace(workbook.Cell(row, docCol)),
			Name:     strings.TrimSpace(workbook.Cell(row, nameCol)),
			Phone:    strings.TrimSpace(workbook.Cell(row, phoneCol)),
			Type:     strings.TrimSpace(workbook.Cell(row, typeCol)),
			Stand:    strings.TrimSpace(workbook.Cell(row, standCol)),
		})
	}
	return out, nil
}

// LoadPrizes reads the registry of prizes, keeping rows the same way as
// LoadCodes.
func LoadPrizes(ctx context.Context, s store.RowStore) ([]model.PrizeRow, error) {
	tbl, err := s.ScanRows(ctx, model.SheetPrizes)
	if err != nil {
		return nil, eris.Wrap(err, "report: load prizes")
	}
	cols := tbl.Columns()
	var (
		codeCol  = cols.Find(model.ColCode)
		prizeCol = cols.Find(model.ColPrize)
		docCol   = cols.Find(model.ColDocument)
		nameCol  = cols.Find(model.ColName)
		phoneCol = cols.Find(model.ColPhone)
		typeCol  = cols.Find(model.ColType)
		standCol = cols.Find(model.ColStand)
	)

	out := make([]model.PrizeRow, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if emptyRow(row) {
			continue
		}
		out = append(out, model.PrizeRow{
			Code:     strings.TrimSpace(workbook.Cell(row, codeCol)),
			Prize:    strings.TrimSpace(workbook.Cell(row, prizeCol)),
			Document: strings.TrimSpace(workbook.Cell(row, docCol)),
			Name:     strings.TrimSpace(workbook.Cell(row, nameCol)),
			Phone:    strings.TrimSpace(workbook.Cell(row, phoneCol)),
			Type:     strings.TrimSpace(workbook.Cell(row, typeCol)),
			Stand:    strings.TrimSpace(workbook.Cell(row, standCol)),
		})
	}
	return out, nil
}

func emptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// LoadAll reads both registries concurrently.
func LoadAll(ctx context.Context, s store.RowStore) (*View, error) {
	v := &View{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		v.Codes, err = LoadCodes(gctx, s)
		return err
	})
	g.Go(func() error {
		var err error
		v.Prizes, err = LoadPrizes(gctx, s)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseScore reads a score cell: an integer, a decimal truncated toward
// zero, or 0 for anything else.
func ParseScore(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

// FilterByQuery keeps rows where any of fields contains query, ignoring
// case, accents and surrounding space. No fields means DefaultFields. An
// empty query returns rows unchanged.
func FilterByQuery[T Row](rows []T, query string, fields ...string) []T {
	q := normalize.Text(query)
	if q == "" {
		return rows
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}

	out := make([]T, 0, len(rows))
	for _, r := range rows {
		for _, f := range fields {
			if strings.Contains(normalize.Text(r.Field(f)), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SortByScore returns a copy of rows ordered by score, highest first. Ties
// keep their registry order.
func SortByScore(rows []model.CodeRow) []model.CodeRow {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b model.CodeRow) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// TopN returns the n highest scores. n <= 0 means DefaultTopN.
func TopN(rows []model.CodeRow, n int) []model.CodeRow {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := SortByScore(rows)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
