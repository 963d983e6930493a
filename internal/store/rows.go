package store

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/normalize"
	"github.com/extrememax/expo-feria/internal/workbook"
)

func checkSheet(schema *model.Schema, sheet string) (model.SheetSchema, error) {
	sh, ok := schema.Sheet(sheet)
	if !ok {
		return model.SheetSchema{}, eris.Wrapf(ErrUnknownSheet, "store: sheet %q", sheet)
	}
	return sh, nil
}

func normalizedRecord(rec model.Record) map[string]string {
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[normalize.Text(k)] = v
	}
	return out
}

// layout places rec's values under header. A key fills every column whose
// header shares its normalized text.
func layout(header []string, rec model.Record) []string {
	byKey := normalizedRecord(rec)
	row := make([]string, len(header))
	for i, h := range header {
		if v, ok := byKey[normalize.Text(h)]; ok {
			row[i] = v
		}
	}
	return row
}

// merge overwrites the columns of row named in rec and returns the updated
// row, padded to the header width. The second result lists changed columns.
func merge(header, row []string, rec model.Record) ([]string, []int) {
	byKey := normalizedRecord(rec)
	out := make([]string, max(len(header), len(row)))
	copy(out, row)

	var changed []int
	for i, h := range header {
		if v, ok := byKey[normalize.Text(h)]; ok {
			out[i] = v
			changed = append(changed, i)
		}
	}
	return out, changed
}

// keyColumn prefers an exact header match and falls back to substring.
func keyColumn(m workbook.HeaderMap, keyHeader string) int {
	if i := m.Index(keyHeader); i >= 0 {
		return i
	}
	return m.Find(normalize.Text(keyHeader))
}

func sameKey(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// findRow returns the index of the first row whose col cell matches key.
func findRow(rows [][]string, col int, key string) int {
	for i, row := range rows {
		if sameKey(workbook.Cell(row, col), key) {
			return i
		}
	}
	return -1
}

func withKey(rec model.Record, keyHeader, key string) model.Record {
	out := maps.Clone(rec)
	if out == nil {
		out = model.Record{}
	}
	out[keyHeader] = key
	return out
}

// missingHeaders lists canonical headers absent (after normalization) from
// existing, in canonical order. A sheet without headers gets the canonical
// list verbatim, duplicates included.
func missingHeaders(existing, canonical []string) []string {
	if len(existing) == 0 {
		return slices.Clone(canonical)
	}
	present := make(map[string]bool, len(existing))
	for _, h := range existing {
		present[normalize.Text(h)] = true
	}
	var out []string
	for _, h := range canonical {
		k := normalize.Text(h)
		if present[k] {
			continue
		}
		present[k] = true
		out = append(out, h)
	}
	return out
}

// cellValue stores score and age columns as numbers so spreadsheet formulas
// work on them. Everything else, digits included, stays text.
func cellValue(header, v string) any {
	switch normalize.Text(header) {
	case model.ColScore, model.ColAge:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return v
}

func cellValues(header, row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = cellValue(workbook.Cell(header, i), v)
	}
	return out
}
