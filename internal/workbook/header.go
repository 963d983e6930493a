package workbook

import (
	"strings"

	"github.com/extrememax/expo-feria/internal/normalize"
)

// HeaderMap indexes a header row by normalized header text.
type HeaderMap struct {
	keys []string
}

// NewHeaderMap normalizes every header cell with normalize.Text.
func NewHeaderMap(header []string) HeaderMap {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalize.Text(h)
	}
	return HeaderMap{keys: keys}
}

// Len returns the number of header columns.
func (m HeaderMap) Len() int { return len(m.keys) }

// Index returns the first column whose header normalizes to the same text
// as name, or -1.
func (m HeaderMap) Index(name string) int {
	key := normalize.Text(name)
	for i, k := range m.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Columns returns every column whose header normalizes to the same text as
// name, in column order.
func (m HeaderMap) Columns(name string) []int {
	key := normalize.Text(name)
	var cols []int
	for i, k := range m.keys {
		if k == key {
			cols = append(cols, i)
		}
	}
	return cols
}

// Find returns the first column, scanning left to right, whose normalized
// header contains any of the candidates as a substring, or -1. Candidates
// must already be in normalized form. Find("NOMBRE") on a mechanic sheet
// picks NOMBRE Y APELLIDO because it comes before NOMBRE DE LA MECÁNICA.
func (m HeaderMap) Find(cands ...string) int {
	for i, k := range m.keys {
		if k == "" {
			continue
		}
		for _, c := range cands {
			if strings.Contains(k, c) {
				return i
			}
		}
	}
	return -1
}
