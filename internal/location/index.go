// Package location builds the Province → Canton → Parish lookup used by the
// intake forms from the PROVINCIA reference sheet.
package location

import (
	"slices"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/normalize"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// Index maps normalized province and canton names to sorted parishes.
// The zero value is an empty index.
type Index struct {
	tree map[string]map[string][]string
}

// Build reads the reference rows. A blank province or canton cell repeats
// the last non-blank value above it; rows before the first known province
// and canton are skipped. A header without PROVINCIA or CANTON/CIUDAD
// yields an empty index.
func Build(header []string, rows [][]string) *Index {
	idx := &Index{tree: make(map[string]map[string][]string)}

	cols := workbook.NewHeaderMap(header)
	pi := cols.Index(model.ColProvince)
	ci := cols.Index(model.ColCanton)
	if pi < 0 || ci < 0 {
		return idx
	}
	ri := cols.Index(model.ColParish)

	seen := make(map[string]map[string]map[string]bool)
	var lastP, lastC string
	for _, row := range rows {
		p := normalize.Text(workbook.Cell(row, pi))
		c := normalize.Text(workbook.Cell(row, ci))
		if p == "" {
			p = lastP
		}
		if c == "" {
			c = lastC
		}
		if p == "" || c == "" {
			continue
		}
		lastP, lastC = p, c

		cantons, ok := idx.tree[p]
		if !ok {
			cantons = make(map[string][]string)
			idx.tree[p] = cantons
			seen[p] = make(map[string]map[string]bool)
		}
		if _, ok := cantons[c]; !ok {
			cantons[c] = nil
			seen[p][c] = make(map[string]bool)
		}

		if ri < 0 {
			continue
		}
		parish := normalize.Text(workbook.Cell(row, ri))
		if parish == "" || seen[p][c][parish] {
			continue
		}
		seen[p][c][parish] = true
		cantons[c] = append(cantons[c], parish)
	}

	for _, cantons := range idx.tree {
		for c, parishes := range cantons {
			slices.Sort(parishes)
			cantons[c] = parishes
		}
	}
	return idx
}

// Provinces returns every province, sorted.
func (x *Index) Provinces() []string {
	if x == nil {
		return []string{}
	}
	return sortedKeys(x.tree)
}

// Cantons returns the cantons of prov, sorted. Unknown provinces give an
// empty list.
func (x *Index) Cantons(prov string) []string {
	if x == nil {
		return []string{}
	}
	return sortedKeys(x.tree[normalize.Text(prov)])
}

// Parishes returns the parishes of a canton, sorted.
func (x *Index) Parishes(prov, canton string) []string {
	if x == nil {
		return []string{}
	}
	parishes := x.tree[normalize.Text(prov)][normalize.Text(canton)]
	if parishes == nil {
		return []string{}
	}
	return slices.Clone(parishes)
}

// Empty reports whether the index holds no provinces.
func (x *Index) Empty() bool {
	return x == nil || len(x.tree) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
