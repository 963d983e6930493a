package importer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/store"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// LocationResult counts the rows appended by Locations.
type LocationResult struct {
	Rows     int    `json:"rows"`
	Skipped  int    `json:"skipped"`
	Location string `json:"location"`
	Fallback bool   `json:"fallback"`
}

// Locations appends the province, canton and parish columns of a reference
// file to the PROVINCIA sheet. Blank cells are kept blank so the index
// forward-fills them the same way it does for hand-typed rows. Rows with
// none of the three values are skipped.
func Locations(ctx context.Context, s store.RowStore, path string, opts ReadOptions) (LocationResult, error) {
	header, rows, err := ReadTable(path, opts)
	if err != nil {
		return LocationResult{}, err
	}

	cols := workbook.NewHeaderMap(header)
	provCol := cols.Find(model.ColProvince)
	cantonCol := cols.Find("CANTON", "CIUDAD")
	parishCol := cols.Find(model.ColParish)
	if provCol < 0 || cantonCol < 0 {
		return LocationResult{}, eris.Errorf("importer: %s needs PROVINCIA and CANTON/CIUDAD columns", path)
	}

	var res LocationResult
	recs := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		rec := model.Record{
			model.ColProvince: strings.TrimSpace(workbook.Cell(row, provCol)),
			model.ColCanton:   strings.TrimSpace(workbook.Cell(row, cantonCol)),
			model.ColParish:   strings.TrimSpace(workbook.Cell(row, parishCol)),
		}
		if rec[model.ColProvince] == "" && rec[model.ColCanton] == "" && rec[model.ColParish] == "" {
			res.Skipped++
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return res, nil
	}

	if _, err := s.EnsureSchema(ctx); err != nil {
		return res, eris.Wrap(err, "importer: ensure schema")
	}
	wr, err := s.AppendRows(ctx, model.SheetLocations, recs)
	if err != nil {
		return res, eris.Wrap(err, "importer: append locations")
	}
	res.Rows = len(recs)
	res.Location = wr.Location
	res.Fallback = wr.Fallback

	zap.L().Info("locations imported",
		zap.String("source", path),
		zap.Int("rows", res.Rows),
		zap.Int("skipped", res.Skipped),
		zap.Bool("fallback", wr.Fallback),
	)
	return res, nil
}
