package store

import (
	"context"
	"errors"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// ErrUnknownSheet is returned for sheets outside the schema.
var ErrUnknownSheet = errors.New("unknown sheet")

// Table is a point-in-time copy of one sheet. Rows may be shorter than
// Header.
type Table struct {
	Sheet  string     `json:"sheet"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Columns indexes the header row.
func (t *Table) Columns() workbook.HeaderMap {
	return workbook.NewHeaderMap(t.Header)
}

// WriteResult describes where a write landed. Fallback is set when the
// workbook was locked and the write went to a timestamped copy at Location.
type WriteResult struct {
	Location string `json:"location"`
	Fallback bool   `json:"fallback"`
	Inserted bool   `json:"inserted"`
}

// RowStore is the sheet-shaped persistence the intake logic runs on.
// Records are mapped to columns by normalized header text.
type RowStore interface {
	// EnsureSchema creates missing sheets and headers. Existing columns are
	// never reordered or removed.
	EnsureSchema(ctx context.Context) (bool, error)

	// AppendRow adds one row at the end of sheet.
	AppendRow(ctx context.Context, sheet string, rec model.Record) (WriteResult, error)
	// AppendRows adds rows in order with a single write.
	AppendRows(ctx context.Context, sheet string, recs []model.Record) (WriteResult, error)

	// UpsertByKey updates the first row whose keyHeader cell equals key
	// (trimmed, case-insensitive), touching only the columns present in rec.
	// Without a match it appends rec with the key filled in.
	UpsertByKey(ctx context.Context, sheet, keyHeader, key string, rec model.Record) (WriteResult, error)

	// ScanRows returns the sheet's header and data rows. A sheet that does
	// not exist yet scans as empty.
	ScanRows(ctx context.Context, sheet string) (*Table, error)

	// Version changes whenever the stored data changes. Caches key on it.
	Version(ctx context.Context) (string, error)

	// Location names the backing file or database.
	Location() string

	Close() error
}
