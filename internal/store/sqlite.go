package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// SQLiteStore implements RowStore using modernc.org/sqlite. Each sheet is a
// set of rows holding a JSON array of cells; headers live in their own
// table so they stay additive like the workbook's.
type SQLiteStore struct {
	db     *sql.DB
	dsn    string
	schema *model.Schema
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, schema *model.Schema) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if schema == nil {
		schema = model.DefaultSchema()
	}
	return &SQLiteStore{db: db, dsn: dsn, schema: schema}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sheet_columns (
	sheet    TEXT NOT NULL,
	position INTEGER NOT NULL,
	header   TEXT NOT NULL,
	PRIMARY KEY (sheet, position)
);

CREATE TABLE IF NOT EXISTS sheet_rows (
	id         TEXT PRIMARY KEY,
	sheet      TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	cells      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

INSERT OR IGNORE INTO store_meta (key, value) VALUES ('revision', 0);

CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet_seq ON sheet_rows(sheet, seq);
`

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Location() string { return s.dsn }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) (bool, error) {
	if err := s.Migrate(ctx); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	changed := false
	for _, sh := range s.schema.Sheets {
		existing, err := sqliteHeaders(ctx, tx, sh.Name)
		if err != nil {
			return false, err
		}
		for i, h := range missingHeaders(existing, sh.Headers) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sheet_columns (sheet, position, header) VALUES (?, ?, ?)`,
				sh.Name, len(existing)+i, h,
			); err != nil {
				return false, eris.Wrapf(err, "sqlite: add header %s.%s", sh.Name, h)
			}
			changed = true
		}
	}
	if changed {
		if err := sqliteBump(ctx, tx); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit schema")
	}
	return changed, nil
}

func (s *SQLiteStore) AppendRow(ctx context.Context, sheet string, rec model.Record) (WriteResult, error) {
	return s.AppendRows(ctx, sheet, []model.Record{rec})
}

func (s *SQLiteStore) AppendRows(ctx context.Context, sheet string, recs []model.Record) (WriteResult, error) {
	if _, err := checkSheet(s.schema, sheet); err != nil {
		return WriteResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WriteResult{}, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	header, err := sqliteHeaders(ctx, tx, sheet)
	if err != nil {
		return WriteResult{}, err
	}
	for _, rec := range recs {
		if err := sqliteInsert(ctx, tx, sheet, layout(header, rec)); err != nil {
			return WriteResult{}, err
		}
	}
	if err := sqliteBump(ctx, tx); err != nil {
		return WriteResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return WriteResult{}, eris.Wrapf(err, "sqlite: commit append to %s", sheet)
	}
	return WriteResult{Location: s.dsn, Inserted: true}, nil
}

func (s *SQLiteStore) UpsertByKey(ctx context.Context, sheet, keyHeader, key string, rec model.Record) (WriteResult, error) {
	if _, err := checkSheet(s.schema, sheet); err != nil {
		return WriteResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WriteResult{}, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	header, err := sqliteHeaders(ctx, tx, sheet)
	if err != nil {
		return WriteResult{}, err
	}
	col := keyColumn(workbook.NewHeaderMap(header), keyHeader)
	if col < 0 {
		return WriteResult{}, eris.Errorf("sqlite: sheet %s has no %s column", sheet, keyHeader)
	}

	ids, rows, err := sqliteRows(ctx, tx, sheet)
	if err != nil {
		return WriteResult{}, err
	}

	inserted := false
	if i := findRow(rows, col, key); i >= 0 {
		updated, _ := merge(header, rows[i], rec)
		updated[col] = workbook.Cell(rows[i], col)
		cells, err := json.Marshal(updated)
		if err != nil {
			return WriteResult{}, eris.Wrap(err, "sqlite: marshal cells")
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET cells = ?, updated_at = ? WHERE id = ?`,
			string(cells), time.Now().UTC(), ids[i],
		); err != nil {
			return WriteResult{}, eris.Wrapf(err, "sqlite: update row %s", ids[i])
		}
	} else {
		inserted = true
		if err := sqliteInsert(ctx, tx, sheet, layout(header, withKey(rec, header[col], key))); err != nil {
			return WriteResult{}, err
		}
	}

	if err := sqliteBump(ctx, tx); err != nil {
		return WriteResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return WriteResult{}, eris.Wrapf(err, "sqlite: commit upsert into %s", sheet)
	}
	return WriteResult{Location: s.dsn, Inserted: inserted}, nil
}

func (s *SQLiteStore) ScanRows(ctx context.Context, sheet string) (*Table, error) {
	if _, err := checkSheet(s.schema, sheet); err != nil {
		return nil, err
	}
	header, err := sqliteHeaders(ctx, s.db, sheet)
	if err != nil {
		return nil, err
	}
	_, rows, err := sqliteRows(ctx, s.db, sheet)
	if err != nil {
		return nil, err
	}
	return &Table{Sheet: sheet, Header: header, Rows: rows}, nil
}

// Version is the revision counter bumped by every write. WAL mode leaves
// the main file's mtime stale, so the file cannot serve as the stamp.
func (s *SQLiteStore) Version(ctx context.Context) (string, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'revision'`).Scan(&rev)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: read revision")
	}
	return strconv.FormatInt(rev, 10), nil
}

// sqliteQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqliteQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sqliteHeaders(ctx context.Context, q sqliteQuerier, sheet string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT header FROM sheet_columns WHERE sheet = ? ORDER BY position`, sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query headers of %s", sheet)
	}
	defer rows.Close()

	var header []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan header")
		}
		header = append(header, h)
	}
	return header, eris.Wrap(rows.Err(), "sqlite: iterate headers")
}

func sqliteRows(ctx context.Context, q sqliteQuerier, sheet string) ([]string, [][]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, cells FROM sheet_rows WHERE sheet = ? ORDER BY seq`, sheet)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: query rows of %s", sheet)
	}
	defer rows.Close()

	var (
		ids   []string
		cells [][]string
	)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, nil, eris.Wrap(err, "sqlite: scan row")
		}
		var row []string
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, nil, eris.Wrapf(err, "sqlite: decode row %s", id)
		}
		ids = append(ids, id)
		cells = append(cells, row)
	}
	return ids, cells, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

func sqliteInsert(ctx context.Context, tx *sql.Tx, sheet string, row []string) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cells")
	}
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sheet_rows (id, sheet, seq, cells, created_at, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sheet_rows WHERE sheet = ?), ?, ?, ?)`,
		uuid.New().String(), sheet, sheet, string(cells), now, now,
	)
	return eris.Wrapf(err, "sqlite: insert row into %s", sheet)
}

func sqliteBump(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `UPDATE store_meta SET value = value + 1 WHERE key = 'revision'`)
	return eris.Wrap(err, "sqlite: bump revision")
}
