package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// Pool is the part of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements RowStore using pgxpool. Writes take a
// transaction-scoped advisory lock so concurrent servers sharing one
// database do not interleave read-modify-write cycles.
type PostgresStore struct {
	pool    Pool
	schema  *model.Schema
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// writeLockKey identifies the advisory lock serializing sheet writes.
const writeLockKey = 0x65787066

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, schema *model.Schema) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresFromPool(pool, schema, pool.Close), nil
}

// NewPostgresFromPool wraps an existing pool. closeFn may be nil.
func NewPostgresFromPool(pool Pool, schema *model.Schema, closeFn func()) *PostgresStore {
	if schema == nil {
		schema = model.DefaultSchema()
	}
	return &PostgresStore{pool: pool, schema: schema, closeFn: closeFn}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sheet_columns (
	sheet    TEXT NOT NULL,
	position INTEGER NOT NULL,
	header   TEXT NOT NULL,
	PRIMARY KEY (sheet, position)
);

CREATE TABLE IF NOT EXISTS sheet_rows (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	sheet      TEXT NOT NULL,
	seq        BIGINT NOT NULL,
	cells      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);

INSERT INTO store_meta (key, value) VALUES ('revision', 0) ON CONFLICT (key) DO NOTHING;

CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet_seq ON sheet_rows(sheet, seq);
`

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Location() string { return "postgres" }

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) (bool, error) {
	if err := s.Migrate(ctx); err != nil {
		return false, err
	}

	changed := false
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, sh := range s.schema.Sheets {
			existing, err := pgHeaders(ctx, tx, sh.Name)
			if err != nil {
				return err
			}
			for i, h := range missingHeaders(existing, sh.Headers) {
				if _, err := tx.Exec(ctx,
					`INSERT INTO sheet_columns (sheet, position, header) VALUES ($1, $2, $3)`,
					sh.Name, len(existing)+i, h,
				); err != nil {
					return eris.Wrapf(err, "postgres: add header %s.%s", sh.Name, h)
				}
				changed = true
			}
		}
		if changed {
			return pgBump(ctx, tx)
		}
		return nil
	})
	return changed, err
}

func (s *PostgresStore) AppendRow(ctx context.Context, sheet string, rec model.Record) (WriteResult, error) {
	return s.AppendRows(ctx, sheet, []model.Record{rec})
}

func (s *PostgresStore) AppendRows(ctx context.Context, sheet string, recs []model.Record) (WriteResult, error) {
	if _, err := checkSheet(s.schema, sheet); err != nil {
		return WriteResult{}, err
	}
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		header, err := pgHeaders(ctx, tx, sheet)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := pgInsert(ctx, tx, sheet, layout(header, rec)); err != nil {
				return err
			}
		}
		return pgBump(ctx, tx)
	})
	if err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Location: s.Location(), Inserted: true}, nil
}

func (s *PostgresStore) UpsertByKey(ctx context.Context, sheet, keyHeader, key string, rec model.Record) (WriteResult, error) {
	if _, err := checkSheet(s.schema, sheet); err != nil {
		return WriteResult{}, err
	}

	inserted := false
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		header, err := pgHeaders(ctx, tx, sheet)
		if err != nil {
			return err
		}
		col := keyColumn(workbook.NewHeaderMap(header), keyHeader)
		if col < 0 {
			return eris.Errorf("postgres: sheet %s has no %s column", sheet, keyHeader)
		}
		ids, rows, err := pgRows(ctx, tx, sheet)
		if err != nil {
			return err
		}

		if i := findRow(rows, col, key); i >= 0 {
			updated, _ := merge(header, rows[i], rec)
			updated[col] = workbook.Cell(rows[i], col)
			cells, err := json.Marshal(updated)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal cells")
			}
			if _, err := tx.Exec(ctx,
				`UPDATE sheet_rows SET cells = $1, updated_at = now() WHERE id = $2`,
				cells, ids[i],
			); err != nil {
				return eris.Wrapf(err, "postgres: update row %s", ids[i])
			}
		} else {
			inserted = true
			if err := pgInsert(ctx, tx, sheet, layout(header, withKey(rec, header[col], key))); err != nil {
				return err
			}
		}
		return pgBump(ctx, tx)
	})
	if err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Location: s.Location(), Inserted: inserted}, nil
}

func (s *PostgresStore) ScanRows(ctx context.Context, sheet string) (*Table, error) {
	if _, err := checkSheet(s.schema, sheet); err != nil {
		return nil, err
	}
	header, err := pgHeaders(ctx, s.pool, sheet)
	if err != nil {
		return nil, err
	}
	_, rows, err := pgRows(ctx, s.pool, sheet)
	if err != nil {
		return nil, err
	}
	return &Table{Sheet: sheet, Header: header, Rows: rows}, nil
}

func (s *PostgresStore) Version(ctx context.Context) (string, error) {
	var rev int64
	err := s.pool.QueryRow(ctx, `SELECT value FROM store_meta WHERE key = 'revision'`).Scan(&rev)
	if err != nil {
		return "", eris.Wrap(err, "postgres: read revision")
	}
	return strconv.FormatInt(rev, 10), nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(writeLockKey)); err != nil {
		return eris.Wrap(err, "postgres: acquire write lock")
	}
	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

// pgQuerier is satisfied by both Pool and pgx.Tx.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func pgHeaders(ctx context.Context, q pgQuerier, sheet string) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT header FROM sheet_columns WHERE sheet = $1 ORDER BY position`, sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query headers of %s", sheet)
	}
	defer rows.Close()

	var header []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrap(err, "postgres: scan header")
		}
		header = append(header, h)
	}
	return header, eris.Wrap(rows.Err(), "postgres: iterate headers")
}

func pgRows(ctx context.Context, q pgQuerier, sheet string) ([]string, [][]string, error) {
	rows, err := q.Query(ctx,
		`SELECT id, cells FROM sheet_rows WHERE sheet = $1 ORDER BY seq`, sheet)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: query rows of %s", sheet)
	}
	defer rows.Close()

	var (
		ids   []string
		cells [][]string
	)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan row")
		}
		var row []string
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, nil, eris.Wrapf(err, "postgres: decode row %s", id)
		}
		ids = append(ids, id)
		cells = append(cells, row)
	}
	return ids, cells, eris.Wrap(rows.Err(), "postgres: iterate rows")
}

func pgInsert(ctx context.Context, tx pgx.Tx, sheet string, row []string) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cells")
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO sheet_rows (id, sheet, seq, cells)
		VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sheet_rows WHERE sheet = $2), $3)`,
		uuid.New().String(), sheet, cells,
	)
	return eris.Wrapf(err, "postgres: insert row into %s", sheet)
}

func pgBump(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `UPDATE store_meta SET value = value + 1 WHERE key = 'revision'`)
	return eris.Wrap(err, "postgres: bump revision")
}
