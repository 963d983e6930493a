package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extrememax/expo-feria/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock, nil, nil), mock
}

func codesHeaderRows(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	rows := mock.NewRows([]string{"header"})
	for _, h := range []string{"CODIGO", "PUNTAJE", "RUC O CEDULA", "NOMBRE", "TELEFONO", "TIPO", "STAND"} {
		rows.AddRow(h)
	}
	return rows
}

func TestPostgresStore_Version(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT value FROM store_meta WHERE key = 'revision'`).
		WillReturnRows(mock.NewRows([]string{"value"}).AddRow(int64(42)))

	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ScanRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT header FROM sheet_columns WHERE sheet = \$1 ORDER BY position`).
		WithArgs(model.SheetCodes).
		WillReturnRows(codesHeaderRows(mock))
	mock.ExpectQuery(`SELECT id, cells FROM sheet_rows WHERE sheet = \$1 ORDER BY seq`).
		WithArgs(model.SheetCodes).
		WillReturnRows(mock.NewRows([]string{"id", "cells"}).
			AddRow("r1", []byte(`["M1","120","1710034065","Luis","0991234567","MECANICO","PANTRO"]`)).
			AddRow("r2", []byte(`["C1",""]`)))

	tbl, err := s.ScanRows(context.Background(), model.SheetCodes)
	require.NoError(t, err)
	assert.Len(t, tbl.Header, 7)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "120", tbl.Rows[0][1])
	assert.Equal(t, []string{"C1", ""}, tbl.Rows[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ScanRows_UnknownSheet(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	_, err := s.ScanRows(context.Background(), "VISITANTES")
	assert.ErrorIs(t, err, ErrUnknownSheet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(int64(writeLockKey)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT header FROM sheet_columns`).
		WithArgs(model.SheetCodes).
		WillReturnRows(codesHeaderRows(mock))
	mock.ExpectExec(`INSERT INTO sheet_rows`).
		WithArgs(pgxmock.AnyArg(), model.SheetCodes, []byte(`["M3","","","Ana","","",""]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE store_meta SET value = value \+ 1`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := s.AppendRow(context.Background(), model.SheetCodes, model.Record{"CODIGO": "M3", "NOMBRE": "Ana"})
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Equal(t, "postgres", res.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertByKey_UpdatesExisting(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(int64(writeLockKey)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT header FROM sheet_columns`).
		WithArgs(model.SheetCodes).
		WillReturnRows(codesHeaderRows(mock))
	mock.ExpectQuery(`SELECT id, cells FROM sheet_rows`).
		WithArgs(model.SheetCodes).
		WillReturnRows(mock.NewRows([]string{"id", "cells"}).
			AddRow("r1", []byte(`["D1","","0102030400","Rosa","","DISTRIBUIDOR","PANTRO"]`)))
	mock.ExpectExec(`UPDATE sheet_rows SET cells = \$1`).
		WithArgs([]byte(`["D1","300","0102030400","Rosa","","DISTRIBUIDOR","PANTRO"]`), "r1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE store_meta`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := s.UpsertByKey(context.Background(), model.SheetCodes, model.ColCode, "d1", model.Record{"PUNTAJE": "300"})
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BeginError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := s.AppendRow(context.Background(), model.SheetPrizes, model.Record{"CODIGO": "C1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RollbackOnInsertError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(int64(writeLockKey)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT header FROM sheet_columns`).
		WithArgs(model.SheetCodes).
		WillReturnRows(codesHeaderRows(mock))
	mock.ExpectExec(`INSERT INTO sheet_rows`).
		WithArgs(pgxmock.AnyArg(), model.SheetCodes, pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.AppendRow(context.Background(), model.SheetCodes, model.Record{"CODIGO": "M1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert row")
	assert.NoError(t, mock.ExpectationsWereMet())
}
