package workbook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extrememax/expo-feria/internal/model"
)

func TestHeaderMap_Find(t *testing.T) {
	mech, _ := model.DefaultSchema().Sheet(model.SheetMechanic)
	m := NewHeaderMap(mech.Headers)

	tests := []struct {
		name  string
		cands []string
		want  int
	}{
		{name: "first containing column wins", cands: []string{"NOMBRE"}, want: 1},
		{name: "any candidate", cands: []string{"CEDULA", "RUC"}, want: 2},
		{name: "exact", cands: []string{"TELEFONO"}, want: 3},
		{name: "accented header", cands: []string{"MECANICA"}, want: 12},
		{name: "missing", cands: []string{"PUNTAJE"}, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Find(tt.cands...))
		})
	}
}

func TestHeaderMap_IndexAndColumns(t *testing.T) {
	cons, _ := model.DefaultSchema().Sheet(model.SheetConsumer)
	m := NewHeaderMap(cons.Headers)

	assert.Equal(t, len(cons.Headers), m.Len())
	assert.Equal(t, 6, m.Index("provincia"))
	assert.Equal(t, []int{6, 7}, m.Columns("PROVINCIA"))
	assert.Equal(t, 8, m.Index("Cantón/Ciudad"))
	assert.Equal(t, -1, m.Index("CORREO"))
	assert.Nil(t, m.Columns("CORREO"))
}

func TestHeaderMap_SkipsBlankHeaders(t *testing.T) {
	m := NewHeaderMap([]string{"", "  ", "CODIGO"})
	assert.Equal(t, 2, m.Find("CODIGO"))
	assert.Equal(t, 2, m.Find(""), "blank headers never match")
}

func TestCell(t *testing.T) {
	row := []string{"a", "b"}
	assert.Equal(t, "b", Cell(row, 1))
	assert.Equal(t, "", Cell(row, 2))
	assert.Equal(t, "", Cell(row, -1))
	assert.Equal(t, "", Cell(nil, 0))
}

func TestBook_SetCell(t *testing.T) {
	a, path := newTestAccessor(t)
	ctx := context.Background()
	_, err := a.Ensure(ctx, path)
	require.NoError(t, err)

	book, err := a.Load(ctx, path, false)
	require.NoError(t, err)
	defer book.Close()

	idx, err := book.AppendRow(model.SheetCodes, []any{"M1", "", "1710034065"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = book.AppendRow(model.SheetCodes, []any{"M2"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	require.NoError(t, book.SetCell(model.SheetCodes, 0, 1, 150))
	assert.ErrorIs(t, book.SetCell("NOPE", 0, 0, "x"), ErrSheetMissing)

	_, err = a.Save(ctx, book)
	require.NoError(t, err)

	reread, err := a.Load(ctx, path, true)
	require.NoError(t, err)
	defer reread.Close()
	rows, err := reread.Rows(model.SheetCodes)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"M1", "150", "1710034065"}, rows[0])
	assert.Equal(t, []string{"M2"}, rows[1])

	header, err := reread.Header(model.SheetCodes)
	require.NoError(t, err)
	assert.Equal(t, model.ColCode, header[0])

	_, err = reread.Rows("NOPE")
	assert.ErrorIs(t, err, ErrSheetMissing)
}
