package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/store"
	"github.com/extrememax/expo-feria/internal/workbook"
)

var sampleCodes = []model.CodeRow{
	{Code: "M1", Score: 120, Document: "1710034065001", Name: "Luis Mora", Phone: "0991234567", Type: "MECANICO", Stand: "PANTRO"},
	{Code: "C1", Score: 300, Document: "0102030400", Name: "Ana Pérez", Phone: "0987654321", Type: "CONSUMIDOR", Stand: "EXTREMEMAX"},
	{Code: "D1", Score: 120, Document: "0923456784", Name: "Repuestos Ñuñoa", Phone: "042345678", Type: "DISTRIBUIDOR", Stand: "PANTRO"},
	{Code: "C2", Score: 0, Name: "Sin Puntaje", Type: "CONSUMIDOR"},
}

func newStore(t *testing.T) *store.WorkbookStore {
	t.Helper()
	acc := workbook.New(workbook.Options{LoadTries: 2, LoadWait: time.Millisecond, SaveTries: 2, SaveWait: time.Millisecond}, nil)
	s := store.NewWorkbook(acc, filepath.Join(t.TempDir(), "expo.xlsx"))
	_, err := s.EnsureSchema(context.Background())
	require.NoError(t, err)
	return s
}

func codes(rows []model.CodeRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Code
	}
	return out
}

func TestFilterByQuery_EmptyQueryIsIdentity(t *testing.T) {
	for _, q := range []string{"", "   "} {
		got := FilterByQuery(sampleCodes, q)
		assert.Equal(t, sampleCodes, got)
	}
}

func TestFilterByQuery(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		fields []string
		want   []string
	}{
		{name: "accent-insensitive name", query: "perez", want: []string{"C1"}},
		{name: "query with accents matches plain text", query: "ÑUÑOA", want: []string{"D1"}},
		{name: "lowercase code", query: "c", want: []string{"C1", "C2"}},
		{name: "document substring", query: "0340", want: []string{"M1"}},
		{name: "stand", query: "extreme", want: []string{"C1"}},
		{name: "type is not searched by default", query: "mecanico", want: []string{}},
		{name: "explicit fields", query: "mecanico", fields: []string{model.ColType}, want: []string{"M1"}},
		{name: "no match", query: "zzz", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByQuery(sampleCodes, tt.query, tt.fields...)
			assert.Equal(t, tt.want, codes(got))
		})
	}
}

func TestFilterByQuery_Prizes(t *testing.T) {
	prizes := []model.PrizeRow{
		{Code: "M1", Prize: "Gorra", Name: "Luis"},
		{Code: "C1", Prize: "Camiseta", Name: "José"},
	}
	got := FilterByQuery(prizes, "jose")
	require.Len(t, got, 1)
	assert.Equal(t, "C1", got[0].Code)

	got = FilterByQuery(prizes, "gorra", model.ColPrize)
	require.Len(t, got, 1)
	assert.Equal(t, "M1", got[0].Code)
}

func TestTopN(t *testing.T) {
	assert.Equal(t, []string{"C1", "M1", "D1"}, codes(TopN(sampleCodes, 3)), "ties keep registry order")
	assert.Equal(t, []string{"C1", "M1", "D1", "C2"}, codes(TopN(sampleCodes, 0)))
	assert.Equal(t, "M1", sampleCodes[0].Code, "input is not reordered")

	many := make([]model.CodeRow, 15)
	for i := range many {
		many[i] = model.CodeRow{Code: "X", Score: i}
	}
	top := TopN(many, 0)
	require.Len(t, top, DefaultTopN)
	assert.Equal(t, 14, top[0].Score)
	assert.Equal(t, 5, top[9].Score)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"150", 150},
		{" 42 ", 42},
		{"12.9", 12},
		{"1e3", 1000},
		{"-3", -3},
		{"N/A", 0},
		{"NaN", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseScore(tt.in), tt.in)
	}
}

func TestLoadAll(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.AppendRows(ctx, model.SheetCodes, []model.Record{
		{"CODIGO": "M1", "PUNTAJE": "80", "NOMBRE": " Luis ", "TIPO": "MECANICO", "STAND": "PANTRO"},
		{"CODIGO": "", "NOMBRE": "sin codigo"},
		{"CODIGO": "C1", "NOMBRE": "Ana"},
	})
	require.NoError(t, err)
	_, err = s.AppendRow(ctx, model.SheetPrizes, model.Record{"CODIGO": "M1", "PREMIO": "Gorra", "NOMBRE": "Luis"})
	require.NoError(t, err)

	v, err := LoadAll(ctx, s)
	require.NoError(t, err)
	require.Len(t, v.Codes, 3, "rows without a code are still registry rows")
	assert.Equal(t, model.CodeRow{Code: "M1", Score: 80, Name: "Luis", Type: "MECANICO", Stand: "PANTRO"}, v.Codes[0])
	assert.Equal(t, model.CodeRow{Name: "sin codigo"}, v.Codes[1])
	assert.Equal(t, "C1", v.Codes[2].Code)
	assert.Equal(t, 0, v.Codes[2].Score, "blank score reads as zero")
	assert.Equal(t, 3, Summarize(v).Codes)
	require.Len(t, v.Prizes, 1)
	assert.Equal(t, "Gorra", v.Prizes[0].Prize)
}

func TestLoadCodes_MissingWorkbook(t *testing.T) {
	acc := workbook.New(workbook.DefaultOptions(), nil)
	s := store.NewWorkbook(acc, filepath.Join(t.TempDir(), "missing.xlsx"))

	rows, err := LoadCodes(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSummarize(t *testing.T) {
	s := Summarize(&View{Codes: sampleCodes, Prizes: []model.PrizeRow{{Code: "M1"}}})
	assert.Equal(t, 4, s.Codes)
	assert.Equal(t, 3, s.Scored)
	assert.Equal(t, 1, s.Prizes)
	assert.InDelta(t, 180.0, s.Mean, 0.001)
	assert.InDelta(t, 120.0, s.Median, 0.001)
	assert.InDelta(t, 300.0, s.Max, 0.001)
	assert.Equal(t, map[string]int{"MECANICO": 1, "CONSUMIDOR": 2, "DISTRIBUIDOR": 1}, s.ByType)
	assert.Equal(t, map[string]int{"PANTRO": 2, "EXTREMEMAX": 1, "SIN DATO": 1}, s.ByStand)

	empty := Summarize(&View{})
	assert.Zero(t, empty.Scored)
	assert.Zero(t, empty.Mean)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, &View{
		Codes:  sampleCodes[:2],
		Prizes: []model.PrizeRow{{Code: "M1", Prize: "Gorra"}},
	}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{model.SheetCodes, model.SheetPrizes}, f.GetSheetList())

	rows, err := f.GetRows(model.SheetCodes)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, codeHeaders, rows[0])
	assert.Equal(t, []string{"C1", "300"}, rows[1][:2], "highest score first")
	assert.Equal(t, "M1", rows[2][0])

	rows, err = f.GetRows(model.SheetPrizes)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"M1", "Gorra"}, rows[1][:2])
}

func TestCache_ReloadsOnWrite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := NewCache(s)

	v, err := c.View(ctx)
	require.NoError(t, err)
	assert.Empty(t, v.Codes)

	_, err = s.AppendRow(ctx, model.SheetCodes, model.Record{"CODIGO": "M1"})
	require.NoError(t, err)

	v, err = c.View(ctx)
	require.NoError(t, err)
	assert.Len(t, v.Codes, 1)
}
