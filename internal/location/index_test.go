package location

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/store"
	"github.com/extrememax/expo-feria/internal/workbook"
)

var refHeader = []string{"PROVINCIA", "CANTON/CIUDAD", "PARROQUIA"}

func TestBuild_ForwardFill(t *testing.T) {
	rows := [][]string{
		{"", "", "HUERFANA"},
		{"Azuay", "Cuenca", "San Sebastián"},
		{"", "", "El Sagrario"},
		{"", "", "el sagrario"},
		{"", "Gualaceo", "Gualaceo"},
		{"Guayas", "Guayaquil", "Tarqui"},
		{"", "", ""},
	}
	idx := Build(refHeader, rows)

	assert.Equal(t, []string{"AZUAY", "GUAYAS"}, idx.Provinces())
	assert.Equal(t, []string{"CUENCA", "GUALACEO"}, idx.Cantons("azuay"))
	assert.Equal(t, []string{"EL SAGRARIO", "SAN SEBASTIAN"}, idx.Parishes("Azuay", "cuenca"))
	assert.Equal(t, []string{"GUALACEO"}, idx.Parishes("AZUAY", "GUALACEO"))
	assert.Equal(t, []string{"TARQUI"}, idx.Parishes("guayas", "guayaquil"))
}

func TestBuild_MissingHeader(t *testing.T) {
	idx := Build([]string{"PROVINCIA", "PARROQUIA"}, [][]string{{"AZUAY", "CUENCA"}})
	assert.True(t, idx.Empty())
	assert.Empty(t, idx.Provinces())
}

func TestBuild_NoParishColumn(t *testing.T) {
	idx := Build([]string{"Provincia", "Cantón/Ciudad"}, [][]string{{"Loja", "Loja"}, {"", "Catamayo"}})
	assert.Equal(t, []string{"LOJA"}, idx.Provinces())
	assert.Equal(t, []string{"CATAMAYO", "LOJA"}, idx.Cantons("LOJA"))
	assert.Empty(t, idx.Parishes("LOJA", "LOJA"))
}

func TestIndex_UnknownKeys(t *testing.T) {
	idx := Build(refHeader, [][]string{{"AZUAY", "CUENCA", "BAÑOS"}})
	assert.Empty(t, idx.Cantons("PICHINCHA"))
	assert.Empty(t, idx.Parishes("AZUAY", "QUITO"))

	var nilIdx *Index
	assert.Empty(t, nilIdx.Provinces())
	assert.True(t, nilIdx.Empty())
}

func TestIndex_ParishesReturnsCopy(t *testing.T) {
	idx := Build(refHeader, [][]string{{"AZUAY", "CUENCA", "BAÑOS"}})
	got := idx.Parishes("AZUAY", "CUENCA")
	got[0] = "X"
	assert.Equal(t, []string{"BANOS"}, idx.Parishes("AZUAY", "CUENCA"))
}

func TestCache_RebuildsWhenStoreChanges(t *testing.T) {
	ctx := context.Background()
	acc := workbook.New(workbook.Options{LoadTries: 2, LoadWait: time.Millisecond, SaveTries: 2, SaveWait: time.Millisecond}, nil)
	s := store.NewWorkbook(acc, filepath.Join(t.TempDir(), "expo.xlsx"))
	_, err := s.EnsureSchema(ctx)
	require.NoError(t, err)

	c := NewCache(s)
	idx, err := c.Index(ctx)
	require.NoError(t, err)
	assert.True(t, idx.Empty())

	again, err := c.Index(ctx)
	require.NoError(t, err)
	assert.Same(t, idx, again)

	_, err = s.AppendRows(ctx, model.SheetLocations, []model.Record{
		{"PROVINCIA": "PICHINCHA", "CANTON/CIUDAD": "QUITO", "PARROQUIA": "IÑAQUITO"},
		{"PARROQUIA": "CHILLOGALLO"},
	})
	require.NoError(t, err)

	idx, err = c.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"PICHINCHA"}, idx.Provinces())
	assert.Equal(t, []string{"CHILLOGALLO", "INAQUITO"}, idx.Parishes("Pichincha", "Quito"))

	c.Invalidate()
	fresh, err := c.Index(ctx)
	require.NoError(t, err)
	assert.NotSame(t, idx, fresh)
}
