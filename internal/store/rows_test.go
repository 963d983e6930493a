package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/workbook"
)

func TestLayout_FillsDuplicateHeaders(t *testing.T) {
	header := []string{"CODIGO", "PROVINCIA", "PROVINCIA", "CANTON/CIUDAD", "EXTRA"}
	row := layout(header, model.Record{
		"codigo":        "C1",
		"Provincia":     "PICHINCHA",
		"Cantón/Ciudad": "QUITO",
		"UNUSED":        "x",
	})
	assert.Equal(t, []string{"C1", "PICHINCHA", "PICHINCHA", "QUITO", ""}, row)
}

func TestMerge(t *testing.T) {
	header := []string{"CODIGO", "PUNTAJE", "NOMBRE"}
	out, changed := merge(header, []string{"M1"}, model.Record{"PUNTAJE": "90"})
	assert.Equal(t, []string{"M1", "90", ""}, out)
	assert.Equal(t, []int{1}, changed)

	out, changed = merge(header, []string{"M1", "5", "Ana", "extra"}, model.Record{"NOMBRE": "Ana P"})
	assert.Equal(t, []string{"M1", "5", "Ana P", "extra"}, out, "cells beyond the header survive")
	assert.Equal(t, []int{2}, changed)
}

func TestMissingHeaders(t *testing.T) {
	canonical := []string{"CODIGO", "PROVINCIA", "PROVINCIA", "TELÉFONO", "STAND"}
	assert.Equal(t, canonical, missingHeaders(nil, canonical), "fresh sheets keep duplicates")
	assert.Equal(t, []string{"PROVINCIA", "TELÉFONO", "STAND"}, missingHeaders([]string{"CODIGO"}, canonical))
	assert.Equal(t, []string{"STAND"}, missingHeaders([]string{"codigo", "telefono", "Provincia"}, canonical))
	assert.Nil(t, missingHeaders(canonical, canonical))
}

func TestKeyColumn(t *testing.T) {
	m := workbook.NewHeaderMap([]string{"NRO", "CODIGO DEL VISITANTE", "CODIGO"})
	assert.Equal(t, 2, keyColumn(m, "CODIGO"), "exact match preferred")

	m = workbook.NewHeaderMap([]string{"NRO", "Código visitante"})
	assert.Equal(t, 1, keyColumn(m, "CODIGO"))
	assert.Equal(t, -1, keyColumn(m, "PUNTAJE"))
}

func TestFindRow(t *testing.T) {
	rows := [][]string{{"m1"}, {}, {" M2 "}, {"M2"}}
	assert.Equal(t, 0, findRow(rows, 0, "M1"))
	assert.Equal(t, 2, findRow(rows, 0, "m2"), "first trimmed case-insensitive match")
	assert.Equal(t, -1, findRow(rows, 0, "M3"))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 150, cellValue("PUNTAJE", "150"))
	assert.Equal(t, 41, cellValue("Edad", "41"))
	assert.Equal(t, "", cellValue("PUNTAJE", ""))
	assert.Equal(t, "0991234567", cellValue("TELEFONO", "0991234567"), "digits stay text")
	assert.Equal(t, "1710034065", cellValue("RUC O CEDULA", "1710034065"))
}

func TestWithKey_DoesNotMutate(t *testing.T) {
	rec := model.Record{"NOMBRE": "Ana"}
	out := withKey(rec, "CODIGO", "C1")
	assert.Equal(t, "C1", out["CODIGO"])
	_, ok := rec["CODIGO"]
	assert.False(t, ok)
	assert.Equal(t, model.Record{"CODIGO": "C1"}, withKey(nil, "CODIGO", "C1"))
}
