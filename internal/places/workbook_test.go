package places

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadWorkbook(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"External ID", "Name", "Description", "Category", "Location", "Province", "Price", "Image URL"},
		{"g-1", "Quilotoa", "Crater lake", "lake, hiking", "Zumbahua", "Cotopaxi", "2.5", ""},
		{"", "Ingapirca", "", "ruins", "Cañar", "Cañar", "", "https://img/ing.jpg"},
		{"g-3", "", "no name", "", "", "Cotopaxi", "", ""},
		{"g-4", "Cotopaxi NP", "", "park", "", "cotopaxi", "", ""},
	})

	src, err := ReadWorkbook(buf)
	require.NoError(t, err)

	regions := src.Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, "Cotopaxi", regions[0].Name)
	assert.Equal(t, "Cañar", regions[1].Name)

	got, err := src.Nearby(context.Background(), Region{Name: "Cotopaxi"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "g-1", got[0].ExternalID)
	assert.Equal(t, "g-4", got[1].ExternalID)
	assert.Equal(t, []string{"lake", "hiking"}, got[0].Types)
	require.NotNil(t, got[0].Price)
	assert.InDelta(t, 2.5, *got[0].Price, 1e-9)

	got, err = src.Nearby(context.Background(), Region{Name: "Cañar"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "xlsx:cañar:ingapirca", got[0].ExternalID)
	assert.Nil(t, got[0].Price)
	assert.Equal(t, "https://img/ing.jpg", got[0].ImageURL)
}

func TestReadWorkbookErrors(t *testing.T) {
	_, err := ReadWorkbook(buildWorkbook(t, [][]any{{"name", "category"}}))
	assert.ErrorContains(t, err, `missing "province" column`)

	_, err = ReadWorkbook(buildWorkbook(t, [][]any{
		{"name", "province", "price"},
		{"Quilotoa", "Cotopaxi", "free"},
	}))
	assert.ErrorContains(t, err, "invalid price")

	_, err = ReadWorkbook(buildWorkbook(t, [][]any{
		{"name", "province", "price"},
		{"Quilotoa", "Cotopaxi", "1000000000"},
	}))
	assert.ErrorContains(t, err, "invalid price")
}
