package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicossoftware/go-avifmux/internal/avifparse"
)

func TestSerializeInspectItemData(t *testing.T) {
	color := []byte("color-obu")
	alpha := []byte("alpha")

	file, err := serialize(color, alpha, 16, 9, 10, true)
	require.NoError(t, err)
	require.NoError(t, validate(file))

	js, err := inspect(file)
	require.NoError(t, err)
	var doc struct {
		MajorBrand    string `json:"majorBrand"`
		PrimaryItem   uint32 `json:"primaryItem"`
		AlphaItem     uint32 `json:"alphaItem"`
		Premultiplied bool   `json:"premultiplied"`
		Items         []struct {
			ID         uint32 `json:"id"`
			Width      uint32 `json:"width"`
			Height     uint32 `json:"height"`
			DataLen    uint64 `json:"dataLen"`
			Properties []struct {
				Type      string `json:"type"`
				Essential bool   `json:"essential"`
			} `json:"properties"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(js, &doc))
	assert.Equal(t, "avif", doc.MajorBrand)
	assert.Equal(t, uint32(1), doc.PrimaryItem)
	assert.Equal(t, uint32(2), doc.AlphaItem)
	assert.True(t, doc.Premultiplied)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, uint64(len(color)), doc.Items[0].DataLen)
	assert.Equal(t, uint32(16), doc.Items[0].Width)
	assert.Equal(t, uint32(9), doc.Items[1].Height)
	assert.Equal(t, uint64(len(alpha)), doc.Items[1].DataLen)
	for _, it := range doc.Items {
		for _, p := range it.Properties {
			assert.Equal(t, p.Type == "av1C", p.Essential, "item %d %s", it.ID, p.Type)
		}
	}

	got, err := itemData(file, 1)
	require.NoError(t, err)
	assert.Equal(t, color, got)
	got, err = itemData(file, 2)
	require.NoError(t, err)
	assert.Equal(t, alpha, got)
	_, err = itemData(file, 3)
	require.ErrorIs(t, err, avifparse.ErrNoSuchItem)
}

func TestSerialize_PremultipliedNeedsAlpha(t *testing.T) {
	file, err := serialize([]byte{1, 2, 3}, nil, 1, 1, 8, true)
	require.NoError(t, err)
	f, err := avifparse.Parse(file)
	require.NoError(t, err)
	assert.Empty(t, f.References)
}

func TestExportErrors(t *testing.T) {
	_, err := serialize(nil, nil, 1, 1, 8, false)
	require.Error(t, err)

	_, err = inspect([]byte("junk"))
	require.Error(t, err)
	require.Error(t, validate(nil))
	_, err = itemData([]byte{0, 0, 0, 8, 'f', 'r', 'e', 'e'}, 1)
	require.ErrorIs(t, err, avifparse.ErrMissingBox)
}
