package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/logicossoftware/go-avifmux"
	"github.com/logicossoftware/go-avifmux/internal/avifparse"
)

func serialize(color, alpha []byte, width, height uint32, depth uint8, premultiplied bool) ([]byte, error) {
	if len(color) == 0 {
		return nil, fmt.Errorf("color bitstream is empty")
	}
	var buf bytes.Buffer
	err := avifmux.Serialize(&buf, color, alpha, width, height, depth,
		avifmux.WithPremultipliedAlpha(premultiplied && len(alpha) > 0))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inspect(data []byte) ([]byte, error) {
	f, err := avifparse.Parse(data)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, len(f.Items))
	for i, it := range f.Items {
		props := make([]map[string]any, 0, len(f.Associations[it.ID]))
		for _, a := range f.Associations[it.ID] {
			if a.Index == 0 {
				continue
			}
			p := f.Properties[a.Index-1]
			props = append(props, map[string]any{
				"index":     a.Index,
				"type":      p.Type,
				"essential": a.Essential,
			})
		}
		var dataLen uint64
		if loc, ok := f.Location(it.ID); ok {
			for _, ex := range loc.Extents {
				dataLen += ex.Length
			}
		}
		items[i] = map[string]any{
			"id":         it.ID,
			"type":       it.Type,
			"width":      it.Width,
			"height":     it.Height,
			"dataLen":    dataLen,
			"properties": props,
		}
	}

	result := map[string]any{
		"majorBrand":       f.MajorBrand,
		"compatibleBrands": f.CompatibleBrands,
		"primaryItem":      f.PrimaryItemID,
		"premultiplied":    f.Premultiplied(),
		"items":            items,
		"references":       f.References,
	}
	if id, ok := f.AlphaItemID(); ok {
		result["alphaItem"] = id
	}
	return json.Marshal(result)
}

func itemData(data []byte, id uint32) ([]byte, error) {
	f, err := avifparse.Parse(data)
	if err != nil {
		return nil, err
	}
	return f.ItemData(id)
}

func validate(data []byte) error {
	f, err := avifparse.Parse(data)
	if err != nil {
		return err
	}
	if _, err := f.PrimaryData(); err != nil {
		return err
	}
	_, err = f.AlphaData()
	return err
}
