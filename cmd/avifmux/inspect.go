package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/logicossoftware/go-avifmux/internal/avifparse"
)

type propertySummary struct {
	Index     uint16 `json:"index" yaml:"index"`
	Type      string `json:"type" yaml:"type"`
	Essential bool   `json:"essential,omitempty" yaml:"essential,omitempty"`
	Width     uint32 `json:"width,omitempty" yaml:"width,omitempty"`
	Height    uint32 `json:"height,omitempty" yaml:"height,omitempty"`
	Profile   *uint8 `json:"profile,omitempty" yaml:"profile,omitempty"`
	Depth     uint8  `json:"depth,omitempty" yaml:"depth,omitempty"`
	Mono      bool   `json:"monochrome,omitempty" yaml:"monochrome,omitempty"`
	Bits      []int  `json:"bits_per_channel,omitempty" yaml:"bits_per_channel,omitempty,flow"`
	AuxType   string `json:"aux_type,omitempty" yaml:"aux_type,omitempty"`
}

type itemSummary struct {
	ID         uint32            `json:"id" yaml:"id"`
	Type       string            `json:"type" yaml:"type"`
	Width      uint32            `json:"width,omitempty" yaml:"width,omitempty"`
	Height     uint32            `json:"height,omitempty" yaml:"height,omitempty"`
	Offset     uint64            `json:"offset" yaml:"offset"`
	Length     uint64            `json:"length" yaml:"length"`
	Properties []propertySummary `json:"properties" yaml:"properties"`
}

type summary struct {
	MajorBrand       string                `json:"major_brand" yaml:"major_brand"`
	CompatibleBrands []string              `json:"compatible_brands" yaml:"compatible_brands,flow"`
	Primary          uint32                `json:"primary_item" yaml:"primary_item"`
	Alpha            uint32                `json:"alpha_item,omitempty" yaml:"alpha_item,omitempty"`
	Premultiplied    bool                  `json:"premultiplied" yaml:"premultiplied"`
	Items            []itemSummary         `json:"items" yaml:"items"`
	References       []avifparse.Reference `json:"references,omitempty" yaml:"references,omitempty"`
	Boxes            []*avifparse.Node     `json:"boxes,omitempty" yaml:"boxes,omitempty"`
}

func newInspectCommand(root *rootOptions) *cobra.Command {
	var (
		format string
		boxes  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file.avif>",
		Short: "Describe the items and boxes of an AVIF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := avifparse.Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			s := summarize(f)
			if !boxes {
				s.Boxes = nil
			}
			root.log.WithFields(logrus.Fields{
				"path":  args[0],
				"size":  len(data),
				"items": len(s.Items),
			}).Debug("Parsed AVIF file")
			return render(cmd.OutOrStdout(), format, s)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml)")
	cmd.Flags().BoolVar(&boxes, "boxes", false, "include the box tree")

	return cmd
}

func summarize(f *avifparse.File) summary {
	s := summary{
		MajorBrand:       f.MajorBrand,
		CompatibleBrands: f.CompatibleBrands,
		Primary:          f.PrimaryItemID,
		Premultiplied:    f.Premultiplied(),
		References:       f.References,
		Boxes:            f.Boxes,
	}
	if id, ok := f.AlphaItemID(); ok {
		s.Alpha = id
	}
	for _, it := range f.Items {
		is := itemSummary{ID: it.ID, Type: it.Type, Width: it.Width, Height: it.Height}
		if loc, ok := f.Location(it.ID); ok && len(loc.Extents) > 0 {
			is.Offset = loc.BaseOffset + loc.Extents[0].Offset
			for _, ex := range loc.Extents {
				is.Length += ex.Length
			}
		}
		for _, a := range f.Associations[it.ID] {
			if a.Index == 0 {
				continue
			}
			is.Properties = append(is.Properties, summarizeProperty(a, f.Properties[a.Index-1]))
		}
		s.Items = append(s.Items, is)
	}
	return s
}

func summarizeProperty(a avifparse.Association, p avifparse.Property) propertySummary {
	ps := propertySummary{
		Index:     a.Index,
		Type:      p.Type,
		Essential: a.Essential,
		Width:     p.Width,
		Height:    p.Height,
		AuxType:   p.AuxType,
	}
	for _, b := range p.BitsPerChannel {
		ps.Bits = append(ps.Bits, int(b))
	}
	if c := p.AV1; c != nil {
		profile := c.SeqProfile
		ps.Profile = &profile
		ps.Mono = c.Monochrome
		switch {
		case c.TwelveBit:
			ps.Depth = 12
		case c.HighBitdepth:
			ps.Depth = 10
		default:
			ps.Depth = 8
		}
	}
	return ps
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (supported: json, yaml)", format)
}
