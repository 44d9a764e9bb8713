// Package avifparse reads the HEIF/AVIF box structure back into item
// descriptors and bitstreams. Box framing and the generic HEIF item boxes are
// handled by go4.org/media/heif; this package adds the AVIF specifics on top:
// the av1C, pixi and auxC properties and the auxl/prem item references.
// Image sequences, item data in idat and external data references are
// rejected as unsupported.
package avifparse

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go4.org/media/heif"
	"go4.org/media/heif/bmff"
)

var (
	ErrInvalidBox  = errors.New("avifparse: invalid box")
	ErrMissingBox  = errors.New("avifparse: missing required box")
	ErrUnsupported = errors.New("avifparse: unsupported feature")
	ErrNoSuchItem  = errors.New("avifparse: no such item")
)

// AlphaURN is the auxC type that marks an auxiliary image as alpha.
const AlphaURN = "urn:mpeg:mpegB:cicp:systems:auxiliary:alpha"

// Node is one box in the parsed tree, for inspection.
type Node struct {
	Type     string  `json:"type" yaml:"type"`
	Offset   uint64  `json:"offset" yaml:"offset"`
	Size     uint64  `json:"size" yaml:"size"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Item is one entry of the iinf box. Width and Height come from the item's
// ispe property and are zero when it has none.
type Item struct {
	ID            uint32
	Type          string
	Width, Height uint32
}

type AV1Config struct {
	SeqProfile           uint8
	SeqLevelIdx0         uint8
	SeqTier0             bool
	HighBitdepth         bool
	TwelveBit            bool
	Monochrome           bool
	ChromaSubsamplingX   bool
	ChromaSubsamplingY   bool
	ChromaSamplePosition uint8
}

// Property is one entry of the ipco box. Fields are filled according to Type;
// unknown property boxes only carry Type and Raw.
type Property struct {
	Type           string
	Width, Height  uint32     // ispe
	AV1            *AV1Config // av1C
	BitsPerChannel []uint8    // pixi
	AuxType        string     // auxC
	Raw            []byte
}

type Association struct {
	Index     uint16 // 1-based into File.Properties
	Essential bool
}

type Extent struct {
	Offset uint64
	Length uint64
}

type Location struct {
	ItemID             uint32
	ConstructionMethod uint8
	DataReferenceIndex uint16
	BaseOffset         uint64
	Extents            []Extent
}

type Reference struct {
	Type string   `json:"type" yaml:"type"`
	From uint32   `json:"from" yaml:"from"`
	To   []uint32 `json:"to" yaml:"to,flow"`
}

// File is a parsed AVIF still image.
type File struct {
	MajorBrand       string
	MinorVersion     uint32
	CompatibleBrands []string
	Handler          string
	PrimaryItemID    uint32
	Items            []Item
	Properties       []Property
	Associations     map[uint32][]Association
	Locations        []Location
	References       []Reference
	Boxes            []*Node

	data []byte
}

// Parse reads an AVIF file held in memory. The returned File references data.
func Parse(data []byte) (*File, error) {
	boxes, err := readTree(data, 0, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := checkTopLevel(boxes); err != nil {
		return nil, err
	}
	f := &File{data: data, Boxes: boxes, Associations: map[uint32][]Association{}}

	r := bmff.NewReader(bytes.NewReader(data))
	var sawFtyp bool
	for {
		b, err := r.ReadBox()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBox, err)
		}
		switch b.Type() {
		case bmff.TypeFtyp:
			if sawFtyp {
				continue
			}
			sawFtyp = true
			err = f.parseFtyp(b)
		case bmff.TypeMeta:
			err = f.parseMeta(b)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := f.resolveItems(heif.Open(bytes.NewReader(data))); err != nil {
		return nil, err
	}
	return f, nil
}

func checkTopLevel(boxes []*Node) error {
	var ftyp, meta int
	for _, n := range boxes {
		switch n.Type {
		case "ftyp":
			ftyp++
		case "meta":
			meta++
		}
	}
	switch {
	case ftyp == 0:
		return fmt.Errorf("%w: ftyp", ErrMissingBox)
	case meta == 0:
		return fmt.Errorf("%w: meta", ErrMissingBox)
	case meta > 1:
		return fmt.Errorf("%w: duplicate meta box", ErrInvalidBox)
	}
	return nil
}

func (f *File) parseFtyp(b bmff.Box) error {
	p, err := b.Parse()
	if err != nil {
		return fmt.Errorf("%w: ftyp: %v", ErrInvalidBox, err)
	}
	ft, ok := p.(*bmff.FileTypeBox)
	if !ok {
		return fmt.Errorf("%w: ftyp parsed as %T", ErrInvalidBox, p)
	}
	f.MajorBrand = ft.MajorBrand
	if len(ft.MinorVersion) == 4 {
		f.MinorVersion = binary.BigEndian.Uint32([]byte(ft.MinorVersion))
	}
	f.CompatibleBrands = ft.Compatible
	return nil
}

var requiredMeta = []string{"hdlr", "pitm", "iinf", "iloc", "iprp"}

func (f *File) parseMeta(b bmff.Box) error {
	p, err := b.Parse()
	if err != nil {
		return fmt.Errorf("%w: meta: %v", ErrInvalidBox, err)
	}
	mb, ok := p.(*bmff.MetaBox)
	if !ok {
		return fmt.Errorf("%w: meta parsed as %T", ErrInvalidBox, p)
	}
	seen := map[string]bool{}
	for _, c := range mb.Children {
		typ := c.Type().String()
		if seen[typ] {
			switch typ {
			case "hdlr", "pitm", "iloc", "iinf", "iprp", "iref":
				return fmt.Errorf("%w: duplicate %s box", ErrInvalidBox, typ)
			}
		}
		seen[typ] = true
		if err := f.parseMetaChild(typ, c); err != nil {
			return fmt.Errorf("%s: %w", typ, err)
		}
	}
	for _, typ := range requiredMeta {
		if !seen[typ] {
			return fmt.Errorf("%w: %s", ErrMissingBox, typ)
		}
	}
	return nil
}

func (f *File) parseMetaChild(typ string, c bmff.Box) error {
	switch typ {
	case "iref":
		body, err := io.ReadAll(c.Body())
		if err != nil {
			return err
		}
		return f.parseIref(body)
	case "hdlr", "pitm", "iinf", "iloc", "iprp":
	default:
		return nil
	}

	p, err := c.Parse()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBox, err)
	}
	switch v := p.(type) {
	case *bmff.HandlerBox:
		f.Handler = v.HandlerType
	case *bmff.PrimaryItemBox:
		f.PrimaryItemID = uint32(v.ItemID)
	case *bmff.ItemInfoBox:
		for _, e := range v.ItemInfos {
			f.Items = append(f.Items, Item{ID: uint32(e.ItemID), Type: e.ItemType})
		}
	case *bmff.ItemLocationBox:
		for _, e := range v.Items {
			loc := Location{
				ItemID:             uint32(e.ItemID),
				ConstructionMethod: e.ConstructionMethod,
				DataReferenceIndex: e.DataReferenceIndex,
				BaseOffset:         e.BaseOffset,
			}
			for _, ex := range e.Extents {
				loc.Extents = append(loc.Extents, Extent{Offset: ex.Offset, Length: ex.Length})
			}
			f.Locations = append(f.Locations, loc)
		}
	case *bmff.ItemPropertiesBox:
		return f.parseProperties(v)
	}
	return nil
}

func (f *File) parseProperties(ip *bmff.ItemPropertiesBox) error {
	if ip.PropertyContainer == nil {
		return fmt.Errorf("%w: iprp without ipco", ErrInvalidBox)
	}
	for _, b := range ip.PropertyContainer.Properties {
		p, err := decodeProperty(b)
		if err != nil {
			return fmt.Errorf("%s: %w", b.Type(), err)
		}
		f.Properties = append(f.Properties, p)
	}
	for _, ipma := range ip.Associations {
		for _, e := range ipma.Entries {
			if _, dup := f.Associations[e.ItemID]; dup {
				return fmt.Errorf("%w: item %d associated twice", ErrInvalidBox, e.ItemID)
			}
			assocs := make([]Association, 0, len(e.Associations))
			for _, a := range e.Associations {
				if int(a.Index) > len(f.Properties) {
					return fmt.Errorf("%w: item %d references property %d of %d", ErrInvalidBox, e.ItemID, a.Index, len(f.Properties))
				}
				assocs = append(assocs, Association{Index: a.Index, Essential: a.Essential})
			}
			f.Associations[e.ItemID] = assocs
		}
	}
	return nil
}

// resolveItems looks up the primary item and the image size of every item
// through the HEIF item model.
func (f *File) resolveItems(hf *heif.File) error {
	primary, err := hf.PrimaryItem()
	if errors.Is(err, heif.ErrUnknownItem) {
		return fmt.Errorf("%w: primary item %d is not declared", ErrNoSuchItem, f.PrimaryItemID)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBox, err)
	}
	f.PrimaryItemID = primary.ID
	for i := range f.Items {
		it, err := hf.ItemByID(f.Items[i].ID)
		if err != nil {
			continue
		}
		if w, h, ok := it.SpatialExtents(); ok {
			f.Items[i].Width, f.Items[i].Height = uint32(w), uint32(h)
		}
	}
	return nil
}
