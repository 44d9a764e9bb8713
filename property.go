package avifmux

import (
	"fmt"
	"math"
)

type propertyKind uint8

const (
	propSpatialExtents propertyKind = iota + 1
	propCodecConfig
	propPixelInfo
	propAuxType
)

// av1Config is the payload of an av1C box (AV1CodecConfigurationRecord
// without configOBUs).
type av1Config struct {
	seqProfile           uint8
	seqLevelIdx0         uint8
	seqTier0             bool
	highBitdepth         bool
	twelveBit            bool
	monochrome           bool
	chromaSubsamplingX   bool
	chromaSubsamplingY   bool
	chromaSamplePosition uint8
}

// property is an item property. Exactly one group of fields is meaningful,
// selected by kind.
type property struct {
	kind propertyKind

	// ispe
	width, height uint32
	// av1C
	av1 av1Config
	// pixi
	bitsPerChannel []uint8
	// auxC
	auxType string
}

func spatialExtents(width, height uint32) property {
	return property{kind: propSpatialExtents, width: width, height: height}
}

func codecConfig(c av1Config) property {
	return property{kind: propCodecConfig, av1: c}
}

func pixelInfo(channels int, depth uint8) property {
	bits := make([]uint8, channels)
	for i := range bits {
		bits[i] = depth
	}
	return property{kind: propPixelInfo, bitsPerChannel: bits}
}

func auxiliaryType(urn string) property {
	return property{kind: propAuxType, auxType: urn}
}

func (p *property) size() uint64 {
	switch p.kind {
	case propSpatialExtents:
		return fullBoxSize(4 + 4)
	case propCodecConfig:
		return boxSize(4)
	case propPixelInfo:
		return fullBoxSize(1 + uint64(len(p.bitsPerChannel)))
	case propAuxType:
		return fullBoxSize(uint64(len(p.auxType)) + 1)
	}
	panic(fmt.Sprintf("avifmux: unknown property kind %d", p.kind))
}

func (p *property) write(bw *boxWriter) {
	switch p.kind {
	case propSpatialExtents:
		bw.fullHeader(typeIspe, p.size(), 0, 0)
		bw.u32(p.width)
		bw.u32(p.height)
	case propCodecConfig:
		bw.header(typeAv1C, p.size())
		c := p.av1
		bw.u8(0x81) // marker, version 1
		bw.u8(c.seqProfile<<5 | c.seqLevelIdx0&0x1F)
		bw.u8(bit(c.seqTier0)<<7 |
			bit(c.highBitdepth)<<6 |
			bit(c.twelveBit)<<5 |
			bit(c.monochrome)<<4 |
			bit(c.chromaSubsamplingX)<<3 |
			bit(c.chromaSubsamplingY)<<2 |
			c.chromaSamplePosition&0x03)
		bw.u8(0) // no initial_presentation_delay
	case propPixelInfo:
		bw.fullHeader(typePixi, p.size(), 0, 0)
		bw.u8(uint8(len(p.bitsPerChannel)))
		for _, b := range p.bitsPerChannel {
			bw.u8(b)
		}
	case propAuxType:
		bw.fullHeader(typeAuxC, p.size(), 0, 0)
		bw.cstring(p.auxType)
	default:
		panic(fmt.Sprintf("avifmux: unknown property kind %d", p.kind))
	}
}

func bit(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// propertyIndex is a 1-based index into the property table. The high bit
// marks the association as essential.
type propertyIndex uint16

const essentialBit propertyIndex = 0x8000

func (i propertyIndex) essential() propertyIndex { return i | essentialBit }

func (i propertyIndex) index() uint16 { return uint16(i &^ essentialBit) }

func (i propertyIndex) isEssential() bool { return i&essentialBit != 0 }

// propertyTable is the ipco box. It never deduplicates.
type propertyTable struct {
	props []property
}

// push appends p and returns its 1-based index.
func (t *propertyTable) push(p property) propertyIndex {
	t.props = append(t.props, p)
	return propertyIndex(len(t.props))
}

func (t *propertyTable) size() uint64 {
	var n uint64
	for i := range t.props {
		n += t.props[i].size()
	}
	return boxSize(n)
}

func (t *propertyTable) write(bw *boxWriter) {
	bw.header(typeIpco, t.size())
	for i := range t.props {
		t.props[i].write(bw)
	}
}

type association struct {
	itemID uint16
	props  []propertyIndex
}

// associationTable is the ipma box. It is bound to the property table its
// indices point into.
type associationTable struct {
	table   *propertyTable
	entries []association
}

// associate records the ordered properties of itemID. Each item may be
// associated once, and only with properties already pushed.
func (a *associationTable) associate(itemID uint16, props ...propertyIndex) error {
	for _, e := range a.entries {
		if e.itemID == itemID {
			return fmt.Errorf("%w: item %d already associated", ErrInvalidProperty, itemID)
		}
	}
	for _, p := range props {
		if idx := p.index(); idx == 0 || int(idx) > len(a.table.props) {
			return fmt.Errorf("%w: item %d references property %d of %d", ErrInvalidProperty, itemID, idx, len(a.table.props))
		}
	}
	a.entries = append(a.entries, association{itemID: itemID, props: props})
	return nil
}

// wide reports whether indices need the 15-bit encoding (flags bit 0).
func (a *associationTable) wide() bool {
	for _, e := range a.entries {
		for _, p := range e.props {
			if p.index() > 0x7F {
				return true
			}
		}
	}
	return false
}

func (a *associationTable) size() uint64 {
	per := uint64(1)
	if a.wide() {
		per = 2
	}
	n := uint64(4) // entry_count
	for _, e := range a.entries {
		n += 2 + 1 + per*uint64(len(e.props))
	}
	return fullBoxSize(n)
}

func (a *associationTable) write(bw *boxWriter) {
	wide := a.wide()
	var flags uint32
	if wide {
		flags = 1
	}
	bw.fullHeader(typeIpma, a.size(), 0, flags)
	bw.u32(uint32(len(a.entries)))
	for _, e := range a.entries {
		bw.u16(e.itemID)
		bw.u8(uint8(len(e.props)))
		for _, p := range e.props {
			if wide {
				bw.u16(uint16(p))
			} else {
				bw.u8(uint8(p.index()) | bit(p.isEssential())<<7)
			}
		}
	}
}

// check reports associations whose encoding would not fit the ipma fields.
func (a *associationTable) check() error {
	if len(a.table.props) > 0x7FFF {
		return fmt.Errorf("%w: %d properties exceed 15-bit index", ErrSizeOverflow, len(a.table.props))
	}
	for _, e := range a.entries {
		if len(e.props) > math.MaxUint8 {
			return fmt.Errorf("%w: item %d has %d associations", ErrSizeOverflow, e.itemID, len(e.props))
		}
	}
	return nil
}
