package avifmux

import (
	"fmt"
	"math"
)

// extent is a byte range of the payload section. offset is relative to the
// first payload byte until the iloc box is written.
type extent struct {
	offset uint64
	length uint64
}

type locationEntry struct {
	itemID  uint16
	extents []extent
}

// payloadSection is the ordered list of buffers that make up mdat.
type payloadSection struct {
	chunks [][]byte
	length uint64
}

// append adds data to the end of the payload and returns the extent it
// occupies.
func (p *payloadSection) append(data []byte) extent {
	ex := extent{offset: p.length, length: uint64(len(data))}
	p.chunks = append(p.chunks, data)
	p.length += uint64(len(data))
	return ex
}

// locationTable is the iloc box. baseOffset is the absolute file position of
// the payload section; it is folded into every extent on write, so the box
// itself carries no base_offset field and extent offsets are absolute.
type locationTable struct {
	entries    []locationEntry
	baseOffset uint64
	// wide selects 8-byte offset and length fields.
	wide bool
}

func (t *locationTable) add(itemID uint16, extents ...extent) {
	t.entries = append(t.entries, locationEntry{itemID: itemID, extents: extents})
}

// needsWide reports whether the payload section ends past what 4-byte
// offsets can address.
func (t *locationTable) needsWide(p *payloadSection) bool {
	return t.baseOffset > math.MaxUint32 || p.length > math.MaxUint32-t.baseOffset
}

func (t *locationTable) fieldSize() uint8 {
	if t.wide {
		return 8
	}
	return 4
}

func (t *locationTable) size() uint64 {
	fs := uint64(t.fieldSize())
	n := uint64(1 + 1 + 2)
	for _, e := range t.entries {
		n += 2 + 2 + 2 + uint64(len(e.extents))*2*fs
	}
	return fullBoxSize(n)
}

func (t *locationTable) write(bw *boxWriter) {
	fs := t.fieldSize()
	bw.fullHeader(typeIloc, t.size(), 0, 0)
	bw.u8(fs<<4 | fs)
	bw.u8(0) // base_offset_size, reserved
	bw.u16(uint16(len(t.entries)))
	for _, e := range t.entries {
		bw.u16(e.itemID)
		bw.u16(0) // data_reference_index: this file
		bw.u16(uint16(len(e.extents)))
		for _, ex := range e.extents {
			bw.uintN(fs, t.baseOffset+ex.offset)
			bw.uintN(fs, ex.length)
		}
	}
}

// check validates the table against the payload section it describes.
func (t *locationTable) check(p *payloadSection) error {
	if !t.wide && t.needsWide(p) {
		return fmt.Errorf("%w: payload [%d,+%d) needs wide iloc fields", ErrSizeOverflow, t.baseOffset, p.length)
	}
	if p.length > math.MaxUint64-t.baseOffset {
		return fmt.Errorf("%w: payload [%d,+%d) ends past 64-bit offsets", ErrSizeOverflow, t.baseOffset, p.length)
	}
	if len(t.entries) > math.MaxUint16 {
		return fmt.Errorf("%w: %d location entries", ErrSizeOverflow, len(t.entries))
	}
	seen := make(map[uint16]struct{}, len(t.entries))
	for _, e := range t.entries {
		if _, ok := seen[e.itemID]; ok {
			return fmt.Errorf("%w: item %d has more than one location entry", ErrValidation, e.itemID)
		}
		seen[e.itemID] = struct{}{}
		if len(e.extents) == 0 || len(e.extents) > math.MaxUint16 {
			return fmt.Errorf("%w: item %d has %d extents", ErrValidation, e.itemID, len(e.extents))
		}
		for _, ex := range e.extents {
			if ex.offset > p.length || ex.length > p.length-ex.offset {
				return fmt.Errorf("%w: item %d extent [%d,+%d) outside %d-byte payload", ErrValidation, e.itemID, ex.offset, ex.length, p.length)
			}
		}
	}
	return nil
}
