package avifparse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"go4.org/media/heif/bmff"
)

// childOffset reports whether a box holds child boxes and how many body bytes
// precede the first child.
func childOffset(typ string, body []byte) (int, bool) {
	switch typ {
	case "meta", "iref":
		return 4, true
	case "iprp", "ipco", "dinf":
		return 0, true
	case "iinf":
		if len(body) > 0 && body[0] > 0 {
			return 4 + 4, true
		}
		return 4 + 2, true
	}
	return 0, false
}

// readTree walks the boxes in data[start:end]. Offsets are absolute.
func readTree(data []byte, start, end uint64) ([]*Node, error) {
	var nodes []*Node
	r := bmff.NewReader(bytes.NewReader(data[start:end]))
	off := start
	for {
		b, err := r.ReadBox()
		if err == io.EOF {
			return nodes, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: at offset %d: %v", ErrInvalidBox, off, err)
		}
		hdr := uint64(8)
		if binary.BigEndian.Uint32(data[off:]) == 1 {
			hdr = 16
		}
		size := uint64(b.Size())
		if size == 0 {
			size = end - off
		}
		if size < hdr || size > end-off {
			return nil, fmt.Errorf("%w: %q at offset %d declares %d bytes, %d available", ErrInvalidBox, b.Type(), off, size, end-off)
		}

		n := &Node{Type: b.Type().String(), Offset: off, Size: size}
		body := data[off+hdr : off+size]
		if skip, ok := childOffset(n.Type, body); ok {
			if skip > len(body) {
				return nil, fmt.Errorf("%w: %s too short", ErrInvalidBox, n.Type)
			}
			n.Children, err = readTree(data, off+hdr+uint64(skip), off+size)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", n.Type, err)
			}
		}
		nodes = append(nodes, n)
		off += size
	}
}
