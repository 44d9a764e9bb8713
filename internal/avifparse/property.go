package avifparse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"go4.org/media/heif/bmff"
)

func decodeProperty(b bmff.Box) (Property, error) {
	raw, err := io.ReadAll(b.Body())
	if err != nil {
		return Property{}, err
	}
	p := Property{Type: b.Type().String(), Raw: raw}
	switch p.Type {
	case "ispe":
		v, err := b.Parse()
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidBox, err)
		}
		if ispe, ok := v.(*bmff.ImageSpatialExtentsProperty); ok {
			p.Width, p.Height = ispe.ImageWidth, ispe.ImageHeight
		}
	case "av1C":
		p.AV1, err = decodeAV1Config(raw)
	case "pixi":
		p.BitsPerChannel, err = decodePixi(raw)
	case "auxC":
		p.AuxType, err = decodeAuxC(raw)
	}
	return p, err
}

func decodeAV1Config(b []byte) (*AV1Config, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: av1C has %d bytes", ErrInvalidBox, len(b))
	}
	if b[0] != 0x81 {
		return nil, fmt.Errorf("%w: marker/version byte %#x", ErrInvalidBox, b[0])
	}
	return &AV1Config{
		SeqProfile:           b[1] >> 5,
		SeqLevelIdx0:         b[1] & 0x1F,
		SeqTier0:             b[2]&0x80 != 0,
		HighBitdepth:         b[2]&0x40 != 0,
		TwelveBit:            b[2]&0x20 != 0,
		Monochrome:           b[2]&0x10 != 0,
		ChromaSubsamplingX:   b[2]&0x08 != 0,
		ChromaSubsamplingY:   b[2]&0x04 != 0,
		ChromaSamplePosition: b[2] & 0x03,
	}, nil
}

func decodePixi(b []byte) ([]uint8, error) {
	if len(b) < 5 || len(b) < 5+int(b[4]) {
		return nil, fmt.Errorf("%w: truncated pixi", ErrInvalidBox)
	}
	return append([]uint8(nil), b[5:5+int(b[4])]...), nil
}

func decodeAuxC(b []byte) (string, error) {
	if len(b) < 4 {
		return "", fmt.Errorf("%w: truncated auxC", ErrInvalidBox)
	}
	i := bytes.IndexByte(b[4:], 0)
	if i < 0 {
		return "", fmt.Errorf("%w: unterminated auxC type", ErrInvalidBox)
	}
	return string(b[4 : 4+i]), nil
}

// parseIref decodes the body of an iref box. Each child box is one reference:
// its type is the reference type, followed by from_item_ID, reference_count
// and the to_item_IDs, with 16-bit IDs in version 0 and 32-bit in version 1.
func (f *File) parseIref(body []byte) error {
	if len(body) < 4 {
		return fmt.Errorf("%w: iref too short", ErrInvalidBox)
	}
	idLen := 2
	if body[0] > 0 {
		idLen = 4
	}
	r := bmff.NewReader(bytes.NewReader(body[4:]))
	for {
		b, err := r.ReadBox()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBox, err)
		}
		e, err := io.ReadAll(b.Body())
		if err != nil {
			return err
		}
		ref, err := decodeReference(b.Type().String(), e, idLen)
		if err != nil {
			return err
		}
		f.References = append(f.References, ref)
	}
}

func decodeReference(typ string, b []byte, idLen int) (Reference, error) {
	id := func(p []byte) uint32 {
		if idLen == 2 {
			return uint32(binary.BigEndian.Uint16(p))
		}
		return binary.BigEndian.Uint32(p)
	}
	ref := Reference{Type: typ}
	if len(b) < idLen+2 {
		return ref, fmt.Errorf("%w: truncated %s reference", ErrInvalidBox, typ)
	}
	ref.From = id(b)
	n := int(binary.BigEndian.Uint16(b[idLen:]))
	b = b[idLen+2:]
	if len(b) < n*idLen {
		return ref, fmt.Errorf("%w: %s reference declares %d targets, %d bytes left", ErrInvalidBox, typ, n, len(b))
	}
	for i := 0; i < n; i++ {
		ref.To = append(ref.To, id(b[i*idLen:]))
	}
	return ref, nil
}
