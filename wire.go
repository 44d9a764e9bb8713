package avifmux

import (
	"encoding/binary"
	"io"
	"math"
)

const (
	boxHeaderLen      = 8
	largeBoxHeaderLen = 16
	fullBoxLen        = 4 // version + 24-bit flags
)

// boxWriter writes big-endian fields to w. The first write error is sticky:
// every later call is a no-op and err reports the original failure.
type boxWriter struct {
	w   io.Writer
	err error
	buf [16]byte
}

func newBoxWriter(w io.Writer) *boxWriter {
	return &boxWriter{w: w}
}

func (bw *boxWriter) bytes(p []byte) {
	if bw.err != nil || len(p) == 0 {
		return
	}
	_, bw.err = bw.w.Write(p)
}

func (bw *boxWriter) u8(v uint8) {
	bw.buf[0] = v
	bw.bytes(bw.buf[:1])
}

func (bw *boxWriter) u16(v uint16) {
	binary.BigEndian.PutUint16(bw.buf[:2], v)
	bw.bytes(bw.buf[:2])
}

func (bw *boxWriter) u32(v uint32) {
	binary.BigEndian.PutUint32(bw.buf[:4], v)
	bw.bytes(bw.buf[:4])
}

func (bw *boxWriter) u64(v uint64) {
	binary.BigEndian.PutUint64(bw.buf[:8], v)
	bw.bytes(bw.buf[:8])
}

// uintN writes v using n bytes (0, 4 or 8), matching the iloc field-size encoding.
func (bw *boxWriter) uintN(n uint8, v uint64) {
	switch n {
	case 0:
	case 4:
		bw.u32(uint32(v))
	case 8:
		bw.u64(v)
	default:
		panic("avifmux: unsupported field width")
	}
}

func (bw *boxWriter) fourCC(c FourCC) {
	bw.bytes(c[:])
}

// cstring writes s followed by a NUL terminator.
func (bw *boxWriter) cstring(s string) {
	bw.bytes([]byte(s))
	bw.u8(0)
}

// header writes a box header for a box of the given total size, using the
// 64-bit largesize form when size does not fit the 32-bit field.
func (bw *boxWriter) header(typ FourCC, size uint64) {
	if size > math.MaxUint32 {
		bw.u32(1)
		bw.fourCC(typ)
		bw.u64(size)
		return
	}
	bw.u32(uint32(size))
	bw.fourCC(typ)
}

func (bw *boxWriter) fullHeader(typ FourCC, size uint64, version uint8, flags uint32) {
	bw.header(typ, size)
	bw.u32(uint32(version)<<24 | flags&0xFFFFFF)
}

// boxSize returns the total length of a box carrying contentLen bytes after its header.
func boxSize(contentLen uint64) uint64 {
	if contentLen > math.MaxUint32-boxHeaderLen {
		return contentLen + largeBoxHeaderLen
	}
	return contentLen + boxHeaderLen
}

// fullBoxSize is boxSize for boxes that start with version and flags.
func fullBoxSize(contentLen uint64) uint64 {
	return boxSize(fullBoxLen + contentLen)
}
