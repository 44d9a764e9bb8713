// Package bitstream loads encoded AV1 bitstreams for muxing. Encoder farms
// often archive their output compressed, so inputs may be plain, or wrapped in
// a ZIP, Zstandard, LZ4 or Brotli container.
package bitstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrLimitExceeded  = errors.New("bitstream: limit exceeded")
	ErrInvalidPayload = errors.New("bitstream: invalid payload")
)

type Compression uint8

const (
	CompNone Compression = iota
	CompZIP
	CompZSTD
	CompLZ4
	CompBR
)

func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompZIP:
		return "zip"
	case CompZSTD:
		return "zstd"
	case CompLZ4:
		return "lz4"
	case CompBR:
		return "brotli"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

var (
	magicZstd = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicLZ4  = []byte{0x04, 0x22, 0x4D, 0x18}
	magicZIP  = []byte{'P', 'K', 0x03, 0x04}
)

// Detect picks the compression of an input from its leading bytes, falling
// back to the file extension for Brotli, which has no magic number.
func Detect(name string, head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, magicZstd):
		return CompZSTD
	case bytes.HasPrefix(head, magicLZ4):
		return CompLZ4
	case bytes.HasPrefix(head, magicZIP):
		return CompZIP
	}
	if strings.EqualFold(filepath.Ext(name), ".br") {
		return CompBR
	}
	return CompNone
}

// Read loads one bitstream from r. name is only used for detection.
func Read(r io.Reader, name string, limits Limits) ([]byte, Compression, error) {
	limits = limits.withDefaults()
	stored, err := readAll(limitReader(r, limits.MaxStoredLen))
	if err != nil {
		return nil, CompNone, err
	}
	if uint64(len(stored)) > limits.MaxStoredLen {
		return nil, CompNone, fmt.Errorf("%w: %s exceeds %d stored bytes", ErrLimitExceeded, name, limits.MaxStoredLen)
	}
	comp := Detect(name, stored)
	out, err := decompress(comp, stored, limits.MaxDecodedLen)
	if err != nil {
		return nil, comp, fmt.Errorf("%s: %w", name, err)
	}
	if len(out) == 0 {
		return nil, comp, fmt.Errorf("%w: %s is empty", ErrInvalidPayload, name)
	}
	return out, comp, nil
}

// ReadFile is Read on a file path.
func ReadFile(path string, limits Limits) ([]byte, Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CompNone, err
	}
	defer f.Close()
	return Read(f, path, limits)
}
