package bitstream

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Function variables for testing injection.
var (
	newZstdReader = func(r io.Reader) (*zstd.Decoder, error) { return zstd.NewReader(r) }
	zipOpen       = func(zf *zip.File) (io.ReadCloser, error) { return zf.Open() }
	readAll       = io.ReadAll
)

// decompress expands stored according to comp. Output longer than maxLen is
// rejected without being fully materialized.
func decompress(comp Compression, stored []byte, maxLen uint64) ([]byte, error) {
	switch comp {
	case CompNone:
		if uint64(len(stored)) > maxLen {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrLimitExceeded, len(stored), maxLen)
		}
		return stored, nil
	case CompZIP:
		return zipDecompress(stored, maxLen)
	case CompZSTD:
		return zstdDecompress(stored, maxLen)
	case CompLZ4:
		return lz4Decompress(stored, maxLen)
	case CompBR:
		return brotliDecompress(stored, maxLen)
	}
	return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidPayload, comp)
}

// readLimited reads r to the end, failing once more than maxLen bytes appear.
func readLimited(r io.Reader, maxLen uint64, algo string) ([]byte, error) {
	b, err := readAll(limitReader(r, maxLen))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > maxLen {
		return nil, fmt.Errorf("%w: %s expanded beyond %d bytes", ErrLimitExceeded, algo, maxLen)
	}
	return b, nil
}

// zipDecompress extracts the single file entry of a ZIP archive.
func zipDecompress(zipBytes []byte, maxLen uint64) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) != 1 {
		return nil, fmt.Errorf("%w: zip must contain exactly one entry, has %d", ErrInvalidPayload, len(zr.File))
	}
	zf := zr.File[0]
	if zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("%w: zip entry must be a file", ErrInvalidPayload)
	}
	if zf.UncompressedSize64 > maxLen {
		return nil, fmt.Errorf("%w: zip entry %q is %d bytes", ErrLimitExceeded, zf.Name, zf.UncompressedSize64)
	}
	rc, err := zipOpen(zf)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readLimited(rc, maxLen, "zip")
}

// zstdDecompress decompresses a Zstandard frame sequence.
func zstdDecompress(in []byte, maxLen uint64) ([]byte, error) {
	dec, err := newZstdReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return readLimited(dec, maxLen, "zstd")
}

// lz4Decompress decompresses an LZ4 frame.
func lz4Decompress(in []byte, maxLen uint64) ([]byte, error) {
	return readLimited(lz4.NewReader(bytes.NewReader(in)), maxLen, "lz4")
}

// brotliDecompress decompresses a Brotli stream.
func brotliDecompress(in []byte, maxLen uint64) ([]byte, error) {
	return readLimited(brotli.NewReader(bytes.NewReader(in)), maxLen, "brotli")
}
