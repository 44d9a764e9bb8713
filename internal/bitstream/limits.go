package bitstream

import (
	"io"
	"math"
)

type Limits struct {
	MaxStoredLen  uint64 // bytes as read from disk, before decompression
	MaxDecodedLen uint64 // bytes after decompression
}

func defaultLimits() Limits {
	return Limits{
		MaxStoredLen:  1 << 30, // 1 GiB
		MaxDecodedLen: 2 << 30, // 2 GiB
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxStoredLen == 0 {
		l.MaxStoredLen = d.MaxStoredLen
	}
	if l.MaxDecodedLen == 0 {
		l.MaxDecodedLen = d.MaxDecodedLen
	}
	return l
}

// limitReader reads at most maxLen+1 bytes from r, so a caller can tell an
// input of exactly maxLen bytes from a longer one. Limits beyond what an
// io.LimitReader can count are treated as unlimited.
func limitReader(r io.Reader, maxLen uint64) io.Reader {
	if maxLen >= math.MaxInt64 {
		return r
	}
	return io.LimitReader(r, int64(maxLen)+1)
}
