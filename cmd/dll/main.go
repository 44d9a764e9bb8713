// Package main provides C-compatible exports for the avifmux library.
// Build with: go build -buildmode=c-shared -o avifmux.dll
package main

/*
#include <stdlib.h>
#include <stdint.h>

// Result structure for operations that return data
typedef struct {
    char* data;
    int   data_len;
    char* error;
} AvifmuxResult;
*/
import "C"

import (
	"unsafe"
)

func main() {}

// AvifmuxFreeResult frees memory allocated by other Avifmux functions.
// Must be called to avoid memory leaks.
//
//export AvifmuxFreeResult
func AvifmuxFreeResult(result C.AvifmuxResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// AvifmuxFreeString frees a C string allocated by Go.
//
//export AvifmuxFreeString
func AvifmuxFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func makeResult(data []byte) C.AvifmuxResult {
	var result C.AvifmuxResult
	if len(data) > 0 {
		result.data = (*C.char)(C.CBytes(data))
		result.data_len = C.int(len(data))
	}
	return result
}

func makeError(err error) C.AvifmuxResult {
	var result C.AvifmuxResult
	result.error = C.CString(err.Error())
	return result
}

func goBytes(p *C.char, n C.int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), n)
}

// AvifmuxSerialize wraps AV1 bitstreams in an AVIF file.
// Parameters:
//   - color: AV1 color bitstream (4:4:4)
//   - colorLen: length of color
//   - alpha: AV1 alpha bitstream (4:0:0), or NULL for an opaque image
//   - alphaLen: length of alpha
//   - width, height: image dimensions in pixels
//   - depth: bit depth (8, 10 or 12)
//   - premultiplied: non-zero marks the color as premultiplied by alpha
//
// Returns AvifmuxResult with the file bytes or error. Call AvifmuxFreeResult when done.
//
//export AvifmuxSerialize
func AvifmuxSerialize(
	color *C.char,
	colorLen C.int,
	alpha *C.char,
	alphaLen C.int,
	width C.uint32_t,
	height C.uint32_t,
	depth C.uint8_t,
	premultiplied C.int,
) C.AvifmuxResult {
	out, err := serialize(
		goBytes(color, colorLen),
		goBytes(alpha, alphaLen),
		uint32(width), uint32(height), uint8(depth),
		premultiplied != 0,
	)
	if err != nil {
		return makeError(err)
	}
	return makeResult(out)
}

// AvifmuxInspect parses an AVIF file and returns a JSON description of its
// brands, items, properties and references.
//
// Returns AvifmuxResult with a JSON string or error. Call AvifmuxFreeResult when done.
//
//export AvifmuxInspect
func AvifmuxInspect(data *C.char, dataLen C.int) C.AvifmuxResult {
	out, err := inspect(goBytes(data, dataLen))
	if err != nil {
		return makeError(err)
	}
	return makeResult(out)
}

// AvifmuxGetItemData returns the bitstream of one item. Use item ID 1 for the
// color image and 2 for alpha in files written by AvifmuxSerialize.
//
// Returns AvifmuxResult with the bitstream or error. Call AvifmuxFreeResult when done.
//
//export AvifmuxGetItemData
func AvifmuxGetItemData(data *C.char, dataLen C.int, itemID C.uint32_t) C.AvifmuxResult {
	out, err := itemData(goBytes(data, dataLen), uint32(itemID))
	if err != nil {
		return makeError(err)
	}
	return makeResult(out)
}

// AvifmuxValidate parses an AVIF file and checks that its primary item data
// is reachable. Returns NULL on success, or an error message string on failure.
// Call AvifmuxFreeString on the result if non-NULL.
//
//export AvifmuxValidate
func AvifmuxValidate(data *C.char, dataLen C.int) *C.char {
	if err := validate(goBytes(data, dataLen)); err != nil {
		return C.CString(err.Error())
	}
	return nil
}
