// Package avifmux writes AVIF image files from already-encoded AV1 data.
//
// AVIF is an ISO Base Media File Format (HEIF) container. This package does not
// encode pixels: it takes the AV1 bitstream of a color image, plus an optional
// monochrome AV1 bitstream for alpha, and wraps them in the minimal box
// structure that AVIF readers expect.
//
// # File Layout
//
// A file written by this package consists of three top-level boxes:
//   - ftyp: major brand "avif", compatible brands "mif1" and "miaf"
//   - meta: handler, item infos, primary item, item locations, item
//     properties and, when alpha is present, item references
//   - mdat: the raw bitstreams, alpha first, then color
//
// The color item always has ID 1 and is the primary item. The alpha item, if
// any, has ID 2 and is linked to the color item with an "auxl" reference.
//
// # Basic Usage
//
//	f, _ := os.Create("image.avif")
//	defer f.Close()
//	err := avifmux.Serialize(f, colorAV1, nil, 640, 480, 8)
//
// With alpha, into memory:
//
//	b := avifmux.SerializeToBuffer(colorAV1, alphaAV1, 640, 480, 10,
//		avifmux.WithPremultipliedAlpha(true))
//
// # Sizes
//
// Every box size is computed before the first byte is written, so output can
// go to a non-seekable stream. Boxes whose length does not fit in 32 bits use
// the 64-bit largesize header, and item locations switch to 8-byte fields when
// the payload exceeds 4 GiB.
package avifmux
