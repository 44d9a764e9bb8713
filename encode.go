package avifmux

import (
	"bytes"
	"io"
)

const av1LevelUnconstrained = 31

// Serialize writes an AVIF file to w from already-encoded AV1 data.
//
// color is the AV1 bitstream of the color image, which must be encoded without
// chroma subsampling (4:4:4). alpha is an optional monochrome (4:0:0) AV1
// bitstream holding transparency; pass nil when the image is opaque. Both
// planes must have the given width and height and be encoded at depthBits
// (8, 10 or 12). The bitstreams are not inspected.
//
// The file is written in a single forward pass, so w need not be seekable.
// A write error aborts immediately and is returned unchanged; w is left
// holding whatever was written before the failure.
//
// Use Option functions to customize the output:
//   - WithPremultipliedAlpha(true): mark the color item as premultiplied by alpha
func Serialize(w io.Writer, color, alpha []byte, width, height uint32, depthBits uint8, opts ...Option) error {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	f, err := buildFile(color, alpha, width, height, depthBits, cfg)
	if err != nil {
		return err
	}
	return f.write(w)
}

// SerializeToBuffer is like Serialize but returns the file as a byte slice.
// Writing to memory cannot fail.
func SerializeToBuffer(color, alpha []byte, width, height uint32, depthBits uint8, opts ...Option) []byte {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	f, err := buildFile(color, alpha, width, height, depthBits, cfg)
	if err != nil {
		panic(err)
	}
	var buf bytes.Buffer
	buf.Grow(int(f.size()))
	if err := f.write(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// buildFile assembles the descriptor for a color item and an optional alpha item.
func buildFile(color, alpha []byte, width, height uint32, depthBits uint8, cfg writeConfig) (*avifFile, error) {
	hasAlpha := len(alpha) > 0
	highBitdepth := depthBits >= 10
	twelveBit := depthBits >= 12

	f := newFile()
	f.pitm.itemID = ColorItemID

	f.addItem(ColorItemID, itemTypeAV01, "")
	ispe := f.ipco.push(spatialExtents(width, height))
	colorProfile := uint8(1) // High: 4:4:4
	if twelveBit {
		colorProfile = 2
	}
	colorAV1 := f.ipco.push(codecConfig(av1Config{
		seqProfile:   colorProfile,
		seqLevelIdx0: av1LevelUnconstrained,
		highBitdepth: highBitdepth,
		twelveBit:    twelveBit,
	}))
	// pixi repeats what av1C already says, but some decoders require it.
	colorPixi := f.ipco.push(pixelInfo(3, 8))
	if err := f.ipma.associate(ColorItemID, ispe, colorAV1.essential(), colorPixi); err != nil {
		return nil, err
	}

	if !hasAlpha {
		f.iloc.add(ColorItemID, f.payload.append(color))
		return f, nil
	}

	f.addItem(AlphaItemID, itemTypeAV01, "")
	alphaProfile := uint8(0) // Main: allows 4:0:0
	if twelveBit {
		alphaProfile = 2
	}
	alphaAV1 := f.ipco.push(codecConfig(av1Config{
		seqProfile:         alphaProfile,
		seqLevelIdx0:       av1LevelUnconstrained,
		highBitdepth:       highBitdepth,
		twelveBit:          twelveBit,
		monochrome:         true,
		chromaSubsamplingX: true,
		chromaSubsamplingY: true,
	}))
	alphaPixi := f.ipco.push(pixelInfo(1, 8))
	auxC := f.ipco.push(auxiliaryType(AlphaURN))
	if err := f.ipma.associate(AlphaItemID, ispe, alphaAV1.essential(), auxC, alphaPixi); err != nil {
		return nil, err
	}

	f.addReference(RefAuxiliary, AlphaItemID, ColorItemID)
	if cfg.premultipliedAlpha {
		f.addReference(RefPremultiplied, ColorItemID, AlphaItemID)
	}

	// mdat holds alpha first, then color; iloc lists color first.
	alphaExt := f.payload.append(alpha)
	colorExt := f.payload.append(color)
	f.iloc.add(ColorItemID, colorExt)
	f.iloc.add(AlphaItemID, alphaExt)
	return f, nil
}
