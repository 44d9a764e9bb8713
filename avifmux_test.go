package avifmux

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"go4.org/media/heif"

	"github.com/logicossoftware/go-avifmux/internal/avifparse"
)

// errAfterWriter accepts writes until remaining bytes run out, then fails.
type errAfterWriter struct {
	remaining int
	calls     int
	failed    int
	afterFail int
}

func (w *errAfterWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.failed > 0 {
		w.afterFail++
	}
	if len(p) > w.remaining {
		w.failed++
		return 0, io.ErrClosedPipe
	}
	w.remaining -= len(p)
	return len(p), nil
}

func mustParse(t *testing.T, b []byte) *avifparse.File {
	t.Helper()
	f, err := avifparse.Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func TestRoundTrip_ColorOnly(t *testing.T) {
	img := []byte("av12356abc")
	out := SerializeToBuffer(img, nil, 10, 20, 8)
	f := mustParse(t, out)

	got, err := f.PrimaryData()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, img) {
		t.Fatalf("primary data %q, want %q", got, img)
	}
	if len(f.Items) != 1 || len(f.Locations) != 1 || len(f.References) != 0 {
		t.Fatalf("items=%d locations=%d refs=%d", len(f.Items), len(f.Locations), len(f.References))
	}
	start := uint64(len(out) - len(img))
	if ex := f.Locations[0].Extents; len(ex) != 1 || ex[0].Offset != start || ex[0].Length != uint64(len(img)) {
		t.Fatalf("extents %+v", ex)
	}
	if _, ok := f.AlphaItemID(); ok {
		t.Fatal("unexpected alpha item")
	}
}

func TestRoundTrip_ColorAndAlpha(t *testing.T) {
	img := []byte{1, 2, 3, 4, 5, 6}
	alpha := []byte{77, 88, 99}
	f := mustParse(t, SerializeToBuffer(img, alpha, 10, 20, 8))

	got, err := f.PrimaryData()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, img) {
		t.Fatalf("primary data %v, want %v", got, img)
	}
	gotAlpha, err := f.AlphaData()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotAlpha, alpha) {
		t.Fatalf("alpha data %v, want %v", gotAlpha, alpha)
	}
	if f.Premultiplied() {
		t.Fatal("premultiplied without the option")
	}
}

func TestRoundTrip_Premultiplied(t *testing.T) {
	img := []byte{1, 2, 3, 4, 5, 6}
	alpha := []byte{77, 88, 99}
	f := mustParse(t, SerializeToBuffer(img, alpha, 10, 20, 8, WithPremultipliedAlpha(true)))

	if !f.Premultiplied() {
		t.Fatal("expected premultiplied")
	}
	got, _ := f.PrimaryData()
	gotAlpha, _ := f.AlphaData()
	if !bytes.Equal(got, img) || !bytes.Equal(gotAlpha, alpha) {
		t.Fatalf("data changed: %v %v", got, gotAlpha)
	}
	if len(f.References) != 2 {
		t.Fatalf("references %+v", f.References)
	}

	// The option is inert without alpha.
	f = mustParse(t, SerializeToBuffer(img, nil, 10, 20, 8, WithPremultipliedAlpha(true)))
	if f.Premultiplied() || len(f.References) != 0 {
		t.Fatalf("references %+v", f.References)
	}
}

func TestSerialize_MatchesBuffer(t *testing.T) {
	img := []byte{9, 8, 7, 6, 5}
	alpha := []byte{1, 2}
	var buf bytes.Buffer
	if err := Serialize(&buf, img, alpha, 5, 5, 10); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), SerializeToBuffer(img, alpha, 5, 5, 10)) {
		t.Fatal("Serialize and SerializeToBuffer differ")
	}
}

func TestOffsets_TwoItems(t *testing.T) {
	img := []byte{1, 2, 3, 4, 5, 6}
	alpha := []byte{77, 88, 99}
	out := SerializeToBuffer(img, alpha, 10, 20, 8)
	f := mustParse(t, out)

	colorLoc, ok := f.Location(uint32(ColorItemID))
	if !ok {
		t.Fatal("no color location")
	}
	alphaLoc, ok := f.Location(uint32(AlphaItemID))
	if !ok {
		t.Fatal("no alpha location")
	}
	// The payload section ends the file: alpha then color.
	start := uint64(len(out) - len(alpha) - len(img))
	if ex := alphaLoc.Extents; len(ex) != 1 || ex[0].Offset != start || ex[0].Length != uint64(len(alpha)) {
		t.Fatalf("alpha extents %+v", ex)
	}
	if ex := colorLoc.Extents; len(ex) != 1 || ex[0].Offset != start+uint64(len(alpha)) || ex[0].Length != uint64(len(img)) {
		t.Fatalf("color extents %+v", ex)
	}
	if colorLoc.BaseOffset != 0 || alphaLoc.BaseOffset != 0 {
		t.Fatalf("base offsets %d, %d, want none", colorLoc.BaseOffset, alphaLoc.BaseOffset)
	}
	if !bytes.Equal(out[start:], append(append([]byte{}, alpha...), img...)) {
		t.Fatalf("payload %v", out[start:])
	}
	// iloc lists the color item first.
	if len(f.Locations) != 2 || f.Locations[0].ItemID != uint32(ColorItemID) || f.Locations[1].ItemID != uint32(AlphaItemID) {
		t.Fatalf("iloc entries %+v", f.Locations)
	}
}

// heifItemData reads an item straight through the generic HEIF item model.
func heifItemData(t *testing.T, file []byte, it *heif.Item) []byte {
	t.Helper()
	if it.Location == nil || len(it.Location.Extents) != 1 {
		t.Fatalf("item %d location %+v", it.ID, it.Location)
	}
	ex := it.Location.Extents[0]
	start := it.Location.BaseOffset + ex.Offset
	if start+ex.Length > uint64(len(file)) {
		t.Fatalf("item %d extent [%d,+%d) past %d-byte file", it.ID, start, ex.Length, len(file))
	}
	return file[start : start+ex.Length]
}

func TestHeifReader_ColorAndAlpha(t *testing.T) {
	img := []byte{1, 2, 3, 4, 5, 6}
	alpha := []byte{77, 88, 99}
	out := SerializeToBuffer(img, alpha, 10, 20, 8, WithPremultipliedAlpha(true))

	hf := heif.Open(bytes.NewReader(out))
	primary, err := hf.PrimaryItem()
	if err != nil {
		t.Fatal(err)
	}
	if primary.ID != uint32(ColorItemID) || primary.Info == nil || primary.Info.ItemType != "av01" {
		t.Fatalf("primary item %d %+v", primary.ID, primary.Info)
	}
	if w, h, ok := primary.SpatialExtents(); !ok || w != 10 || h != 20 {
		t.Fatalf("spatial extents %dx%d ok=%v", w, h, ok)
	}
	if len(primary.Properties) != 3 {
		t.Fatalf("primary has %d properties, want 3", len(primary.Properties))
	}
	if got := heifItemData(t, out, primary); !bytes.Equal(got, img) {
		t.Fatalf("color data %v", got)
	}

	aux, err := hf.ItemByID(uint32(AlphaItemID))
	if err != nil {
		t.Fatal(err)
	}
	if w, h, ok := aux.SpatialExtents(); !ok || w != 10 || h != 20 {
		t.Fatalf("alpha spatial extents %dx%d ok=%v", w, h, ok)
	}
	if got := heifItemData(t, out, aux); !bytes.Equal(got, alpha) {
		t.Fatalf("alpha data %v", got)
	}
	if _, err := hf.ItemByID(3); !errors.Is(err, heif.ErrUnknownItem) {
		t.Fatalf("item 3: %v", err)
	}
}

func TestHeifReader_ColorOnly(t *testing.T) {
	img := []byte("av12356abc")
	out := SerializeToBuffer(img, nil, 64, 48, 10)
	primary, err := heif.Open(bytes.NewReader(out)).PrimaryItem()
	if err != nil {
		t.Fatal(err)
	}
	if w, h, ok := primary.SpatialExtents(); !ok || w != 64 || h != 48 {
		t.Fatalf("spatial extents %dx%d ok=%v", w, h, ok)
	}
	if got := heifItemData(t, out, primary); !bytes.Equal(got, img) {
		t.Fatalf("color data %q", got)
	}
}

func TestEssentialBit(t *testing.T) {
	f := mustParse(t, SerializeToBuffer([]byte{1}, []byte{2}, 3, 4, 12))
	for _, id := range []uint32{uint32(ColorItemID), uint32(AlphaItemID)} {
		assocs := f.Associations[id]
		if len(assocs) == 0 {
			t.Fatalf("item %d has no associations", id)
		}
		var sawCodec bool
		for _, a := range assocs {
			p := f.Properties[a.Index-1]
			if p.Type == "av1C" {
				sawCodec = true
				if !a.Essential {
					t.Fatalf("item %d: av1C not essential", id)
				}
			} else if a.Essential {
				t.Fatalf("item %d: %s marked essential", id, p.Type)
			}
		}
		if !sawCodec {
			t.Fatalf("item %d has no av1C", id)
		}
	}
}

func TestItemProperties(t *testing.T) {
	f := mustParse(t, SerializeToBuffer([]byte{1}, []byte{2}, 640, 480, 10))

	types := func(ps []avifparse.Property) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Type)
		}
		return out
	}
	color := f.ItemProperties(uint32(ColorItemID))
	if got, want := types(color), []string{"ispe", "av1C", "pixi"}; !equalStrings(got, want) {
		t.Fatalf("color properties %v, want %v", got, want)
	}
	alpha := f.ItemProperties(uint32(AlphaItemID))
	if got, want := types(alpha), []string{"ispe", "av1C", "auxC", "pixi"}; !equalStrings(got, want) {
		t.Fatalf("alpha properties %v, want %v", got, want)
	}
	// Both items share one ispe.
	if f.Associations[uint32(ColorItemID)][0].Index != f.Associations[uint32(AlphaItemID)][0].Index {
		t.Fatal("ispe not shared")
	}
	if color[0].Width != 640 || color[0].Height != 480 {
		t.Fatalf("ispe %dx%d", color[0].Width, color[0].Height)
	}
	if !bytes.Equal(color[2].BitsPerChannel, []byte{8, 8, 8}) || !bytes.Equal(alpha[3].BitsPerChannel, []byte{8}) {
		t.Fatalf("pixi %v %v", color[2].BitsPerChannel, alpha[3].BitsPerChannel)
	}
	if alpha[2].AuxType != AlphaURN {
		t.Fatalf("auxC %q", alpha[2].AuxType)
	}
	c, a := color[1].AV1, alpha[1].AV1
	if c.SeqProfile != 1 || !c.HighBitdepth || c.TwelveBit || c.Monochrome || c.ChromaSubsamplingX || c.ChromaSubsamplingY {
		t.Fatalf("color av1C %+v", *c)
	}
	if a.SeqProfile != 0 || !a.HighBitdepth || a.TwelveBit || !a.Monochrome || !a.ChromaSubsamplingX || !a.ChromaSubsamplingY {
		t.Fatalf("alpha av1C %+v", *a)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFileLayout_Bytes(t *testing.T) {
	img := []byte("av12356abc")
	out := SerializeToBuffer(img, nil, 10, 20, 8)
	if len(out) != 252 {
		t.Fatalf("file is %d bytes, want 252", len(out))
	}

	ftyp := []byte{
		0, 0, 0, 24, 'f', 't', 'y', 'p',
		'a', 'v', 'i', 'f', 0, 0, 0, 0,
		'm', 'i', 'f', '1', 'm', 'i', 'a', 'f',
	}
	if !bytes.Equal(out[:24], ftyp) {
		t.Fatalf("ftyp % x", out[:24])
	}
	meta := []byte{0, 0, 0, 210, 'm', 'e', 't', 'a', 0, 0, 0, 0}
	if !bytes.Equal(out[24:36], meta) {
		t.Fatalf("meta header % x", out[24:36])
	}
	hdlr := []byte{
		0, 0, 0, 33, 'h', 'd', 'l', 'r', 0, 0, 0, 0,
		0, 0, 0, 0, 'p', 'i', 'c', 't',
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0,
	}
	if !bytes.Equal(out[36:69], hdlr) {
		t.Fatalf("hdlr % x", out[36:69])
	}
	mdat := append([]byte{0, 0, 0, 18, 'm', 'd', 'a', 't'}, img...)
	if !bytes.Equal(out[234:], mdat) {
		t.Fatalf("mdat % x", out[234:])
	}

	f := mustParse(t, out)
	// No base_offset field; the extent offset is the absolute payload start.
	iloc := []byte{
		0, 0, 0, 30, 'i', 'l', 'o', 'c', 0, 0, 0, 0,
		0x44, 0x00, 0, 1,
		0, 1, 0, 0, 0, 1, 0, 0, 0, 242, 0, 0, 0, 10,
	}
	node := f.Boxes[1].Children[3]
	if node.Type != "iloc" || !bytes.Equal(out[node.Offset:node.Offset+node.Size], iloc) {
		t.Fatalf("iloc % x", out[node.Offset:node.Offset+node.Size])
	}
	if f.MajorBrand != "avif" || f.Handler != "pict" || f.PrimaryItemID != 1 {
		t.Fatalf("brand %q handler %q primary %d", f.MajorBrand, f.Handler, f.PrimaryItemID)
	}
	var top []string
	for _, n := range f.Boxes {
		top = append(top, n.Type)
	}
	if !equalStrings(top, []string{"ftyp", "meta", "mdat"}) {
		t.Fatalf("top-level boxes %v", top)
	}
	var inMeta []string
	for _, n := range f.Boxes[1].Children {
		inMeta = append(inMeta, n.Type)
	}
	if !equalStrings(inMeta, []string{"hdlr", "iinf", "pitm", "iloc", "iprp"}) {
		t.Fatalf("meta children %v", inMeta)
	}
}

func TestFileLayout_AlphaMetaOrder(t *testing.T) {
	f := mustParse(t, SerializeToBuffer([]byte{1, 2, 3}, []byte{4}, 1, 1, 8, WithPremultipliedAlpha(true)))
	var inMeta []string
	for _, n := range f.Boxes[1].Children {
		inMeta = append(inMeta, n.Type)
	}
	if !equalStrings(inMeta, []string{"hdlr", "iinf", "pitm", "iloc", "iprp", "iref"}) {
		t.Fatalf("meta children %v", inMeta)
	}
	refs := f.References
	if refs[0].Type != "auxl" || refs[0].From != 2 || refs[0].To[0] != 1 {
		t.Fatalf("auxl %+v", refs[0])
	}
	if refs[1].Type != "prem" || refs[1].From != 1 || refs[1].To[0] != 2 {
		t.Fatalf("prem %+v", refs[1])
	}
}

func TestSerialize_WriterError(t *testing.T) {
	img := []byte{1, 2, 3, 4, 5, 6}
	alpha := []byte{77, 88, 99}
	total := len(SerializeToBuffer(img, alpha, 10, 20, 8))

	for _, limit := range []int{0, 1, 24, 100, total - len(img) - 1, total - 1} {
		w := &errAfterWriter{remaining: limit}
		err := Serialize(w, img, alpha, 10, 20, 8)
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("limit %d: expected io.ErrClosedPipe, got %v", limit, err)
		}
		if w.afterFail != 0 {
			t.Fatalf("limit %d: %d writes after the failure", limit, w.afterFail)
		}
	}

	w := &errAfterWriter{remaining: total}
	if err := Serialize(w, img, alpha, 10, 20, 8); err != nil {
		t.Fatalf("exact-size sink: %v", err)
	}
}

func TestSerialize_PayloadNotCopied(t *testing.T) {
	// Payload buffers are handed to the sink as-is after the metadata flush.
	img := bytes.Repeat([]byte{0xC0}, 64<<10)
	var rec recordingWriter
	if err := Serialize(&rec, img, nil, 1, 1, 8); err != nil {
		t.Fatal(err)
	}
	last := rec.writes[len(rec.writes)-1]
	if len(last) == 0 || &last[0] != &img[0] {
		t.Fatal("color buffer was not passed through")
	}
}

type recordingWriter struct {
	writes [][]byte
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, p)
	return len(p), nil
}
