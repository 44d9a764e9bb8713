package avifmux

import (
	"bufio"
	"io"
)

// avifFile is the complete descriptor of one container: the metadata tree and
// the payload section it points into. It is built once, validated, written
// once and then dropped.
type avifFile struct {
	ftyp    ftypBox
	hdlr    hdlrBox
	iinf    iinfBox
	pitm    pitmBox
	iloc    locationTable
	ipco    propertyTable
	ipma    associationTable
	iref    irefBox
	payload payloadSection
}

func newFile() *avifFile {
	f := &avifFile{
		ftyp: ftypBox{
			majorBrand: BrandAVIF,
			compatible: []FourCC{BrandMIF1, BrandMIAF},
		},
	}
	f.ipma.table = &f.ipco
	return f
}

func (f *avifFile) addItem(id uint16, itemType FourCC, name string) {
	f.iinf.items = append(f.iinf.items, &itemInfo{id: id, itemType: itemType, name: name})
}

func (f *avifFile) addReference(typ FourCC, from, to uint16) {
	f.iref.refs = append(f.iref.refs, &reference{typ: typ, from: from, to: []uint16{to}})
}

func (f *avifFile) meta() *containerBox {
	iprp := &containerBox{typ: typeIprp, children: []box{&f.ipco, &f.ipma}}
	children := []box{f.hdlr, &f.iinf, f.pitm, &f.iloc, iprp}
	if len(f.iref.refs) > 0 {
		children = append(children, &f.iref)
	}
	return &containerBox{typ: typeMeta, full: true, children: children}
}

// layout returns the top-level boxes with every size-dependent field resolved:
// the absolute position of the payload section and the iloc field width.
// Widening iloc moves the payload further out, so once wide it stays wide.
func (f *avifFile) layout() []box {
	meta := f.meta()
	mdat := &mdatBox{payload: &f.payload}
	f.iloc.wide = false
	for {
		f.iloc.baseOffset = f.ftyp.size() + meta.size() + mdat.headerLen()
		if f.iloc.wide || !f.iloc.needsWide(&f.payload) {
			break
		}
		f.iloc.wide = true
	}
	return []box{&f.ftyp, meta, mdat}
}

func (f *avifFile) size() uint64 {
	var n uint64
	for _, b := range f.layout() {
		n += b.size()
	}
	return n
}

// write validates the descriptor and emits it to w. Metadata is buffered and
// flushed in one call; payload chunks are passed straight through.
func (f *avifFile) write(w io.Writer) error {
	boxes := f.layout()
	if err := f.validate(); err != nil {
		return err
	}
	buffered := bufio.NewWriterSize(w, int(f.iloc.baseOffset))
	bw := newBoxWriter(buffered)
	for _, b := range boxes {
		b.write(bw)
		if bw.err != nil {
			return bw.err
		}
	}
	return buffered.Flush()
}
