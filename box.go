package avifmux

// box is a node of the container tree. size is the exact serialized length,
// header included, and must be known before write is called: the tree is
// emitted top-down in one pass with no seeking.
type box interface {
	size() uint64
	write(bw *boxWriter)
}

// containerBox holds an ordered list of child boxes, optionally preceded by a
// full-box version/flags word.
type containerBox struct {
	typ      FourCC
	full     bool
	version  uint8
	flags    uint32
	children []box
}

func (b *containerBox) contentSize() uint64 {
	var n uint64
	if b.full {
		n += fullBoxLen
	}
	for _, c := range b.children {
		n += c.size()
	}
	return n
}

func (b *containerBox) size() uint64 { return boxSize(b.contentSize()) }

func (b *containerBox) write(bw *boxWriter) {
	if b.full {
		bw.fullHeader(b.typ, b.size(), b.version, b.flags)
	} else {
		bw.header(b.typ, b.size())
	}
	for _, c := range b.children {
		c.write(bw)
	}
}

type ftypBox struct {
	majorBrand   FourCC
	minorVersion uint32
	compatible   []FourCC
}

func (b *ftypBox) size() uint64 {
	return boxSize(4 + 4 + 4*uint64(len(b.compatible)))
}

func (b *ftypBox) write(bw *boxWriter) {
	bw.header(typeFtyp, b.size())
	bw.fourCC(b.majorBrand)
	bw.u32(b.minorVersion)
	for _, c := range b.compatible {
		bw.fourCC(c)
	}
}

// hdlrBox declares the meta box as describing pictures. The name is empty.
type hdlrBox struct{}

func (hdlrBox) size() uint64 {
	// pre_defined, handler_type, 3x reserved, empty name
	return fullBoxSize(4 + 4 + 12 + 1)
}

func (b hdlrBox) write(bw *boxWriter) {
	bw.fullHeader(typeHdlr, b.size(), 0, 0)
	bw.u32(0)
	bw.fourCC(handlerPicture)
	bw.u32(0)
	bw.u32(0)
	bw.u32(0)
	bw.cstring("")
}

type itemInfo struct {
	id       uint16
	itemType FourCC
	name     string
}

func (e *itemInfo) size() uint64 {
	return fullBoxSize(2 + 2 + 4 + uint64(len(e.name)) + 1)
}

func (e *itemInfo) write(bw *boxWriter) {
	bw.fullHeader(typeInfe, e.size(), 2, 0)
	bw.u16(e.id)
	bw.u16(0) // item_protection_index
	bw.fourCC(e.itemType)
	bw.cstring(e.name)
}

type iinfBox struct {
	items []*itemInfo
}

func (b *iinfBox) size() uint64 {
	n := uint64(2)
	for _, it := range b.items {
		n += it.size()
	}
	return fullBoxSize(n)
}

func (b *iinfBox) write(bw *boxWriter) {
	bw.fullHeader(typeIinf, b.size(), 0, 0)
	bw.u16(uint16(len(b.items)))
	for _, it := range b.items {
		it.write(bw)
	}
}

type pitmBox struct {
	itemID uint16
}

func (pitmBox) size() uint64 { return fullBoxSize(2) }

func (b pitmBox) write(bw *boxWriter) {
	bw.fullHeader(typePitm, b.size(), 0, 0)
	bw.u16(b.itemID)
}

// reference is a typed edge from one item to one or more others.
type reference struct {
	typ  FourCC
	from uint16
	to   []uint16
}

func (r *reference) size() uint64 {
	return boxSize(2 + 2 + 2*uint64(len(r.to)))
}

func (r *reference) write(bw *boxWriter) {
	bw.header(r.typ, r.size())
	bw.u16(r.from)
	bw.u16(uint16(len(r.to)))
	for _, id := range r.to {
		bw.u16(id)
	}
}

// irefBox holds every reference edge of the file in a single version 0 box.
type irefBox struct {
	refs []*reference
}

func (b *irefBox) size() uint64 {
	var n uint64
	for _, r := range b.refs {
		n += r.size()
	}
	return fullBoxSize(n)
}

func (b *irefBox) write(bw *boxWriter) {
	bw.fullHeader(typeIref, b.size(), 0, 0)
	for _, r := range b.refs {
		r.write(bw)
	}
}

// mdatBox is the payload section. It borrows the caller's buffers.
type mdatBox struct {
	payload *payloadSection
}

func (b *mdatBox) headerLen() uint64 {
	return b.size() - b.payload.length
}

func (b *mdatBox) size() uint64 { return boxSize(b.payload.length) }

func (b *mdatBox) write(bw *boxWriter) {
	bw.header(typeMdat, b.size())
	for _, c := range b.payload.chunks {
		bw.bytes(c)
	}
}
