package avifparse

import "fmt"

// Item returns the item with the given ID.
func (f *File) Item(id uint32) (Item, bool) {
	for _, it := range f.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Location returns the location entry of an item.
func (f *File) Location(id uint32) (Location, bool) {
	for _, l := range f.Locations {
		if l.ItemID == id {
			return l, true
		}
	}
	return Location{}, false
}

// ItemProperties returns the properties associated with an item, in
// association order.
func (f *File) ItemProperties(id uint32) []Property {
	var out []Property
	for _, a := range f.Associations[id] {
		if a.Index == 0 {
			continue
		}
		out = append(out, f.Properties[a.Index-1])
	}
	return out
}

// ItemData returns the bytes of an item, concatenating its extents.
func (f *File) ItemData(id uint32) ([]byte, error) {
	loc, ok := f.Location(id)
	if !ok {
		return nil, fmt.Errorf("%w: item %d has no location", ErrNoSuchItem, id)
	}
	if loc.ConstructionMethod != 0 {
		return nil, fmt.Errorf("%w: construction method %d", ErrUnsupported, loc.ConstructionMethod)
	}
	if loc.DataReferenceIndex != 0 {
		return nil, fmt.Errorf("%w: external data reference %d", ErrUnsupported, loc.DataReferenceIndex)
	}
	size := uint64(len(f.data))
	if len(loc.Extents) == 1 {
		return f.extent(loc.BaseOffset, loc.Extents[0], size)
	}
	var out []byte
	for _, ex := range loc.Extents {
		p, err := f.extent(loc.BaseOffset, ex, size)
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
	return out, nil
}

func (f *File) extent(base uint64, ex Extent, size uint64) ([]byte, error) {
	start := base + ex.Offset
	if start < base || start > size {
		return nil, fmt.Errorf("%w: extent starts at %d, file has %d bytes", ErrInvalidBox, start, size)
	}
	length := ex.Length
	if length == 0 {
		length = size - start
	}
	if length > size-start {
		return nil, fmt.Errorf("%w: extent [%d,+%d) past end of %d-byte file", ErrInvalidBox, start, length, size)
	}
	return f.data[start : start+length], nil
}

// PrimaryData returns the bitstream of the primary item.
func (f *File) PrimaryData() ([]byte, error) {
	return f.ItemData(f.PrimaryItemID)
}

// AlphaItemID returns the auxiliary alpha item of the primary item, if any.
func (f *File) AlphaItemID() (uint32, bool) {
	for _, ref := range f.References {
		if ref.Type != "auxl" || !contains(ref.To, f.PrimaryItemID) {
			continue
		}
		for _, p := range f.ItemProperties(ref.From) {
			if p.Type == "auxC" && p.AuxType == AlphaURN {
				return ref.From, true
			}
		}
	}
	return 0, false
}

// AlphaData returns the alpha bitstream, or nil when the image has no alpha.
func (f *File) AlphaData() ([]byte, error) {
	id, ok := f.AlphaItemID()
	if !ok {
		return nil, nil
	}
	return f.ItemData(id)
}

// Premultiplied reports whether the primary item is premultiplied by its alpha.
func (f *File) Premultiplied() bool {
	alpha, ok := f.AlphaItemID()
	if !ok {
		return false
	}
	for _, ref := range f.References {
		if ref.Type == "prem" && ref.From == f.PrimaryItemID && contains(ref.To, alpha) {
			return true
		}
	}
	return false
}

func contains(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
