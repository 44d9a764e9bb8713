package avifmux

import (
	"fmt"
	"math"
	"sort"
)

// validate checks the cross-references of the descriptor. It runs after
// layout and before the first byte is written.
func (f *avifFile) validate() error {
	if len(f.iinf.items) == 0 {
		return fmt.Errorf("%w: no items", ErrValidation)
	}
	if len(f.iinf.items) > math.MaxUint16 {
		return fmt.Errorf("%w: %d items", ErrSizeOverflow, len(f.iinf.items))
	}
	items := make(map[uint16]struct{}, len(f.iinf.items))
	for _, it := range f.iinf.items {
		if it.id == 0 {
			return fmt.Errorf("%w: item id 0 is reserved", ErrValidation)
		}
		if _, ok := items[it.id]; ok {
			return fmt.Errorf("%w: duplicate item id %d", ErrValidation, it.id)
		}
		items[it.id] = struct{}{}
	}
	if _, ok := items[f.pitm.itemID]; !ok {
		return fmt.Errorf("%w: primary item %d is not declared", ErrValidation, f.pitm.itemID)
	}

	if err := f.ipma.check(); err != nil {
		return err
	}
	associated := make(map[uint16]struct{}, len(f.ipma.entries))
	for _, e := range f.ipma.entries {
		if _, ok := items[e.itemID]; !ok {
			return fmt.Errorf("%w: association for undeclared item %d", ErrInvalidProperty, e.itemID)
		}
		if _, ok := associated[e.itemID]; ok {
			return fmt.Errorf("%w: item %d associated twice", ErrInvalidProperty, e.itemID)
		}
		associated[e.itemID] = struct{}{}
		for _, p := range e.props {
			if idx := p.index(); idx == 0 || int(idx) > len(f.ipco.props) {
				return fmt.Errorf("%w: item %d references property %d of %d", ErrInvalidProperty, e.itemID, idx, len(f.ipco.props))
			}
			if f.ipco.props[p.index()-1].kind == propCodecConfig && !p.isEssential() {
				return fmt.Errorf("%w: item %d codec configuration must be essential", ErrInvalidProperty, e.itemID)
			}
		}
	}

	for _, r := range f.iref.refs {
		if _, ok := items[r.from]; !ok {
			return fmt.Errorf("%w: %s reference from undeclared item %d", ErrInvalidReference, r.typ, r.from)
		}
		if len(r.to) == 0 || len(r.to) > math.MaxUint16 {
			return fmt.Errorf("%w: %s reference from item %d has %d targets", ErrInvalidReference, r.typ, r.from, len(r.to))
		}
		for _, to := range r.to {
			if _, ok := items[to]; !ok {
				return fmt.Errorf("%w: %s reference to undeclared item %d", ErrInvalidReference, r.typ, to)
			}
		}
	}

	if err := f.iloc.check(&f.payload); err != nil {
		return err
	}
	located := make(map[uint16]struct{}, len(f.iloc.entries))
	for _, e := range f.iloc.entries {
		if _, ok := items[e.itemID]; !ok {
			return fmt.Errorf("%w: location for undeclared item %d", ErrValidation, e.itemID)
		}
		located[e.itemID] = struct{}{}
	}
	for id := range items {
		if _, ok := located[id]; !ok {
			return fmt.Errorf("%w: item %d has no location", ErrValidation, id)
		}
	}
	return checkOverlap(f.iloc.entries)
}

// checkOverlap rejects extents of different items that share payload bytes.
func checkOverlap(entries []locationEntry) error {
	type span struct {
		itemID     uint16
		start, end uint64
	}
	var spans []span
	for _, e := range entries {
		for _, ex := range e.extents {
			if ex.length == 0 {
				continue
			}
			spans = append(spans, span{e.itemID, ex.offset, ex.offset + ex.length})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	var reach span
	for _, cur := range spans {
		if cur.start < reach.end && cur.itemID != reach.itemID {
			return fmt.Errorf("%w: extents of items %d and %d overlap", ErrValidation, reach.itemID, cur.itemID)
		}
		if cur.end > reach.end {
			reach = cur
		}
	}
	return nil
}
