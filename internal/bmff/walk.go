package bmff

// Entry is one box in an inventory. Children is only populated for moov and moof.
type Entry struct {
	Type         BoxType `json:"type"`
	Size         uint64  `json:"size"`
	Offset       int     `json:"offset"`
	HeaderLen    int     `json:"header_len"`
	ExtendsToEnd bool    `json:"extends_to_end,omitempty"`
	Children     []Entry `json:"children,omitempty"`
}

// Kind returns the tagged kind of the entry's type.
func (e Entry) Kind() Kind {
	return KindOf(e.Type)
}

// End returns the offset one past the last byte of the box.
func (e Entry) End() int {
	return e.Offset + int(e.Size)
}

// PayloadOffset returns the offset of the first byte after the header.
func (e Entry) PayloadOffset() int {
	return e.Offset + e.HeaderLen
}

// Child returns the first child of type t.
func (e Entry) Child(t BoxType) (Entry, bool) {
	for _, c := range e.Children {
		if c.Type == t {
			return c, true
		}
	}
	return Entry{}, false
}

// Inventory lists the top-level boxes of a buffer in byte order.
type Inventory struct {
	Boxes []Entry `json:"boxes"`
}

// Find returns the first top-level box of type t.
func (inv Inventory) Find(t BoxType) (Entry, bool) {
	for _, b := range inv.Boxes {
		if b.Type == t {
			return b, true
		}
	}
	return Entry{}, false
}

// Walk inventories the top-level boxes of buf and the direct children of every moov
// and moof. It never modifies buf.
func Walk(buf []byte) (Inventory, error) {
	var inv Inventory
	err := Scan(buf, func(e Entry) bool {
		inv.Boxes = append(inv.Boxes, e)
		return true
	})
	return inv, err
}

// Scan visits top-level boxes in byte order until visit returns false. Container
// entries arrive with their children populated. Boxes after the stopping point are
// not read, so trailing damage does not fail an early stop.
func Scan(buf []byte, visit func(Entry) bool) error {
	offset := 0
	for offset < len(buf) {
		h, err := ReadHeader(buf, offset)
		if err != nil {
			return err
		}
		if h.Size > uint64(len(buf)-offset) {
			return NewBoxError(ErrTruncatedBox, h.Type, offset, "box extends past end of buffer")
		}

		entry := newEntry(h, offset)
		if h.Kind().IsContainer() {
			children, err := walkChildren(buf, entry)
			if err != nil {
				return err
			}
			entry.Children = children
		}

		if !visit(entry) {
			return nil
		}
		offset += int(h.Size)
	}

	return nil
}

// walkChildren lists the boxes inside parent's payload without descending further.
func walkChildren(buf []byte, parent Entry) ([]Entry, error) {
	var children []Entry

	end := parent.End()
	offset := parent.PayloadOffset()
	for offset < end {
		if end-offset < HeaderSize {
			return nil, NewBoxError(ErrMalformedTree, parent.Type, offset, "trailing bytes inside container too short for a box header")
		}
		h, err := readHeader(buf, offset, end)
		if err != nil {
			return nil, err
		}
		if h.ExtendsToEnd {
			return nil, NewBoxError(ErrMalformedTree, h.Type, offset, "size 0 is only valid for a top-level box")
		}
		if h.Size > uint64(end-offset) {
			return nil, NewBoxError(ErrMalformedTree, h.Type, offset, "child box overruns its "+parent.Type.String())
		}

		children = append(children, newEntry(h, offset))
		offset += int(h.Size)
	}

	return children, nil
}

func newEntry(h Header, offset int) Entry {
	return Entry{
		Type:         h.Type,
		Size:         h.Size,
		Offset:       offset,
		HeaderLen:    h.HeaderLen,
		ExtendsToEnd: h.ExtendsToEnd,
	}
}
