// Package bmff reads ISO-BMFF box headers and walks the top level of a box tree.
//
// The walker only descends one level, into moov and moof. Fragmented segments never
// need more than that to reach the fragment header, and everything below is treated
// as opaque payload.
package bmff

import (
	"encoding/binary"
	"math"
)

const (
	// HeaderSize is the length of a compact box header (32-bit size + type).
	HeaderSize = 8
	// ExtendedHeaderSize is the length of a header carrying a 64-bit size.
	ExtendedHeaderSize = 16

	sizeExtended = 1
	sizeToEnd    = 0
)

// BoxType is the four-character code of a box. The bytes are never validated.
type BoxType [4]byte

// String returns the type as text.
func (t BoxType) String() string {
	return string(t[:])
}

// MarshalText lets box types appear as plain strings in JSON reports.
func (t BoxType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Box types handled by this package and its callers.
var (
	TypeFtyp = BoxType{'f', 't', 'y', 'p'}
	TypeStyp = BoxType{'s', 't', 'y', 'p'}
	TypeSidx = BoxType{'s', 'i', 'd', 'x'}
	TypeMoov = BoxType{'m', 'o', 'o', 'v'}
	TypeMoof = BoxType{'m', 'o', 'o', 'f'}
	TypeMfhd = BoxType{'m', 'f', 'h', 'd'}
	TypeMdat = BoxType{'m', 'd', 'a', 't'}
)

// Header is a decoded box header.
type Header struct {
	Type BoxType
	// Size is the full box size including the header. For a box whose size field
	// is 0 it is the number of bytes left in the buffer.
	Size uint64
	// HeaderLen is 8, or 16 when the box uses the 64-bit size escape.
	HeaderLen int
	// ExtendsToEnd is set when the size field was 0.
	ExtendsToEnd bool
}

// PayloadLen returns the number of bytes following the header.
func (h Header) PayloadLen() uint64 {
	return h.Size - uint64(h.HeaderLen)
}

// Kind returns the tagged kind of the header's type.
func (h Header) Kind() Kind {
	return KindOf(h.Type)
}

// ReadHeader decodes the box header at offset.
func ReadHeader(buf []byte, offset int) (Header, error) {
	return readHeader(buf, offset, len(buf))
}

// readHeader decodes a header whose box must end at or before end. A size-0 box
// extends to end.
func readHeader(buf []byte, offset, end int) (Header, error) {
	var h Header
	if offset < 0 || end > len(buf) || end-offset < HeaderSize {
		if offset >= 0 && offset+HeaderSize <= len(buf) {
			copy(h.Type[:], buf[offset+4:offset+8])
		}
		return h, NewBoxError(ErrTruncatedBox, h.Type, offset, "fewer than 8 bytes left for box header")
	}

	size32 := binary.BigEndian.Uint32(buf[offset : offset+4])
	copy(h.Type[:], buf[offset+4:offset+8])
	h.HeaderLen = HeaderSize

	switch size32 {
	case sizeExtended:
		if end-offset < ExtendedHeaderSize {
			return h, NewBoxError(ErrTruncatedBox, h.Type, offset, "fewer than 16 bytes left for extended box header")
		}
		h.Size = binary.BigEndian.Uint64(buf[offset+8 : offset+16])
		h.HeaderLen = ExtendedHeaderSize
	case sizeToEnd:
		h.Size = uint64(end - offset)
		h.ExtendsToEnd = true
	default:
		h.Size = uint64(size32)
	}

	if h.Size < uint64(h.HeaderLen) {
		return h, NewBoxError(ErrMalformedTree, h.Type, offset, "declared size smaller than header")
	}

	return h, nil
}

// Append encodes the header onto dst and returns the extended slice. A header read
// from a buffer encodes back to exactly the bytes it was read from.
func (h Header) Append(dst []byte) []byte {
	switch {
	case h.ExtendsToEnd:
		dst = binary.BigEndian.AppendUint32(dst, sizeToEnd)
		dst = append(dst, h.Type[:]...)
	case h.HeaderLen == ExtendedHeaderSize || h.Size > math.MaxUint32:
		dst = binary.BigEndian.AppendUint32(dst, sizeExtended)
		dst = append(dst, h.Type[:]...)
		dst = binary.BigEndian.AppendUint64(dst, h.Size)
	default:
		dst = binary.BigEndian.AppendUint32(dst, uint32(h.Size))
		dst = append(dst, h.Type[:]...)
	}
	return dst
}
