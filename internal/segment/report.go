// Package segment inspects fragmented ISO-BMFF media segments and rewrites their
// movie fragment sequence number.
package segment

import (
	"fmt"
	"strings"

	"github.com/zsiec/adsplice/internal/bmff"
)

// Report is the diagnostic view of one segment.
type Report struct {
	Boxes []bmff.Entry `json:"boxes"`

	// FragmentSequence is the mfhd sequence number of the first moof carrying one.
	// It is nil when the segment has no fragment header.
	FragmentSequence *uint32 `json:"fragment_sequence,omitempty"`

	Ftyp      *BrandInfo     `json:"ftyp,omitempty"`
	Styp      *BrandInfo     `json:"styp,omitempty"`
	Sidx      *SidxInfo      `json:"sidx,omitempty"`
	Moov      *MoovInfo      `json:"moov,omitempty"`
	Moof      *MoofInfo      `json:"moof,omitempty"`
	MdatSize  *uint64        `json:"mdat_size,omitempty"`
	Fragments []FragmentInfo `json:"fragments,omitempty"`
}

// BrandInfo holds the fields shared by ftyp and styp.
type BrandInfo struct {
	MajorBrand       string   `json:"major_brand"`
	MinorVersion     uint32   `json:"minor_version"`
	CompatibleBrands []string `json:"compatible_brands"`
}

// SidxInfo holds the leading fields of a segment index box. 64-bit values are
// rendered as JSON strings.
type SidxInfo struct {
	Version                  uint8  `json:"version"`
	ReferenceID              uint32 `json:"reference_id"`
	Timescale                uint32 `json:"timescale"`
	EarliestPresentationTime uint64 `json:"earliest_presentation_time,string"`
	FirstOffset              uint64 `json:"first_offset,string"`
}

// MoovInfo lists the direct children of a moov box.
type MoovInfo struct {
	Size     uint64   `json:"size"`
	Children []string `json:"children"`
}

// MoofInfo describes the first moof box of the segment.
type MoofInfo struct {
	Size           uint64  `json:"size"`
	SequenceNumber *uint32 `json:"sequence_number,omitempty"`
}

// FragmentInfo describes one moof box.
type FragmentInfo struct {
	Offset         int     `json:"offset"`
	Size           uint64  `json:"size"`
	SequenceNumber *uint32 `json:"sequence_number,omitempty"`
}

// Chain renders the top-level boxes as "type (size bytes) -> type (size bytes)".
func (r *Report) Chain() string {
	parts := make([]string, 0, len(r.Boxes))
	for _, b := range r.Boxes {
		parts = append(parts, fmt.Sprintf("%s (%d bytes)", b.Type, b.Size))
	}
	return strings.Join(parts, " -> ")
}

// HasFragmentHeader reports whether a moof/mfhd pair was found.
func (r *Report) HasFragmentHeader() bool {
	return r.FragmentSequence != nil
}
