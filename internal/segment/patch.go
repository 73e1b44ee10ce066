package segment

import (
	"encoding/binary"
	"errors"

	"github.com/zsiec/adsplice/internal/bmff"
)

// ErrNoFragmentHeader is returned when a buffer holds no moof box with an mfhd child.
var ErrNoFragmentHeader = errors.New("no moof/mfhd fragment header")

// FragmentHeader locates the mfhd that PatchSequence edits.
type FragmentHeader struct {
	MoofOffset     int
	MfhdOffset     int
	SequenceOffset int
	Sequence       uint32
}

// LocateFragmentHeader finds the first moof that carries an mfhd. Boxes after it are
// not read.
func LocateFragmentHeader(buf []byte) (FragmentHeader, error) {
	var (
		fh       FragmentHeader
		found    bool
		visitErr error
	)

	err := bmff.Scan(buf, func(box bmff.Entry) bool {
		if box.Kind() != bmff.KindMoof {
			return true
		}
		mfhd, ok := box.Child(bmff.TypeMfhd)
		if !ok {
			return true
		}
		at, err := sequenceField(mfhd)
		if err != nil {
			visitErr = err
			return false
		}

		fh = FragmentHeader{
			MoofOffset:     box.Offset,
			MfhdOffset:     mfhd.Offset,
			SequenceOffset: at,
		}
		fh.Sequence = binary.BigEndian.Uint32(buf[fh.SequenceOffset : fh.SequenceOffset+4])
		found = true
		return false
	})
	if err != nil {
		return FragmentHeader{}, err
	}
	if visitErr != nil {
		return FragmentHeader{}, visitErr
	}
	if !found {
		return FragmentHeader{}, ErrNoFragmentHeader
	}

	return fh, nil
}

// PatchSequence returns a copy of buf with the first fragment header's sequence
// number set to seq. Only that one mfhd is edited even if more fragments follow.
// When no fragment header exists it returns ErrNoFragmentHeader and a nil buffer.
func PatchSequence(buf []byte, seq uint32) ([]byte, error) {
	fh, err := LocateFragmentHeader(buf)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(buf))
	copy(out, buf)
	binary.BigEndian.PutUint32(out[fh.SequenceOffset:fh.SequenceOffset+4], seq)

	return out, nil
}
