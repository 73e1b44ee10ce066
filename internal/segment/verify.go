package segment

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
)

// VerifySequence decodes the located moof with mp4ff and checks that its mfhd holds
// want. It gives a second, independent reading of a patched buffer.
func VerifySequence(buf []byte, want uint32) error {
	fh, err := LocateFragmentHeader(buf)
	if err != nil {
		return err
	}

	box, err := mp4.DecodeBox(uint64(fh.MoofOffset), bytes.NewReader(buf[fh.MoofOffset:]))
	if err != nil {
		return fmt.Errorf("decode moof at offset %d: %w", fh.MoofOffset, err)
	}
	moof, ok := box.(*mp4.MoofBox)
	if !ok {
		return fmt.Errorf("decode moof at offset %d: got %s box", fh.MoofOffset, box.Type())
	}
	if moof.Mfhd == nil {
		return fmt.Errorf("decoded moof at offset %d has no mfhd", fh.MoofOffset)
	}
	if got := moof.Mfhd.SequenceNumber; got != want {
		return fmt.Errorf("sequence mismatch: mfhd holds %d, want %d", got, want)
	}

	return nil
}
