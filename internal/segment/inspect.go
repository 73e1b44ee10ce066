package segment

import (
	"encoding/binary"

	"github.com/zsiec/adsplice/internal/bmff"
)

const (
	// mfhd payload: 1 byte version, 3 bytes flags, 4 byte sequence number.
	mfhdPayloadLen = 8

	brandFieldsLen = 8

	sidxV0Len = 20
	sidxV1Len = 28
)

// Inspect walks buf and extracts the typed fields of the boxes it understands.
// buf is never modified.
func Inspect(buf []byte) (*Report, error) {
	inv, err := bmff.Walk(buf)
	if err != nil {
		return nil, err
	}

	report := &Report{Boxes: inv.Boxes}
	for _, box := range inv.Boxes {
		switch box.Kind() {
		case bmff.KindFtyp:
			if report.Ftyp != nil {
				continue
			}
			if report.Ftyp, err = parseBrands(buf, box); err != nil {
				return nil, err
			}
		case bmff.KindStyp:
			if report.Styp != nil {
				continue
			}
			if report.Styp, err = parseBrands(buf, box); err != nil {
				return nil, err
			}
		case bmff.KindSidx:
			if report.Sidx != nil {
				continue
			}
			if report.Sidx, err = parseSidx(buf, box); err != nil {
				return nil, err
			}
		case bmff.KindMoov:
			if report.Moov != nil {
				continue
			}
			report.Moov = &MoovInfo{Size: box.Size, Children: make([]string, 0, len(box.Children))}
			for _, c := range box.Children {
				report.Moov.Children = append(report.Moov.Children, c.Type.String())
			}
		case bmff.KindMoof:
			seq, err := fragmentSequence(buf, box)
			if err != nil {
				return nil, err
			}
			report.Fragments = append(report.Fragments, FragmentInfo{
				Offset:         box.Offset,
				Size:           box.Size,
				SequenceNumber: seq,
			})
			if report.Moof == nil {
				report.Moof = &MoofInfo{Size: box.Size, SequenceNumber: seq}
			}
			if report.FragmentSequence == nil && seq != nil {
				report.FragmentSequence = seq
			}
		case bmff.KindMdat:
			if report.MdatSize == nil {
				size := box.Size
				report.MdatSize = &size
			}
		}
	}

	return report, nil
}

func parseBrands(buf []byte, box bmff.Entry) (*BrandInfo, error) {
	payload := buf[box.PayloadOffset():box.End()]
	if len(payload) < brandFieldsLen {
		return nil, bmff.NewBoxError(bmff.ErrMalformedTree, box.Type, box.Offset, "too short for brand fields")
	}

	info := &BrandInfo{
		MajorBrand:       string(payload[0:4]),
		MinorVersion:     binary.BigEndian.Uint32(payload[4:8]),
		CompatibleBrands: []string{},
	}
	for i := brandFieldsLen; i+4 <= len(payload); i += 4 {
		info.CompatibleBrands = append(info.CompatibleBrands, string(payload[i:i+4]))
	}
	return info, nil
}

func parseSidx(buf []byte, box bmff.Entry) (*SidxInfo, error) {
	payload := buf[box.PayloadOffset():box.End()]
	if len(payload) < sidxV0Len {
		return nil, bmff.NewBoxError(bmff.ErrMalformedTree, box.Type, box.Offset, "too short for sidx fields")
	}

	info := &SidxInfo{
		Version:     payload[0],
		ReferenceID: binary.BigEndian.Uint32(payload[4:8]),
		Timescale:   binary.BigEndian.Uint32(payload[8:12]),
	}
	if info.Version == 0 {
		info.EarliestPresentationTime = uint64(binary.BigEndian.Uint32(payload[12:16]))
		info.FirstOffset = uint64(binary.BigEndian.Uint32(payload[16:20]))
		return info, nil
	}

	if len(payload) < sidxV1Len {
		return nil, bmff.NewBoxError(bmff.ErrMalformedTree, box.Type, box.Offset, "too short for version 1 sidx fields")
	}
	info.EarliestPresentationTime = binary.BigEndian.Uint64(payload[12:20])
	info.FirstOffset = binary.BigEndian.Uint64(payload[20:28])
	return info, nil
}

// fragmentSequence reads the sequence number of the first mfhd inside moof. A moof
// without an mfhd yields nil.
func fragmentSequence(buf []byte, moof bmff.Entry) (*uint32, error) {
	mfhd, ok := moof.Child(bmff.TypeMfhd)
	if !ok {
		return nil, nil
	}
	at, err := sequenceField(mfhd)
	if err != nil {
		return nil, err
	}

	seq := binary.BigEndian.Uint32(buf[at : at+4])
	return &seq, nil
}

// sequenceField returns the offset of the mfhd sequence number, 12 bytes into a box
// with a compact header.
func sequenceField(mfhd bmff.Entry) (int, error) {
	if mfhd.Size < uint64(mfhd.HeaderLen+mfhdPayloadLen) {
		return 0, bmff.NewBoxError(bmff.ErrMalformedTree, mfhd.Type, mfhd.Offset, "mfhd too short for sequence number")
	}
	return mfhd.PayloadOffset() + 4, nil
}
