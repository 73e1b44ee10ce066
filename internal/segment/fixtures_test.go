package segment

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/require"
)

func box(typ string, payload ...[]byte) []byte {
	size := 8
	for _, p := range payload {
		size += len(p)
	}
	out := binary.BigEndian.AppendUint32(nil, uint32(size))
	out = append(out, typ...)
	for _, p := range payload {
		out = append(out, p...)
	}
	return out
}

func u32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }
func u64(v uint64) []byte { return binary.BigEndian.AppendUint64(nil, v) }

func stypBox() []byte {
	return box("styp", []byte("msdh"), u32(0), []byte("msdh"), []byte("msix"))
}

func sidxV0(refID, timescale, ept, firstOffset uint32) []byte {
	return box("sidx", u32(0), u32(refID), u32(timescale), u32(ept), u32(firstOffset),
		u32(0), u32(0), u32(0), u32(0))
}

func sidxV1(refID, timescale uint32, ept, firstOffset uint64) []byte {
	return box("sidx", []byte{1, 0, 0, 0}, u32(refID), u32(timescale), u64(ept), u64(firstOffset),
		u32(0))
}

func mfhdBox(seq uint32) []byte {
	return box("mfhd", u32(0), u32(seq))
}

// encodedFragment produces a moof+mdat pair through mp4ff.
func encodedFragment(t *testing.T, seq uint32) []byte {
	t.Helper()

	frag, err := mp4.CreateFragment(seq, 1)
	require.NoError(t, err)
	frag.AddFullSample(mp4.FullSample{
		Sample: mp4.Sample{
			Flags: mp4.SyncSampleFlags,
			Dur:   1024,
			Size:  4,
		},
		DecodeTime: 90000,
		Data:       []byte{0xde, 0xad, 0xbe, 0xef},
	})

	var buf bytes.Buffer
	require.NoError(t, frag.Encode(&buf))
	return buf.Bytes()
}

// mediaSegment is styp + sidx + one mp4ff-encoded fragment.
func mediaSegment(t *testing.T, seq uint32) []byte {
	t.Helper()

	var out []byte
	out = append(out, stypBox()...)
	out = append(out, sidxV0(1, 90000, 90000, 0)...)
	out = append(out, encodedFragment(t, seq)...)
	return out
}
