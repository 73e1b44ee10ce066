package bmff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mfhd(seq byte) []byte {
	return box("mfhd", []byte{0, 0, 0, 0, 0, 0, 0, seq})
}

func TestWalk(t *testing.T) {
	t.Run("fragmented segment", func(t *testing.T) {
		styp := box("styp", []byte("msdh"), []byte{0, 0, 0, 0}, []byte("msdhmsix"))
		moof := box("moof", mfhd(7), box("traf", box("tfhd", make([]byte, 8))))
		mdat := box("mdat", make([]byte, 32))
		buf := concat(styp, moof, mdat)

		inv, err := Walk(buf)
		require.NoError(t, err)
		require.Len(t, inv.Boxes, 3)

		assert.Equal(t, TypeStyp, inv.Boxes[0].Type)
		assert.Equal(t, 0, inv.Boxes[0].Offset)
		assert.Empty(t, inv.Boxes[0].Children)

		moofEntry := inv.Boxes[1]
		assert.Equal(t, KindMoof, moofEntry.Kind())
		assert.Equal(t, len(styp), moofEntry.Offset)
		assert.Equal(t, uint64(len(moof)), moofEntry.Size)
		require.Len(t, moofEntry.Children, 2)
		assert.Equal(t, TypeMfhd, moofEntry.Children[0].Type)
		assert.Equal(t, len(styp)+HeaderSize, moofEntry.Children[0].Offset)
		assert.Equal(t, "traf", moofEntry.Children[1].Type.String())
		assert.Empty(t, moofEntry.Children[1].Children, "grandchildren stay opaque")

		child, ok := moofEntry.Child(TypeMfhd)
		require.True(t, ok)
		assert.Equal(t, uint64(16), child.Size)

		mdatEntry, ok := inv.Find(TypeMdat)
		require.True(t, ok)
		assert.Equal(t, len(buf), mdatEntry.End())
	})

	t.Run("empty buffer", func(t *testing.T) {
		inv, err := Walk(nil)
		require.NoError(t, err)
		assert.Empty(t, inv.Boxes)
	})

	t.Run("final box with size zero", func(t *testing.T) {
		buf := concat(box("moof", mfhd(1)), []byte{0, 0, 0, 0, 'm', 'd', 'a', 't', 1, 2, 3})

		inv, err := Walk(buf)
		require.NoError(t, err)
		require.Len(t, inv.Boxes, 2)
		assert.True(t, inv.Boxes[1].ExtendsToEnd)
		assert.Equal(t, uint64(11), inv.Boxes[1].Size)
	})

	t.Run("extended size moof children", func(t *testing.T) {
		buf := largeBox("moof", mfhd(3))

		inv, err := Walk(buf)
		require.NoError(t, err)
		require.Len(t, inv.Boxes[0].Children, 1)
		assert.Equal(t, ExtendedHeaderSize, inv.Boxes[0].Children[0].Offset)
	})

	t.Run("box overruns buffer", func(t *testing.T) {
		buf := concat(box("styp", []byte("msdh")), box("mdat", make([]byte, 16))[:20])

		_, err := Walk(buf)
		require.ErrorIs(t, err, ErrTruncatedBox)

		var boxErr *BoxError
		require.True(t, errors.As(err, &boxErr))
		assert.Equal(t, TypeMdat, boxErr.Type)
		assert.Equal(t, 12, boxErr.Offset)
	})

	t.Run("trailing partial header", func(t *testing.T) {
		buf := concat(box("styp", []byte("msdh")), []byte{0, 0, 0})

		_, err := Walk(buf)
		assert.ErrorIs(t, err, ErrTruncatedBox)
	})

	t.Run("child overruns parent", func(t *testing.T) {
		moof := box("moof", mfhd(1))
		// grow the mfhd size field past the end of the moof
		moof[11] = 32

		_, err := Walk(concat(moof, box("mdat")))
		require.ErrorIs(t, err, ErrMalformedTree)

		var boxErr *BoxError
		require.True(t, errors.As(err, &boxErr))
		assert.Equal(t, TypeMfhd, boxErr.Type)
		assert.Equal(t, HeaderSize, boxErr.Offset)
	})

	t.Run("child with size zero", func(t *testing.T) {
		moof := box("moof", []byte{0, 0, 0, 0, 'm', 'f', 'h', 'd'}, make([]byte, 8))

		_, err := Walk(moof)
		assert.ErrorIs(t, err, ErrMalformedTree)
	})

	t.Run("short trailing bytes inside container", func(t *testing.T) {
		moov := box("moov", box("mvhd", make([]byte, 4)), []byte{1, 2, 3})

		_, err := Walk(moov)
		assert.ErrorIs(t, err, ErrMalformedTree)
	})

	t.Run("child smaller than its header", func(t *testing.T) {
		moof := box("moof", []byte{0, 0, 0, 2, 'm', 'f', 'h', 'd'})

		_, err := Walk(moof)
		assert.ErrorIs(t, err, ErrMalformedTree)
	})

	t.Run("does not modify input", func(t *testing.T) {
		buf := concat(box("moof", mfhd(9)), box("mdat", []byte{1}))
		before := append([]byte(nil), buf...)

		_, err := Walk(buf)
		require.NoError(t, err)
		assert.Equal(t, before, buf)
	})
}

func TestScanStopsEarly(t *testing.T) {
	buf := concat(box("styp", []byte("msdh")), box("moof", mfhd(4)), []byte{0, 0, 1})

	var seen []string
	err := Scan(buf, func(e Entry) bool {
		seen = append(seen, e.Type.String())
		return e.Type != TypeMoof
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"styp", "moof"}, seen)

	_, err = Walk(buf)
	assert.ErrorIs(t, err, ErrTruncatedBox)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
