package segment

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/adsplice/internal/bmff"
)

func TestInspect(t *testing.T) {
	t.Run("media segment", func(t *testing.T) {
		buf := mediaSegment(t, 38304768)

		report, err := Inspect(buf)
		require.NoError(t, err)

		require.NotNil(t, report.FragmentSequence)
		assert.Equal(t, uint32(38304768), *report.FragmentSequence)
		assert.True(t, report.HasFragmentHeader())

		require.NotNil(t, report.Styp)
		assert.Equal(t, "msdh", report.Styp.MajorBrand)
		assert.Equal(t, uint32(0), report.Styp.MinorVersion)
		assert.Equal(t, []string{"msdh", "msix"}, report.Styp.CompatibleBrands)
		assert.Nil(t, report.Ftyp)

		require.NotNil(t, report.Sidx)
		assert.Equal(t, uint8(0), report.Sidx.Version)
		assert.Equal(t, uint32(1), report.Sidx.ReferenceID)
		assert.Equal(t, uint32(90000), report.Sidx.Timescale)
		assert.Equal(t, uint64(90000), report.Sidx.EarliestPresentationTime)

		require.NotNil(t, report.Moof)
		assert.Equal(t, uint32(38304768), *report.Moof.SequenceNumber)
		require.Len(t, report.Fragments, 1)

		require.NotNil(t, report.MdatSize)
		assert.Equal(t, uint64(12), *report.MdatSize)

		types := make([]string, 0, len(report.Boxes))
		for _, b := range report.Boxes {
			types = append(types, b.Type.String())
		}
		assert.Equal(t, []string{"styp", "sidx", "moof", "mdat"}, types)
	})

	t.Run("sidx version 1 keeps 64-bit fields", func(t *testing.T) {
		ept := uint64(math.MaxUint32) + 10
		buf := append(stypBox(), sidxV1(2, 48000, ept, 1<<40)...)

		report, err := Inspect(buf)
		require.NoError(t, err)
		require.NotNil(t, report.Sidx)
		assert.Equal(t, uint8(1), report.Sidx.Version)
		assert.Equal(t, ept, report.Sidx.EarliestPresentationTime)
		assert.Equal(t, uint64(1<<40), report.Sidx.FirstOffset)

		out, err := json.Marshal(report.Sidx)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"earliest_presentation_time":"4294967305"`)
	})

	t.Run("ftyp drops trailing partial brand", func(t *testing.T) {
		buf := box("ftyp", []byte("iso6"), u32(512), []byte("iso6"), []byte("cmfc"), []byte{'d', 'a'})

		report, err := Inspect(buf)
		require.NoError(t, err)
		require.NotNil(t, report.Ftyp)
		assert.Equal(t, "iso6", report.Ftyp.MajorBrand)
		assert.Equal(t, uint32(512), report.Ftyp.MinorVersion)
		assert.Equal(t, []string{"iso6", "cmfc"}, report.Ftyp.CompatibleBrands)
	})

	t.Run("moov children", func(t *testing.T) {
		buf := box("moov", box("mvhd", make([]byte, 4)), box("trak"), box("mvex"))

		report, err := Inspect(buf)
		require.NoError(t, err)
		require.NotNil(t, report.Moov)
		assert.Equal(t, []string{"mvhd", "trak", "mvex"}, report.Moov.Children)
		assert.Nil(t, report.FragmentSequence)
	})

	t.Run("moof without mfhd is not an error", func(t *testing.T) {
		buf := append(box("moof", box("traf")), box("mdat", []byte{1})...)

		report, err := Inspect(buf)
		require.NoError(t, err)
		assert.Nil(t, report.FragmentSequence)
		assert.False(t, report.HasFragmentHeader())
		require.Len(t, report.Fragments, 1)
		assert.Nil(t, report.Fragments[0].SequenceNumber)
	})

	t.Run("multiple fragments", func(t *testing.T) {
		buf := append(encodedFragment(t, 5), encodedFragment(t, 6)...)

		report, err := Inspect(buf)
		require.NoError(t, err)
		require.Len(t, report.Fragments, 2)
		assert.Equal(t, uint32(5), *report.FragmentSequence)
		assert.Equal(t, uint32(6), *report.Fragments[1].SequenceNumber)
	})

	t.Run("short mfhd", func(t *testing.T) {
		buf := box("moof", box("mfhd", u32(0)))

		_, err := Inspect(buf)
		assert.ErrorIs(t, err, bmff.ErrMalformedTree)
	})

	t.Run("short sidx", func(t *testing.T) {
		_, err := Inspect(box("sidx", u32(0), u32(1)))
		assert.ErrorIs(t, err, bmff.ErrMalformedTree)
	})

	t.Run("truncated segment", func(t *testing.T) {
		buf := mediaSegment(t, 1)

		_, err := Inspect(buf[:len(buf)-2])
		assert.ErrorIs(t, err, bmff.ErrTruncatedBox)
	})

	t.Run("does not modify input", func(t *testing.T) {
		buf := mediaSegment(t, 9)
		before := append([]byte(nil), buf...)

		_, err := Inspect(buf)
		require.NoError(t, err)
		assert.Equal(t, before, buf)
	})
}

func TestReportChain(t *testing.T) {
	buf := append(stypBox(), box("moof", mfhdBox(1))...)

	report, err := Inspect(buf)
	require.NoError(t, err)
	assert.Equal(t, "styp (24 bytes) -> moof (24 bytes)", report.Chain())
}
