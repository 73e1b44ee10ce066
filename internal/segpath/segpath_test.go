package segpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Path
	}{
		{
			name: "hierarchical",
			path: "/123/0-38304768.m4s",
			want: Path{SessionID: "123", HasSession: true, StreamID: 0, ChunkSequence: 38304768},
		},
		{
			name: "legacy",
			path: "/0-38304768.m4s",
			want: Path{StreamID: 0, ChunkSequence: 38304768},
		},
		{
			name: "session that looks like an address",
			path: "/192.168.0.10/0-10.m4s",
			want: Path{SessionID: "192.168.0.10", HasSession: true, ChunkSequence: 10},
		},
		{
			name: "chunk-stream under a session",
			path: "/TVD0002/chunk-stream2-86293.m4s",
			want: Path{SessionID: "TVD0002", HasSession: true, StreamID: 2, ChunkSequence: 86293, Style: StyleChunkStream},
		},
		{
			name: "legacy chunk-stream",
			path: "/chunk-stream0-40.m4s",
			want: Path{StreamID: 0, ChunkSequence: 40, Style: StyleChunkStream},
		},
		{
			name: "max uint64 chunk",
			path: "/1-18446744073709551615.m4s",
			want: Path{StreamID: 1, ChunkSequence: 18446744073709551615},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	paths := []string{
		"/invalid.m4s",
		"",
		"/",
		"0-10.m4s",
		"/a/b/0-10.m4s",
		"//0-10.m4s",
		"/123/0-10.mp4",
		"/123/x-10.m4s",
		"/123/0-y.m4s",
		"/x-10.m4s",
		"/0-.m4s",
		"/-10.m4s",
		"/+1-10.m4s",
		"/0-10-2.m4s",
		"/0-18446744073709551616.m4s",
		"/123/chunk-streamA-10.m4s",
		"/123/",
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			_, err := Decode(p)
			assert.ErrorIs(t, err, ErrInvalidPathFormat)
		})
	}
}

func TestPathString(t *testing.T) {
	for _, p := range []string{
		"/123/0-38304768.m4s",
		"/0-38304768.m4s",
		"/TVD0002/chunk-stream2-86293.m4s",
		"/chunk-stream0-40.m4s",
	} {
		decoded, err := Decode(p)
		require.NoError(t, err)
		assert.Equal(t, p, decoded.String())
	}
}

func TestPathRewrites(t *testing.T) {
	p, err := Decode("/TVD0002/chunk-stream2-86280.m4s")
	require.NoError(t, err)

	assert.Equal(t, "/AD001/chunk-stream2-86280.m4s", p.WithSession("AD001").String())
	assert.Equal(t, "/TVD0002/chunk-stream2-38304768.m4s", p.WithChunk(38304768).String())
	assert.Equal(t, "/TVD0002/chunk-stream2-86280.m4s", p.String(), "rewrites return copies")

	legacy, err := Decode("/1-5.m4s")
	require.NoError(t, err)
	assert.Equal(t, "/AD001/1-5.m4s", legacy.WithSession("AD001").String())
}
