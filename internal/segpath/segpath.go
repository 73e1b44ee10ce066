// Package segpath decodes segment request paths into stream and chunk identifiers.
//
// Two grammars are accepted:
//
//	/{session}/{stream}-{chunk}.m4s   hierarchical, exactly one directory
//	/{stream}-{chunk}.m4s             legacy
//
// In both, the file name may also use the chunk-stream form
// chunk-stream{stream}-{chunk}.m4s.
package segpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPathFormat is returned for paths outside both grammars. Callers treat it
// as "not an ad-insertion request".
var ErrInvalidPathFormat = errors.New("invalid segment path format")

const (
	segmentExt      = ".m4s"
	chunkStreamStem = "chunk-stream"
)

// Style is the file name convention of a decoded path.
type Style uint8

const (
	// StyleNumeric is {stream}-{chunk}.m4s.
	StyleNumeric Style = iota
	// StyleChunkStream is chunk-stream{stream}-{chunk}.m4s.
	StyleChunkStream
)

func (s Style) String() string {
	if s == StyleChunkStream {
		return "chunk-stream"
	}
	return "numeric"
}

// MarshalText renders the style name in JSON.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Path is a decoded segment request path.
type Path struct {
	SessionID     string `json:"session_id,omitempty"`
	HasSession    bool   `json:"has_session"`
	StreamID      uint64 `json:"stream_id"`
	ChunkSequence uint64 `json:"chunk_sequence"`
	Style         Style  `json:"style"`
}

// Decode parses p. The hierarchical grammar is tried first; a path with a single
// element is read with the legacy grammar. A non-numeric identifier fails the
// decode rather than falling back to the other grammar.
func Decode(p string) (Path, error) {
	rest, ok := strings.CutPrefix(p, "/")
	if !ok {
		return Path{}, invalid(p, "path must be absolute")
	}

	elems := strings.Split(rest, "/")
	switch len(elems) {
	case 2:
		if elems[0] == "" {
			return Path{}, invalid(p, "empty session")
		}
		path, err := decodeFilename(elems[1])
		if err != nil {
			return Path{}, invalid(p, err.Error())
		}
		path.SessionID = elems[0]
		path.HasSession = true
		return path, nil
	case 1:
		path, err := decodeFilename(elems[0])
		if err != nil {
			return Path{}, invalid(p, err.Error())
		}
		return path, nil
	default:
		return Path{}, invalid(p, "expected at most one directory before the file name")
	}
}

func decodeFilename(name string) (Path, error) {
	stem, ok := strings.CutSuffix(name, segmentExt)
	if !ok {
		return Path{}, errors.New("not an .m4s file")
	}

	var path Path
	if ids, ok := strings.CutPrefix(stem, chunkStreamStem); ok {
		stem = ids
		path.Style = StyleChunkStream
	}

	streamText, chunkText, ok := strings.Cut(stem, "-")
	if !ok {
		return Path{}, errors.New("file name must be {stream}-{chunk}")
	}

	var err error
	if path.StreamID, err = parseID(streamText); err != nil {
		return Path{}, fmt.Errorf("stream id: %w", err)
	}
	if path.ChunkSequence, err = parseID(chunkText); err != nil {
		return Path{}, fmt.Errorf("chunk sequence: %w", err)
	}

	return path, nil
}

// parseID accepts a non-empty run of decimal digits that fits in 64 bits.
func parseID(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not a decimal number", s)
		}
	}
	return strconv.ParseUint(s, 10, 64)
}

func invalid(p, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidPathFormat, p, reason)
}

// Filename renders the file name element in the path's style.
func (p Path) Filename() string {
	if p.Style == StyleChunkStream {
		return fmt.Sprintf("%s%d-%d%s", chunkStreamStem, p.StreamID, p.ChunkSequence, segmentExt)
	}
	return fmt.Sprintf("%d-%d%s", p.StreamID, p.ChunkSequence, segmentExt)
}

// String re-encodes the path in the grammar it was decoded from. Identifiers are
// rendered without leading zeros.
func (p Path) String() string {
	if p.HasSession {
		return "/" + p.SessionID + "/" + p.Filename()
	}
	return "/" + p.Filename()
}

// WithSession returns a copy of p under the given session directory.
func (p Path) WithSession(session string) Path {
	p.SessionID = session
	p.HasSession = true
	return p
}

// WithChunk returns a copy of p addressing a different chunk.
func (p Path) WithChunk(chunk uint64) Path {
	p.ChunkSequence = chunk
	return p
}
