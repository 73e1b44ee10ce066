package decision

import (
	"errors"
	"fmt"
	"math"
)

// ErrSequenceOutOfRange is returned when a computed target sequence does not fit the
// 32-bit mfhd sequence field.
var ErrSequenceOutOfRange = errors.New("target sequence out of range")

// Slot is the outcome of the offset mapping for one chunk.
type Slot struct {
	// AssetSequence selects the pre-rendered ad fragment to fetch.
	AssetSequence uint64
	// TargetSequence is stamped into the fetched fragment's mfhd.
	TargetSequence uint64
}

// OffsetFunc maps a chunk sequence to an ad slot.
type OffsetFunc func(chunk uint64) (Slot, error)

// CycleRule maps chunks onto a small pool of ad fragments:
//
//	asset  = PoolBase + (chunk / Stride) % PoolSize
//	target = chunk + TargetOffset
type CycleRule struct {
	PoolBase     uint64
	PoolSize     uint64
	Stride       uint64
	TargetOffset int64
}

// Validate checks the rule can be evaluated.
func (r CycleRule) Validate() error {
	if r.PoolSize == 0 {
		return errors.New("pool_size must be positive")
	}
	if r.Stride == 0 {
		return errors.New("stride must be positive")
	}
	if r.PoolBase > math.MaxUint64-(r.PoolSize-1) {
		return fmt.Errorf("pool_base %d leaves no room for %d assets", r.PoolBase, r.PoolSize)
	}
	return nil
}

// Slot evaluates the rule. It satisfies OffsetFunc as a method value.
func (r CycleRule) Slot(chunk uint64) (Slot, error) {
	slot := Slot{AssetSequence: r.PoolBase + (chunk/r.Stride)%r.PoolSize}

	switch {
	case r.TargetOffset >= 0:
		off := uint64(r.TargetOffset)
		if chunk > math.MaxUint64-off {
			return Slot{}, fmt.Errorf("%w: chunk %d + %d overflows", ErrSequenceOutOfRange, chunk, r.TargetOffset)
		}
		slot.TargetSequence = chunk + off
	default:
		off := uint64(-(r.TargetOffset + 1)) + 1
		if chunk < off {
			return Slot{}, fmt.Errorf("%w: chunk %d with offset %d is negative", ErrSequenceOutOfRange, chunk, r.TargetOffset)
		}
		slot.TargetSequence = chunk - off
	}

	return slot, nil
}
