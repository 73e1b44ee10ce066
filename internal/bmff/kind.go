package bmff

// Kind tags the box types the inspector understands. Everything else is KindUnknown
// and is carried through opaquely.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFtyp
	KindStyp
	KindSidx
	KindMoov
	KindMoof
	KindMfhd
	KindMdat
)

var kindByType = map[BoxType]Kind{
	TypeFtyp: KindFtyp,
	TypeStyp: KindStyp,
	TypeSidx: KindSidx,
	TypeMoov: KindMoov,
	TypeMoof: KindMoof,
	TypeMfhd: KindMfhd,
	TypeMdat: KindMdat,
}

// KindOf maps a box type to its kind.
func KindOf(t BoxType) Kind {
	if k, ok := kindByType[t]; ok {
		return k
	}
	return KindUnknown
}

// IsContainer reports whether the walker descends into boxes of this kind.
func (k Kind) IsContainer() bool {
	return k == KindMoov || k == KindMoof
}

func (k Kind) String() string {
	switch k {
	case KindFtyp:
		return "ftyp"
	case KindStyp:
		return "styp"
	case KindSidx:
		return "sidx"
	case KindMoov:
		return "moov"
	case KindMoof:
		return "moof"
	case KindMfhd:
		return "mfhd"
	case KindMdat:
		return "mdat"
	default:
		return "unknown"
	}
}
