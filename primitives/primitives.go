package primitives

import "fmt"

type Mode uint8

const (
	ModeSurface Mode = iota
	ModeUnderground
	ModeTopo
)

func (m Mode) String() string {
	switch m {
	case ModeSurface:
		return "surface"
	case ModeUnderground:
		return "underground"
	case ModeTopo:
		return "topo"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func ParseMode(s string) (Mode, bool) {
	switch s {
	case "surface", "day", "night":
		return ModeSurface, true
	case "underground", "cave":
		return ModeUnderground, true
	case "topo":
		return ModeTopo, true
	}
	return ModeSurface, false
}

// MapType identifies what is being rendered. Slice is only meaningful
// for underground maps and is zeroed otherwise so MapType can be used
// as a map key.
type MapType struct {
	Dimension string
	Mode      Mode
	Slice     int
}

func NewMapType(dim string, mode Mode, slice int) MapType {
	if mode != ModeUnderground {
		slice = 0
	}
	return MapType{Dimension: dim, Mode: mode, Slice: slice}
}

func (m MapType) IsUnderground() bool {
	return m.Mode == ModeUnderground
}

func (m MapType) String() string {
	if m.Mode == ModeUnderground {
		return fmt.Sprintf("%s:%s:%d", m.Dimension, m.Mode, m.Slice)
	}
	return fmt.Sprintf("%s:%s", m.Dimension, m.Mode)
}

type ImageLocation struct {
	World, Dimension, Variant string
	S, X, Z                   int
}

func (i ImageLocation) String() string {
	return fmt.Sprintf("{%s:%s:%s at %ds %dx %dz}", i.World, i.Dimension, i.Variant, i.S, i.X, i.Z)
}
