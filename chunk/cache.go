package chunk

import "github.com/maxsupermanhd/WebChunkCarto/primitives"

type CacheKind uint8

const (
	Heights CacheKind = iota
	Slopes
	FluidHeights
	Shore
)

func (k CacheKind) String() string {
	switch k {
	case Heights:
		return "heights"
	case Slopes:
		return "slopes"
	case FluidHeights:
		return "fluidHeights"
	case Shore:
		return "shore"
	}
	return "unknown"
}

type CacheKey struct {
	Kind  CacheKind
	Mode  primitives.Mode
	Slice int
}

func keyFor(kind CacheKind, mt primitives.MapType) CacheKey {
	return CacheKey{Kind: kind, Mode: mt.Mode, Slice: mt.Slice}
}

// Grid is one 16x16 layer of per-column values. Stamp is the
// configuration version the values were computed under.
type Grid[T any] struct {
	Stamp    int64
	vals     [Size * Size]T
	set      [Size * Size]bool
	complete bool
}

func (g *Grid[T]) Get(x, z int) (T, bool) {
	i := z*Size + x
	return g.vals[i], g.set[i]
}

func (g *Grid[T]) Set(x, z int, v T) {
	i := z*Size + x
	g.vals[i] = v
	g.set[i] = true
}

// Complete reports whether the whole grid was populated in one sweep.
func (g *Grid[T]) Complete() bool {
	return g.complete
}

func (g *Grid[T]) MarkComplete() {
	g.complete = true
}

// Values returns a copy indexed [x][z].
func (g *Grid[T]) Values() [Size][Size]T {
	var r [Size][Size]T
	for z := 0; z < Size; z++ {
		for x := 0; x < Size; x++ {
			r[x][z] = g.vals[z*Size+x]
		}
	}
	return r
}

// ColumnCache holds lazily computed per-map-type column data for one
// chunk. The zero value is ready to use. It does no locking: a chunk is
// rendered by one writer at a time.
type ColumnCache struct {
	ints   map[CacheKey]*Grid[int]
	floats map[CacheKey]*Grid[float32]
	bools  map[CacheKey]*Grid[bool]
}

func (c *ColumnCache) Invalidate() {
	c.ints = nil
	c.floats = nil
	c.bools = nil
}

func lookup[T any](m *map[CacheKey]*Grid[T], key CacheKey, stamp int64, create bool) *Grid[T] {
	g, ok := (*m)[key]
	if ok && g.Stamp == stamp {
		return g
	}
	if !create {
		return nil
	}
	if *m == nil {
		*m = map[CacheKey]*Grid[T]{}
	}
	g = &Grid[T]{Stamp: stamp}
	(*m)[key] = g
	return g
}

func (c *ColumnCache) Heights(mt primitives.MapType, stamp int64) *Grid[int] {
	return lookup(&c.ints, keyFor(Heights, mt), stamp, true)
}

func (c *ColumnCache) FluidHeights(mt primitives.MapType, stamp int64) *Grid[int] {
	return lookup(&c.ints, keyFor(FluidHeights, mt), stamp, true)
}

func (c *ColumnCache) Slopes(mt primitives.MapType, stamp int64) *Grid[float32] {
	return lookup(&c.floats, keyFor(Slopes, mt), stamp, true)
}

// PeekSlopes returns the slope grid only if it exists for this stamp.
func (c *ColumnCache) PeekSlopes(mt primitives.MapType, stamp int64) *Grid[float32] {
	return lookup(&c.floats, keyFor(Slopes, mt), stamp, false)
}

func (c *ColumnCache) Shore(mt primitives.MapType, stamp int64) *Grid[bool] {
	return lookup(&c.bools, keyFor(Shore, mt), stamp, true)
}
