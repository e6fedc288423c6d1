package column

import (
	"log/slog"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
)

// Env is the render state shared by a renderer's resolvers and slope
// estimator. The owning renderer refreshes it before every chunk.
type Env struct {
	Opts        render.Options
	Stamp       int64
	WorldHeight int
	Log         *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// HeightResolver finds the mapped height of a column. Height memoizes
// the result in the chunk's column cache; Resolve leaves the cache alone
// and is used for neighbour chunks that another worker may own.
type HeightResolver interface {
	Height(c chunk.Chunk, x, z int, mt primitives.MapType) int
	Resolve(c chunk.Chunk, x, z int, mt primitives.MapType) int
}

// SliceBounds returns the y range covered by an underground slice.
func SliceBounds(slice, worldHeight int) (minY, maxY int) {
	minY = max(slice*16, 0)
	maxY = min((slice+1)*16-1, worldHeight-1)
	if minY >= maxY {
		maxY = minY + 2
	}
	return
}

// ContourInterval is the topographic band height for a palette.
func ContourInterval(worldHeight, paletteLen int) int {
	if paletteLen <= 0 {
		return worldHeight
	}
	return max(1, worldHeight/paletteLen)
}

type Surface struct {
	Env *Env
}

func (r *Surface) Height(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	cache := c.ColumnCache()
	g := cache.Heights(mt, r.Env.Stamp)
	if h, ok := g.Get(x, z); ok {
		return h
	}
	y, fluidY := r.walk(c, x, z)
	cache.FluidHeights(mt, r.Env.Stamp).Set(x, z, fluidY)
	g.Set(x, z, y)
	return y
}

func (r *Surface) Resolve(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	y, _ := r.walk(c, x, z)
	return y
}

// FluidHeight returns the topmost fluid y recorded while resolving the
// column, if the walk passed through fluid.
func (r *Surface) FluidHeight(c chunk.Chunk, x, z int, mt primitives.MapType) (int, bool) {
	r.Height(c, x, z, mt)
	y, ok := c.ColumnCache().FluidHeights(mt, r.Env.Stamp).Get(x, z)
	if !ok || y < 0 {
		return 0, false
	}
	return y, true
}

func (r *Surface) walk(c chunk.Chunk, x, z int) (y, fluidY int) {
	fluidY = -1
	y = max(0, c.PrecipitationHeight(x, z))
	defer func() {
		if err := recover(); err != nil {
			r.Env.logger().Warn("Surface height walk failed", "chunk", c.Pos(), "x", x, "z", z, "y", y, "err", err)
			y = max(0, y)
		}
	}()
walk:
	for y > 0 {
		b := c.Block(x, y, z)
		switch {
		case b.IsIgnore():
		case b.IsLava():
			break walk
		case b.IsFluid():
			if !r.Env.Opts.Bathymetry {
				break walk
			}
			if fluidY < 0 {
				fluidY = y
			}
		case b.HasTransparency() && r.Env.Opts.Transparency:
		case b.HasNoShadow():
			y--
			break walk
		default:
			break walk
		}
		y--
	}
	return max(0, y), fluidY
}

type Underground struct {
	Env *Env
}

func (r *Underground) Height(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	g := c.ColumnCache().Heights(mt, r.Env.Stamp)
	if h, ok := g.Get(x, z); ok {
		return h
	}
	minY, maxY := SliceBounds(mt.Slice, r.Env.WorldHeight)
	y := r.walk(c, x, z, minY, maxY)
	g.Set(x, z, y)
	return y
}

func (r *Underground) Resolve(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	minY, maxY := SliceBounds(mt.Slice, r.Env.WorldHeight)
	return r.walk(c, x, z, minY, maxY)
}

func (r *Underground) clear(b *chunk.Block) bool {
	return b.IsIgnore() || b.IsOpenToSky() || (r.Env.Opts.Bathymetry && b.IsWater())
}

func (r *Underground) walk(c chunk.Chunk, x, z, minY, maxY int) (y int) {
	y = maxY
	defer func() {
		if err := recover(); err != nil {
			r.Env.logger().Warn("Slice height walk failed", "chunk", c.Pos(), "x", x, "z", z, "y", y, "err", err)
			y = max(0, maxY)
		}
	}()
	for ; y > 0; y-- {
		if y < minY {
			break
		}
		b := c.Block(x, y, z)
		if r.clear(b) {
			continue
		}
		if b.HasNoShadow() && y == maxY {
			// stops the surface from bleeding into the slice below
			return y
		}
		if r.clear(c.Block(x, y+1, z)) && !c.CanSeeSky(x, y+1, z) {
			return y
		}
	}
	return max(0, y)
}

// LavaFloor replaces Underground in dimensions without sky, where the
// lava sea is the floor of every slice.
type LavaFloor struct {
	Env *Env
}

func (r *LavaFloor) Height(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	g := c.ColumnCache().Heights(mt, r.Env.Stamp)
	if h, ok := g.Get(x, z); ok {
		return h
	}
	_, maxY := SliceBounds(mt.Slice, r.Env.WorldHeight)
	y := r.walk(c, x, z, maxY)
	g.Set(x, z, y)
	return y
}

func (r *LavaFloor) Resolve(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	_, maxY := SliceBounds(mt.Slice, r.Env.WorldHeight)
	return r.walk(c, x, z, maxY)
}

func (r *LavaFloor) walk(c chunk.Chunk, x, z, maxY int) (y int) {
	y = maxY
	defer func() {
		if err := recover(); err != nil {
			r.Env.logger().Warn("Lava floor walk failed", "chunk", c.Pos(), "x", x, "z", z, "y", y, "err", err)
			y = max(0, maxY)
		}
	}()
	b := c.Block(x, y, z)
	above := c.Block(x, y+1, z)
	for y > 0 {
		if b.IsLava() {
			break
		}
		if above.IsIgnore() && !b.IsIgnore() {
			break
		}
		y--
		above = b
		b = c.Block(x, y, z)
	}
	return max(0, y)
}

// Topo resolves heights snapped down to the contour interval of the land
// or water palette. Columns topped with water record their water level in
// the fluid height grid.
type Topo struct {
	Env *Env
}

func (r *Topo) Height(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	cache := c.ColumnCache()
	g := cache.Heights(mt, r.Env.Stamp)
	if h, ok := g.Get(x, z); ok {
		return h
	}
	y, water := r.walk(c, x, z)
	fluidY := -1
	if water {
		fluidY = y
	}
	cache.FluidHeights(mt, r.Env.Stamp).Set(x, z, fluidY)
	snapped := y - y%r.Interval(water)
	g.Set(x, z, snapped)
	return snapped
}

func (r *Topo) Resolve(c chunk.Chunk, x, z int, mt primitives.MapType) int {
	y, water := r.walk(c, x, z)
	return y - y%r.Interval(water)
}

// IsWater reports whether the column top is water.
func (r *Topo) IsWater(c chunk.Chunk, x, z int, mt primitives.MapType) bool {
	r.Height(c, x, z, mt)
	y, ok := c.ColumnCache().FluidHeights(mt, r.Env.Stamp).Get(x, z)
	return ok && y >= 0
}

// WaterAt is IsWater without touching the column cache.
func (r *Topo) WaterAt(c chunk.Chunk, x, z int) bool {
	_, water := r.walk(c, x, z)
	return water
}

func (r *Topo) Interval(water bool) int {
	if water {
		return ContourInterval(r.Env.WorldHeight, len(r.Env.Opts.Topo.Water))
	}
	return ContourInterval(r.Env.WorldHeight, len(r.Env.Opts.Topo.Land))
}

func (r *Topo) walk(c chunk.Chunk, x, z int) (y int, water bool) {
	y = max(0, c.PrecipitationHeight(x, z))
	defer func() {
		if err := recover(); err != nil {
			r.Env.logger().Warn("Topo height walk failed", "chunk", c.Pos(), "x", x, "z", z, "y", y, "err", err)
			y = max(0, y)
			water = false
		}
	}()
	for y > 0 {
		b := c.Block(x, y, z)
		if b.IsIgnore() || b.Has(chunk.NoTopo) {
			y--
			continue
		}
		return y, b.IsWater()
	}
	return 0, false
}
