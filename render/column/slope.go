package column

import (
	"math"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
)

type Offset struct {
	X, Z int
}

var (
	// PrimaryOffsets look north, north-west and west, towards the light.
	PrimaryOffsets = []Offset{{0, -1}, {-1, -1}, {-1, 0}}
	// SecondaryOffsets widen the sample along the diagonals.
	SecondaryOffsets = []Offset{{-1, -2}, {-2, -1}, {-3, -1}, {-1, -3}}
	CardinalOffsets  = []Offset{{0, -1}, {-1, 0}, {0, 1}, {1, 0}}
)

// Estimator derives a per-column shading factor from neighbouring
// heights. Values below 1 face away from the light, above 1 towards it.
type Estimator struct {
	Env      *Env
	Resolver HeightResolver
	Provider chunk.Provider
	Primary  []Offset
	// Secondary is consulted when antialiasing is on and the primary
	// sample is exactly flat.
	Secondary []Offset
	// Exaggerate applies the up/down slope multipliers.
	Exaggerate bool
}

func NewSurfaceEstimator(env *Env, r HeightResolver, p chunk.Provider) *Estimator {
	return &Estimator{
		Env:        env,
		Resolver:   r,
		Provider:   p,
		Primary:    PrimaryOffsets,
		Secondary:  SecondaryOffsets,
		Exaggerate: true,
	}
}

func NewTopoEstimator(env *Env, r HeightResolver, p chunk.Provider) *Estimator {
	return &Estimator{
		Env:      env,
		Resolver: r,
		Provider: p,
		Primary:  CardinalOffsets,
	}
}

// Slope returns the cached slope of a column, populating the whole chunk
// on a miss.
func (e *Estimator) Slope(c chunk.Chunk, x, z int, mt primitives.MapType) float32 {
	g := c.ColumnCache().PeekSlopes(mt, e.Env.Stamp)
	if g == nil || !g.Complete() {
		g = e.Populate(c, mt)
	}
	v, _ := g.Get(x, z)
	return v
}

// Populate computes slopes for all 256 columns of c unless a complete
// grid for the current stamp already exists.
func (e *Estimator) Populate(c chunk.Chunk, mt primitives.MapType) *chunk.Grid[float32] {
	g := c.ColumnCache().Slopes(mt, e.Env.Stamp)
	if g.Complete() {
		return g
	}
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			g.Set(x, z, e.column(c, x, z, mt))
		}
	}
	g.MarkComplete()
	return g
}

func (e *Estimator) column(c chunk.Chunk, x, z int, mt primitives.MapType) float32 {
	sh := e.Env.Opts.Shading
	h := e.Resolver.Height(c, x, z, mt)
	primary := e.sample(c, e.Primary, x, z, h, mt)
	slope := primary
	if e.Exaggerate {
		if slope < 1 {
			slope *= sh.PrimaryDownslope
		} else if slope > 1 {
			slope *= sh.PrimaryUpslope
		}
		if e.Env.Opts.Antialiasing && primary == 1 && len(e.Secondary) > 0 {
			secondary := e.sample(c, e.Secondary, x, z, h, mt)
			if secondary > primary {
				slope *= sh.SecondaryUpslope
			} else if secondary < primary {
				slope *= sh.SecondaryDownslope
			}
		}
	}
	if math.IsNaN(float64(slope)) {
		slope = 1
	}
	return min(max(slope, sh.SlopeMin), sh.SlopeMax)
}

func (e *Estimator) sample(c chunk.Chunk, offsets []Offset, x, z, h int, mt primitives.MapType) float32 {
	if h <= 0 || len(offsets) == 0 {
		return 1
	}
	var sum float32
	for _, o := range offsets {
		sum += float32(h) / float32(e.neighbor(c, x, z, o, h, mt))
	}
	return sum / float32(len(offsets))
}

// neighbor returns def when the neighbour chunk is not loaded.
func (e *Estimator) neighbor(c chunk.Chunk, x, z int, o Offset, def int, mt primitives.MapType) int {
	pos, lx, lz := chunk.Offset(c.Pos(), x, z, o.X, o.Z)
	if pos == c.Pos() {
		return e.Resolver.Height(c, lx, lz, mt)
	}
	if e.Provider == nil {
		return def
	}
	n := e.Provider.Chunk(pos)
	if n == nil {
		return def
	}
	return e.Resolver.Resolve(n, lx, lz, mt)
}
