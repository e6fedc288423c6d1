package renderers

import (
	"image/color"
	"log/slog"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/column"
	"github.com/maxsupermanhd/WebChunkCarto/render/rgb"
)

// topoDownhill darkens bands on the low side of a contour line.
const topoDownhill = 0.9

// Topo renders contour bands from the land and water palettes.
type Topo struct {
	base
	heights *column.Topo
	slopes  *column.Estimator
	palette render.TopoPalette
}

func NewTopo(dim Dimension, p chunk.Provider, cfg render.ConfigSource, l *slog.Logger, bad *BadBlockLog) *Topo {
	r := &Topo{}
	r.init(primitives.NewMapType(dim.Name, primitives.ModeTopo, 0), dim, p, cfg, l, bad)
	r.heights = &column.Topo{Env: &r.env}
	r.slopes = column.NewTopoEstimator(&r.env, r.heights, p)
	return r
}

func (r *Topo) RenderChunk(c chunk.Chunk, t render.Targets) (ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.enter(render.PhaseIdle)
	defer r.guard(c, &ok)
	if c == nil || t.Day == nil {
		r.log.Error("Render without chunk or day target")
		r.enter(render.PhaseFailed)
		return false
	}
	r.sync()
	r.palette = r.env.Opts.TopoPalette()
	r.slopes.Populate(c, r.mt)
	r.enter(render.PhaseSlopesPopulated)
	painted := false
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			if r.column(c, x, z, t) {
				painted = true
			}
		}
	}
	r.enter(render.PhaseRendered)
	return r.finish(painted)
}

func (r *Topo) column(c chunk.Chunk, x, z int, t render.Targets) bool {
	defer r.badColumn(c, x, z, t.Day)
	h := r.heights.Height(c, x, z, r.mt)
	water := r.heights.IsWater(c, x, z, r.mt)
	if h <= 0 && !water {
		t.Day.SetRGBA(x, z, r.void)
		return false
	}
	t.Day.SetRGBA(x, z, r.color(c, x, z, h, water))
	return true
}

func (r *Topo) color(c chunk.Chunk, x, z, h int, water bool) color.RGBA {
	if water && r.shore(c, x, z) {
		return r.palette.LandContour
	}
	slope := r.slopes.Slope(c, x, z, r.mt)
	if slope > 1 {
		if water {
			return r.palette.WaterContour
		}
		return r.palette.LandContour
	}
	bands := r.palette.Land
	if water {
		bands = r.palette.Water
	}
	col := bands[BandIndex(h, r.heights.Interval(water), len(bands))]
	if slope < 1 {
		col = rgb.Adjust(col, topoDownhill)
	}
	return col
}

// BandIndex maps a snapped height to a palette index.
func BandIndex(h, interval, n int) int {
	if interval <= 0 || n == 0 {
		return 0
	}
	return min(max(h/interval, 0), n-1)
}

// shore reports whether a water column touches land on a cardinal side.
// The answer is kept in the shore grid so redraws skip the neighbour
// walks.
func (r *Topo) shore(c chunk.Chunk, x, z int) bool {
	g := c.ColumnCache().Shore(r.mt, r.env.Stamp)
	if v, ok := g.Get(x, z); ok {
		return v
	}
	v := false
	for _, o := range column.CardinalOffsets {
		if r.isLand(c, x, z, o) {
			v = true
			break
		}
	}
	g.Set(x, z, v)
	return v
}

func (r *Topo) isLand(c chunk.Chunk, x, z int, o column.Offset) bool {
	pos, lx, lz := chunk.Offset(c.Pos(), x, z, o.X, o.Z)
	if pos == c.Pos() {
		return !r.heights.IsWater(c, lx, lz, r.mt)
	}
	n := r.provider.Chunk(pos)
	if n == nil {
		return false
	}
	return !r.heights.WaterAt(n, lx, lz)
}
