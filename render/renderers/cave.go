package renderers

import (
	"errors"
	"log/slog"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/column"
	"github.com/maxsupermanhd/WebChunkCarto/render/rgb"
	"github.com/maxsupermanhd/WebChunkCarto/render/strata"
)

// Cave renders one underground slice. Columns without a lit floor show
// the dimmed surface tile when it is close enough above, black otherwise.
type Cave struct {
	base
	heights  column.HeightResolver
	slopes   *column.Estimator
	surface  *column.Surface
	surfaceT primitives.MapType
}

func NewCave(dim Dimension, slice int, p chunk.Provider, cfg render.ConfigSource, l *slog.Logger, bad *BadBlockLog) *Cave {
	r := &Cave{surfaceT: primitives.NewMapType(dim.Name, primitives.ModeSurface, 0)}
	r.init(primitives.NewMapType(dim.Name, primitives.ModeUnderground, slice), dim, p, cfg, l, bad)
	r.heights = dim.Underground(&r.env)
	r.slopes = column.NewSurfaceEstimator(&r.env, r.heights, p)
	r.surface = &column.Surface{Env: &r.env}
	return r
}

// overlayAllowed reports whether the surface may show through unlit
// columns with the current options.
func (r *Cave) overlayAllowed() bool {
	return r.env.Opts.SurfaceAboveCaves && r.dim.Lighting.SurfaceAboveCaves
}

func (r *Cave) RenderChunk(c chunk.Chunk, t render.Targets) (ok bool) {
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
	r.slopes.Populate(c, r.mt)
	r.enter(render.PhaseSlopesPopulated)
	minY, maxY := column.SliceBounds(r.mt.Slice, r.env.WorldHeight)
	painted := false
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			if r.column(c, x, z, minY, maxY, t) {
				painted = true
			}
		}
	}
	r.enter(render.PhaseRendered)
	return r.finish(painted)
}

func (r *Cave) column(c chunk.Chunk, x, z, minY, maxY int, t render.Targets) bool {
	defer r.badColumn(c, x, z, t.Day)
	h := r.heights.Height(c, x, z, r.mt)
	r.strata.BuildCave(c, x, z, maxY, minY)
	res, err := r.strata.Composite()
	if errors.Is(err, strata.ErrNoData) {
		return r.overlay(c, x, z, h, t)
	}
	if err != nil {
		r.markBad(c, x, z, err, t.Day)
		return false
	}
	t.Day.SetRGBA(x, z, bevel(res.Cave, r.slopes.Slope(c, x, z, r.mt)))
	return true
}

func (r *Cave) overlay(c chunk.Chunk, x, z, h int, t render.Targets) bool {
	if t.Surface == nil || !r.overlayAllowed() {
		t.Day.SetRGBA(x, z, rgb.Black)
		return false
	}
	gap := r.surface.Height(c, x, z, r.surfaceT) - h
	if gap > r.env.Opts.Tweak.CaveSurfaceGap {
		t.Day.SetRGBA(x, z, rgb.Black)
		return false
	}
	t.Day.SetRGBA(x, z, rgb.Adjust(t.Surface.RGBAAt(x, z), r.env.Opts.Tweak.CaveDim))
	return true
}
