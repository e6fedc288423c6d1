package renderers

import (
	"errors"
	"log/slog"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/column"
	"github.com/maxsupermanhd/WebChunkCarto/render/strata"
)

// Surface renders the day and night top-down view.
type Surface struct {
	base
	heights *column.Surface
	slopes  *column.Estimator
}

func NewSurface(dim Dimension, p chunk.Provider, cfg render.ConfigSource, l *slog.Logger, bad *BadBlockLog) *Surface {
	r := &Surface{}
	r.init(primitives.NewMapType(dim.Name, primitives.ModeSurface, 0), dim, p, cfg, l, bad)
	r.heights = &column.Surface{Env: &r.env}
	r.slopes = column.NewSurfaceEstimator(&r.env, r.heights, p)
	return r
}

func (r *Surface) RenderChunk(c chunk.Chunk, t render.Targets) (ok bool) {
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

func (r *Surface) column(c chunk.Chunk, x, z int, t render.Targets) bool {
	defer r.badColumn(c, x, z, t.Day, t.Night)
	h := r.heights.Height(c, x, z, r.mt)
	top := max(c.PrecipitationHeight(x, z), h)
	r.strata.BuildSurface(c, x, z, top, h)
	res, err := r.strata.Composite()
	if errors.Is(err, strata.ErrNoData) {
		paint(x, z, r.void, t.Day, t.Night)
		return false
	}
	if err != nil {
		r.markBad(c, x, z, err, t.Day, t.Night)
		return false
	}
	slope := r.slopes.Slope(c, x, z, r.mt)
	t.Day.SetRGBA(x, z, bevel(res.Day, slope))
	if t.Night != nil {
		t.Night.SetRGBA(x, z, bevel(res.Night, slope))
	}
	return true
}
