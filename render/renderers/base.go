package renderers

import (
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/column"
	"github.com/maxsupermanhd/WebChunkCarto/render/rgb"
	"github.com/maxsupermanhd/WebChunkCarto/render/strata"
)

// BadBlockColor marks columns that failed to render.
var BadBlockColor = color.RGBA{0xff, 0x00, 0xff, 0xff}

const badBlockEvery = 2046

// BadBlockLog rate limits bad block warnings to the first one and every
// 2046th after it.
type BadBlockLog struct {
	count atomic.Uint64
}

func (b *BadBlockLog) Count() uint64 {
	return b.count.Load()
}

// Report counts one failure and reports whether it was logged.
func (b *BadBlockLog) Report(l *slog.Logger, mt primitives.MapType, pos chunk.Pos, x, z int, cause any) bool {
	n := b.count.Add(1)
	if n != 1 && n%badBlockEvery != 0 {
		return false
	}
	l.Warn("Bad block", "mapType", mt, "chunk", pos, "x", x, "z", z, "err", cause, "total", n)
	return true
}

// base is the state every renderer shares: the per-instance lock, the
// synced option snapshot and the reusable strata arena.
type base struct {
	lock     sync.Mutex
	mt       primitives.MapType
	dim      Dimension
	cfg      render.ConfigSource
	provider chunk.Provider
	log      *slog.Logger
	bad      *BadBlockLog

	env    column.Env
	strata strata.Strata
	void   color.RGBA
	phase  render.Phase
	synced int64
}

func (b *base) init(mt primitives.MapType, dim Dimension, p chunk.Provider, cfg render.ConfigSource, l *slog.Logger, bad *BadBlockLog) {
	if l == nil {
		l = slog.Default()
	}
	if bad == nil {
		bad = &BadBlockLog{}
	}
	b.mt = mt
	b.dim = dim
	b.cfg = cfg
	b.provider = p
	b.log = l.With("renderer", mt.String())
	b.bad = bad
	b.env = column.Env{Log: l}
}

func (b *base) Name() string {
	return b.mt.String()
}

func (b *base) MapType() primitives.MapType {
	return b.mt
}

func (b *base) Needs() render.DataNeeds {
	return render.DataNeeds{
		Dimension:          true,
		NeighborsBordering: true,
		NeighborsCorners:   true,
	}
}

// Phase is the state the last render ended in.
func (b *base) Phase() render.Phase {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.phase
}

// Synced is the configuration stamp the renderer last synced to.
func (b *base) Synced() int64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.synced
}

// sync copies the live options into the renderer. It runs on every
// render; the stamp only keys the column caches.
func (b *base) sync() {
	opts := b.cfg.Options()
	stamp := b.cfg.LastModified()
	b.env.Opts = opts
	b.env.Stamp = stamp
	b.env.WorldHeight = b.provider.WorldHeight()
	b.strata.Configure(opts, b.dim.Lighting)
	b.void = opts.Void()
	b.synced = stamp
	b.enter(render.PhaseOptionsSynced)
}

// guard turns a panic escaping the chunk render into a failed result.
func (b *base) guard(c chunk.Chunk, ok *bool) {
	err := recover()
	if err == nil {
		return
	}
	pos := chunk.Pos{}
	if c != nil {
		pos = c.Pos()
	}
	b.log.Error("Chunk render failed", "chunk", pos, "phase", b.phase, "err", fmt.Sprint(err))
	b.enter(render.PhaseFailed)
	*ok = false
}

func (b *base) enter(p render.Phase) {
	b.phase = p
	b.log.Debug("Render phase", "phase", p)
}

// finish closes a render whose columns are all written.
func (b *base) finish(painted bool) bool {
	b.enter(render.PhaseComplete)
	return painted
}

// badColumn recovers a column panic and paints the marker.
func (b *base) badColumn(c chunk.Chunk, x, z int, sinks ...render.PixelSink) {
	err := recover()
	if err == nil {
		return
	}
	b.markBad(c, x, z, err, sinks...)
}

func (b *base) markBad(c chunk.Chunk, x, z int, cause any, sinks ...render.PixelSink) {
	b.bad.Report(b.log, b.mt, c.Pos(), x, z, cause)
	paint(x, z, BadBlockColor, sinks...)
}

func paint(x, z int, c color.RGBA, sinks ...render.PixelSink) {
	for _, s := range sinks {
		if s != nil {
			s.SetRGBA(x, z, c)
		}
	}
}

// bevel applies the slope shading to a composited colour.
func bevel(c color.RGBA, slope float32) color.RGBA {
	if slope == 1 {
		return c
	}
	return rgb.Adjust(c, slope)
}
