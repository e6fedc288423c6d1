package renderers

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/rgb"
	"github.com/maxsupermanhd/WebChunkCarto/render/strata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stone = &chunk.Block{Name: "minecraft:stone", Color: color.RGBA{0x7f, 0x7f, 0x7f, 0xff}, Alpha: 1, LightOpacity: 15}
	water = &chunk.Block{Name: "minecraft:water", Color: color.RGBA{0x3f, 0x76, 0xe4, 0xff}, Alpha: 0.3, LightOpacity: 1, Flags: chunk.Fluid | chunk.Transparency}
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// phaseRecorder keeps the phase attribute of every record it sees.
type phaseRecorder struct {
	lock   sync.Mutex
	phases []string
}

func (h *phaseRecorder) Enabled(context.Context, slog.Level) bool { return true }
func (h *phaseRecorder) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *phaseRecorder) WithGroup(string) slog.Handler             { return h }

func (h *phaseRecorder) Handle(_ context.Context, r slog.Record) error {
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "phase" {
			h.lock.Lock()
			h.phases = append(h.phases, a.Value.String())
			h.lock.Unlock()
		}
		return true
	})
	return nil
}

func newTile() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 16, 16))
}

func filledTile(c color.RGBA) *image.RGBA {
	img := newTile()
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func eachPixel(t *testing.T, img *image.RGBA, fn func(x, z int, c color.RGBA)) {
	t.Helper()
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			fn(x, z, img.RGBAAt(x, z))
		}
	}
}

type spyTile struct {
	*image.RGBA
	calls int
}

func (s *spyTile) RGBAAt(x, y int) color.RGBA {
	s.calls++
	return s.RGBA.RGBAAt(x, y)
}

type panicChunk struct {
	*chunk.MemoryChunk
}

func (panicChunk) Block(x, y, z int) *chunk.Block {
	panic("corrupt section")
}

type brokenConfig struct{}

func (brokenConfig) Options() render.Options { panic("config gone") }
func (brokenConfig) LastModified() int64     { return 1 }

func TestSurfaceFlat(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 64, stone)
	src := render.NewVersionedConfig(render.DefaultOptions())
	r := NewSurface(Overworld, m, src, quiet, nil)

	day, night := newTile(), newTile()
	require.True(t, r.RenderChunk(c, render.Targets{Day: day, Night: night}))
	assert.Equal(t, render.PhaseComplete, r.Phase())
	assert.Equal(t, src.LastModified(), r.Synced())

	want := rgb.Adjust(stone.Color, strata.DaylightFactor(0, 0, src.Options(), render.OverworldLighting))
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.Equal(t, want, c, "column %d %d", x, z)
		assert.Less(t, night.RGBAAt(x, z).R, c.R)
	})
}

func TestSurfaceVoid(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	src := render.NewVersionedConfig(render.DefaultOptions())
	r := NewSurface(Overworld, m, src, quiet, nil)

	day := newTile()
	assert.False(t, r.RenderChunk(c, render.Targets{Day: day}))
	void := src.Options().Void()
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.Equal(t, void, c)
	})
}

func TestSurfaceResyncsOptions(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 50, stone)
	c.FillAll(51, 60, water)
	src := render.NewVersionedConfig(render.DefaultOptions())
	r := NewSurface(Overworld, m, src, quiet, nil)

	plain := newTile()
	require.True(t, r.RenderChunk(c, render.Targets{Day: plain}))

	src.Modify(func(o *render.Options) { o.Bathymetry = true })
	deep := newTile()
	require.True(t, r.RenderChunk(c, render.Targets{Day: deep}))
	assert.Equal(t, src.LastModified(), r.Synced())
	assert.NotEqual(t, plain.RGBAAt(0, 0), deep.RGBAAt(0, 0))
}

func TestBadColumnsAreMarked(t *testing.T) {
	m := chunk.NewMemory(256)
	mc := m.Load(chunk.Pos{})
	mc.FillAll(0, 64, stone)
	bad := &BadBlockLog{}
	r := NewSurface(Overworld, m, render.NewVersionedConfig(render.DefaultOptions()), quiet, bad)

	day := newTile()
	assert.NotPanics(t, func() {
		assert.False(t, r.RenderChunk(panicChunk{mc}, render.Targets{Day: day}))
	})
	assert.Equal(t, render.PhaseComplete, r.Phase())
	assert.Equal(t, uint64(256), bad.Count())
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.Equal(t, BadBlockColor, c)
	})
}

func TestChunkFailure(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	r := NewSurface(Overworld, m, brokenConfig{}, quiet, nil)
	assert.NotPanics(t, func() {
		assert.False(t, r.RenderChunk(c, render.Targets{Day: newTile()}))
	})
	assert.Equal(t, render.PhaseFailed, r.Phase())

	assert.False(t, r.RenderChunk(nil, render.Targets{Day: newTile()}))
	assert.Equal(t, render.PhaseFailed, r.Phase())
}

func TestBadBlockRateLimit(t *testing.T) {
	b := &BadBlockLog{}
	mt := primitives.NewMapType("overworld", primitives.ModeSurface, 0)
	logged := 0
	for i := 1; i <= 4092; i++ {
		if b.Report(quiet, mt, chunk.Pos{}, 0, 0, "boom") {
			logged++
			assert.True(t, i == 1 || i%2046 == 0, "logged at %d", i)
		}
	}
	assert.Equal(t, 3, logged)
}

// caveWorld has a dark pocket at y 49..50 under a surface at top.
func caveWorld(top int) (*chunk.Memory, *chunk.MemoryChunk) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, top, stone)
	c.FillAll(49, 50, chunk.AirBlock)
	return m, c
}

func TestCaveOverlayGap(t *testing.T) {
	m, c := caveWorld(68)
	src := render.NewVersionedConfig(render.DefaultOptions())
	r := NewCave(Overworld, 3, m, src, quiet, nil)

	day := filledTile(color.RGBA{1, 2, 3, 255})
	surface := filledTile(rgb.White)
	assert.False(t, r.RenderChunk(c, render.Targets{Day: day, Surface: surface}))
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.Equal(t, rgb.Black, c, "gap of 20 is too deep for the overlay")
	})
}

func TestCaveOverlayDimmed(t *testing.T) {
	m, c := caveWorld(60)
	src := render.NewVersionedConfig(render.DefaultOptions())
	r := NewCave(Overworld, 3, m, src, quiet, nil)

	day := newTile()
	surface := filledTile(rgb.White)
	assert.True(t, r.RenderChunk(c, render.Targets{Day: day, Surface: surface}))
	want := rgb.Adjust(rgb.White, src.Options().Tweak.CaveDim)
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.Equal(t, want, c)
	})
}

func TestCaveOverlayDisabled(t *testing.T) {
	m, c := caveWorld(60)
	src := render.NewVersionedConfig(render.DefaultOptions())
	src.Modify(func(o *render.Options) { o.SurfaceAboveCaves = false })
	r := NewCave(Overworld, 3, m, src, quiet, nil)

	day := newTile()
	surface := &spyTile{RGBA: filledTile(rgb.White)}
	r.RenderChunk(c, render.Targets{Day: day, Surface: surface})
	assert.Zero(t, surface.calls)
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.Equal(t, rgb.Black, c)
	})

	// the nether policy forbids the overlay whatever the options say
	nether := NewCave(Nether, 3, m, render.NewVersionedConfig(render.DefaultOptions()), quiet, nil)
	nether.RenderChunk(c, render.Targets{Day: newTile(), Surface: surface})
	assert.Zero(t, surface.calls)
}

func TestCaveLitFloor(t *testing.T) {
	m, c := caveWorld(68)
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			c.SetBlockLight(x, 49, z, 12)
		}
	}
	r := NewCave(Overworld, 3, m, render.NewVersionedConfig(render.DefaultOptions()), quiet, nil)
	day := newTile()
	assert.True(t, r.RenderChunk(c, render.Targets{Day: day}))
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.NotEqual(t, rgb.Black, c)
		assert.NotEqual(t, BadBlockColor, c)
	})
}

func TestTopoContourBand(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 65, stone)
	src := render.NewVersionedConfig(render.DefaultOptions())
	r := NewTopo(Overworld, m, src, quiet, nil)

	day := newTile()
	require.True(t, r.RenderChunk(c, render.Targets{Day: day}))
	want := src.Options().TopoPalette().Land[2]
	eachPixel(t, day, func(x, z int, c color.RGBA) {
		assert.Equal(t, want, c)
	})
}

func TestTopoShoreline(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 40, stone)
	c.FillAll(41, 62, water)
	c.Fill(5, 5, 41, 70, stone)
	src := render.NewVersionedConfig(render.DefaultOptions())
	r := NewTopo(Overworld, m, src, quiet, nil)
	pal := src.Options().TopoPalette()

	day := newTile()
	require.True(t, r.RenderChunk(c, render.Targets{Day: day}))
	assert.Equal(t, pal.LandContour, day.RGBAAt(5, 4), "water next to land")
	assert.Equal(t, pal.LandContour, day.RGBAAt(5, 5), "raised land is a contour")
	assert.Equal(t, pal.Water[1], day.RGBAAt(10, 10))

	shore, ok := c.ColumnCache().Shore(r.MapType(), src.LastModified()).Get(5, 4)
	require.True(t, ok)
	assert.True(t, shore)
}

func TestBandIndex(t *testing.T) {
	assert.Equal(t, 2, BandIndex(64, 32, 8))
	assert.Equal(t, 7, BandIndex(400, 32, 8))
	assert.Equal(t, 0, BandIndex(-5, 32, 8))
	assert.Equal(t, 0, BandIndex(64, 0, 8))
}

func TestConstructRenderers(t *testing.T) {
	m := chunk.NewMemory(256)
	src := render.NewVersionedConfig(render.DefaultOptions())
	rends := ConstructRenderers(nil, Overworld, m, src, quiet)
	require.Len(t, rends, 1+Overworld.Slices+1)
	assert.Equal(t, primitives.ModeSurface, rends[0].MapType().Mode)
	assert.Equal(t, primitives.ModeUnderground, rends[1].MapType().Mode)
	assert.Equal(t, primitives.ModeTopo, rends[len(rends)-1].MapType().Mode)

	seen := map[string]bool{}
	for _, r := range rends {
		assert.False(t, seen[r.Name()], "duplicate renderer %s", r.Name())
		seen[r.Name()] = true
	}
}

func TestDimensionByName(t *testing.T) {
	for name, want := range map[string]string{
		"minecraft:overworld":  "overworld",
		"nether":               "the_nether",
		"minecraft:the_nether": "the_nether",
		"end":                  "the_end",
	} {
		d, ok := DimensionByName(name)
		require.True(t, ok, name)
		assert.Equal(t, want, d.Name)
	}
	_, ok := DimensionByName("aether")
	assert.False(t, ok)
}

func TestRenderPhases(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 64, stone)
	src := render.NewVersionedConfig(render.DefaultOptions())
	want := []string{"idle", "options synced", "slopes populated", "rendered", "complete"}

	for _, mk := range []func(l *slog.Logger) render.ChunkRenderer{
		func(l *slog.Logger) render.ChunkRenderer { return NewSurface(Overworld, m, src, l, nil) },
		func(l *slog.Logger) render.ChunkRenderer { return NewCave(Overworld, 3, m, src, l, nil) },
		func(l *slog.Logger) render.ChunkRenderer { return NewTopo(Overworld, m, src, l, nil) },
	} {
		rec := &phaseRecorder{}
		r := mk(slog.New(rec))
		r.RenderChunk(c, render.Targets{Day: newTile(), Night: newTile()})
		assert.Equal(t, want, rec.phases, r.MapType().String())
	}
}
