package column

import (
	"image/color"
	"testing"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stone = &chunk.Block{Name: "minecraft:stone", Color: color.RGBA{0x7f, 0x7f, 0x7f, 0xff}, Alpha: 1}
	water = &chunk.Block{Name: "minecraft:water", Color: color.RGBA{0x3f, 0x76, 0xe4, 0xff}, Alpha: 0.3, Flags: chunk.Fluid | chunk.Transparency}
	lava  = &chunk.Block{Name: "minecraft:lava", Color: color.RGBA{0xcf, 0x5a, 0x10, 0xff}, Alpha: 1, Flags: chunk.Fluid | chunk.Lava}
	grass = &chunk.Block{Name: "minecraft:grass", Color: color.RGBA{0x50, 0x90, 0x30, 0xff}, Alpha: 1, Flags: chunk.NoShadow | chunk.NoTopo}
)

var (
	surfaceMT = primitives.NewMapType("overworld", primitives.ModeSurface, 0)
	topoMT    = primitives.NewMapType("overworld", primitives.ModeTopo, 0)
)

func newEnv(h int) *Env {
	return &Env{Opts: render.DefaultOptions(), Stamp: 1, WorldHeight: h}
}

func flatWorld(t *testing.T, h, top int, radius int) *chunk.Memory {
	t.Helper()
	m := chunk.NewMemory(h)
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			m.Load(chunk.Pos{X: x, Z: z}).FillAll(0, top, stone)
		}
	}
	return m
}

type panicChunk struct {
	*chunk.MemoryChunk
}

func (panicChunk) Block(x, y, z int) *chunk.Block {
	panic("corrupt section")
}

func TestSliceBounds(t *testing.T) {
	for _, tc := range []struct {
		slice, height, min, max int
	}{
		{0, 256, 0, 15},
		{3, 256, 48, 63},
		{15, 256, 240, 255},
		{1, 16, 16, 18},
		{-1, 256, 0, 2},
	} {
		minY, maxY := SliceBounds(tc.slice, tc.height)
		assert.Equal(t, tc.min, minY, "slice %d", tc.slice)
		assert.Equal(t, tc.max, maxY, "slice %d", tc.slice)
	}
}

func TestSurfaceHeightFlat(t *testing.T) {
	m := flatWorld(t, 256, 64, 0)
	c := m.Chunk(chunk.Pos{})
	r := &Surface{Env: newEnv(256)}
	for x := 0; x < 16; x++ {
		assert.Equal(t, 64, r.Height(c, x, 7, surfaceMT))
	}
	_, ok := r.FluidHeight(c, 3, 3, surfaceMT)
	assert.False(t, ok)
}

func TestSurfaceHeightBathymetry(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 60, stone)
	c.FillAll(61, 64, water)

	env := newEnv(256)
	r := &Surface{Env: env}
	assert.Equal(t, 64, r.Height(c, 1, 1, surfaceMT))
	_, ok := r.FluidHeight(c, 1, 1, surfaceMT)
	assert.False(t, ok, "fluid is only recorded when the walk passes through it")

	env.Opts.Bathymetry = true
	env.Stamp++
	assert.Equal(t, 60, r.Height(c, 1, 1, surfaceMT))
	fy, ok := r.FluidHeight(c, 1, 1, surfaceMT)
	require.True(t, ok)
	assert.Equal(t, 64, fy)
}

func TestSurfaceHeightNoShadow(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 63, stone)
	c.FillAll(64, 64, grass)
	r := &Surface{Env: newEnv(256)}
	assert.Equal(t, 63, r.Height(c, 0, 0, surfaceMT))
}

func TestSurfaceHeightRecoversPanics(t *testing.T) {
	m := flatWorld(t, 256, 64, 0)
	c := panicChunk{m.Load(chunk.Pos{})}
	r := &Surface{Env: newEnv(256)}
	assert.NotPanics(t, func() {
		assert.Equal(t, 65, r.Height(c, 0, 0, surfaceMT))
	})
}

func TestUndergroundHeight(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 100, stone)
	c.Fill(4, 4, 50, 52, chunk.AirBlock)
	r := &Underground{Env: newEnv(256)}
	mt := primitives.NewMapType("overworld", primitives.ModeUnderground, 3)
	assert.Equal(t, 49, r.Height(c, 4, 4, mt))
	assert.Equal(t, 49, r.Resolve(c, 4, 4, mt))
}

func TestUndergroundSkipsSkyLit(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 55, stone)
	r := &Underground{Env: newEnv(256)}
	mt := primitives.NewMapType("overworld", primitives.ModeUnderground, 3)
	// open to the sky, so never a cave floor
	assert.Less(t, r.Height(c, 2, 2, mt), 48)
}

func TestLavaFloorHeight(t *testing.T) {
	m := chunk.NewMemory(128)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 31, lava)
	c.FillAll(120, 127, stone)
	r := &LavaFloor{Env: newEnv(128)}
	assert.Equal(t, 31, r.Height(c, 0, 0, primitives.NewMapType("nether", primitives.ModeUnderground, 2)))
	assert.Equal(t, 127, r.Height(c, 0, 0, primitives.NewMapType("nether", primitives.ModeUnderground, 7)))
}

func TestTopoHeightSnapsToContour(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 65, stone)
	c.Fill(1, 1, 66, 66, grass)
	c.Fill(2, 2, 0, 62, water)
	r := &Topo{Env: newEnv(256)}

	assert.Equal(t, 32, r.Interval(false))
	assert.Equal(t, 64, r.Height(c, 0, 0, topoMT))
	assert.Equal(t, 64, r.Height(c, 1, 1, topoMT), "no-topo blocks are skipped")
	assert.False(t, r.IsWater(c, 0, 0, topoMT))

	assert.Equal(t, 64, r.Height(c, 2, 2, topoMT))
	assert.False(t, r.IsWater(c, 2, 2, topoMT), "stone above the water column")
}

func TestTopoWaterColumn(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 40, stone)
	c.FillAll(41, 62, water)
	r := &Topo{Env: newEnv(256)}
	assert.Equal(t, 32, r.Height(c, 5, 5, topoMT))
	assert.True(t, r.IsWater(c, 5, 5, topoMT))
	assert.Equal(t, 32, r.Resolve(c, 5, 5, topoMT))
}

func TestSlopeFlat(t *testing.T) {
	m := flatWorld(t, 256, 64, 1)
	env := newEnv(256)
	r := &Surface{Env: env}
	e := NewSurfaceEstimator(env, r, m)
	c := m.Chunk(chunk.Pos{})
	g := e.Populate(c, surfaceMT)
	require.True(t, g.Complete())
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			v, ok := g.Get(x, z)
			require.True(t, ok)
			assert.Equal(t, float32(1), v, "column %d %d", x, z)
		}
	}
}

func TestSlopeUnloadedNeighbours(t *testing.T) {
	m := flatWorld(t, 256, 64, 0)
	env := newEnv(256)
	e := NewSurfaceEstimator(env, &Surface{Env: env}, m)
	assert.Equal(t, float32(1), e.Slope(m.Chunk(chunk.Pos{}), 0, 0, surfaceMT))
}

func TestSlopeStep(t *testing.T) {
	m := flatWorld(t, 256, 60, 0)
	c := m.Load(chunk.Pos{})
	c.Fill(5, 5, 61, 70, stone)
	env := newEnv(256)
	e := NewSurfaceEstimator(env, &Surface{Env: env}, m)

	// 70/60 lit side, exaggerated then clamped to the maximum
	assert.Equal(t, float32(1.1), e.Slope(c, 5, 5, surfaceMT))

	// shadowed side: (1 + 1 + 60/70) / 3 * 0.65
	want := float32((1+1+60.0/70.0)/3) * 0.65
	assert.InDelta(t, want, e.Slope(c, 6, 5, surfaceMT), 1e-4)
}

func TestSlopeSingleLowNeighbour(t *testing.T) {
	m := flatWorld(t, 256, 70, 1)
	c := m.Load(chunk.Pos{})
	c.Fill(5, 4, 61, 70, chunk.AirBlock)
	env := newEnv(256)
	env.Opts.Shading.SlopeMax = 2
	e := NewSurfaceEstimator(env, &Surface{Env: env}, m)

	// only the north neighbour sits lower
	want := float32((70.0/60.0+1+1)/3) * env.Opts.Shading.PrimaryUpslope
	assert.InDelta(t, want, e.Slope(c, 5, 5, surfaceMT), 1e-4)

	want = float32(60.0/70.0) * env.Opts.Shading.PrimaryDownslope
	assert.InDelta(t, want, e.Slope(c, 5, 4, surfaceMT), 1e-4)

	env.Opts.Shading.SlopeMax = render.DefaultOptions().Shading.SlopeMax
	env.Stamp++
	assert.Equal(t, env.Opts.Shading.SlopeMax, e.Slope(c, 5, 5, surfaceMT))
}

func TestSlopeClampAndNaN(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.Fill(3, 3, 0, 40, stone)
	env := newEnv(256)
	e := NewSurfaceEstimator(env, &Surface{Env: env}, m)
	// neighbours are bare at height 0
	assert.Equal(t, env.Opts.Shading.SlopeMax, e.Slope(c, 3, 3, surfaceMT))
	assert.Equal(t, float32(1), e.Slope(c, 8, 8, surfaceMT))
}

func TestSlopeCacheIdempotent(t *testing.T) {
	m := flatWorld(t, 256, 64, 0)
	env := newEnv(256)
	e := NewSurfaceEstimator(env, &Surface{Env: env}, m)
	c := m.Chunk(chunk.Pos{})

	g1 := e.Populate(c, surfaceMT)
	before := g1.Values()
	g2 := e.Populate(c, surfaceMT)
	assert.Same(t, g1, g2)
	assert.Equal(t, before, g2.Values())

	env.Stamp++
	g3 := e.Populate(c, surfaceMT)
	assert.NotSame(t, g1, g3)
	assert.Equal(t, before, g3.Values())
}

func TestTopoEstimatorCardinal(t *testing.T) {
	m := flatWorld(t, 256, 40, 0)
	c := m.Load(chunk.Pos{})
	c.Fill(8, 8, 41, 70, stone)
	env := newEnv(256)
	e := NewTopoEstimator(env, &Topo{Env: env}, m)
	// 64/32 on every side, no exaggeration
	assert.Equal(t, env.Opts.Shading.SlopeMax, e.Slope(c, 8, 8, topoMT))
	// east neighbour sees the raised column to its west
	assert.InDelta(t, float32(1+1+1+0.5)/4, e.Slope(c, 9, 8, topoMT), 1e-4)
}
