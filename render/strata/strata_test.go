package strata

import (
	"image/color"
	"testing"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/rgb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stone = &chunk.Block{Name: "minecraft:stone", Color: color.RGBA{0x7f, 0x7f, 0x7f, 0xff}, Alpha: 1, LightOpacity: 15}
	glass = &chunk.Block{Name: "minecraft:glass", Color: color.RGBA{0xc0, 0xe0, 0xe0, 0xff}, Alpha: 0.5, Flags: chunk.Transparency}
	water = &chunk.Block{Name: "minecraft:water", Color: color.RGBA{0x3f, 0x76, 0xe4, 0xff}, Alpha: 0.3, LightOpacity: 1, Flags: chunk.Fluid | chunk.Transparency}
	lava  = &chunk.Block{Name: "minecraft:lava", Color: color.RGBA{0xcf, 0x5a, 0x10, 0xff}, Alpha: 1, Flags: chunk.Fluid | chunk.Lava}
)

func newStrata(policy render.Lighting) *Strata {
	s := &Strata{}
	s.Configure(render.DefaultOptions(), policy)
	return s
}

func TestOpaqueTopDayColour(t *testing.T) {
	opts := render.DefaultOptions()
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 64, stone)
	s := newStrata(render.OverworldLighting)
	for light := 0; light <= 15; light++ {
		c.SetBlockLight(3, 65, 3, light)
		s.BuildSurface(c, 3, 3, 65, 64)
		require.Equal(t, 1, s.Len())
		r, err := s.Composite()
		require.NoError(t, err)
		want := rgb.Adjust(stone.Color, DaylightFactor(light, 0, opts, render.OverworldLighting))
		assert.Equal(t, want, r.Day, "light %d", light)
	}
}

func TestEmptyIsNoData(t *testing.T) {
	s := newStrata(render.OverworldLighting)
	_, err := s.Composite()
	assert.ErrorIs(t, err, ErrNoData)

	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	s.BuildSurface(c, 0, 0, 0, 0)
	_, err = s.Composite()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBadBlock(t *testing.T) {
	s := newStrata(render.OverworldLighting)
	s.n = 1
	_, err := s.Composite()
	assert.ErrorIs(t, err, ErrBadBlock)
}

func TestTranslucentRoof(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 60, stone)
	c.Fill(1, 1, 70, 70, glass)
	s := newStrata(render.OverworldLighting)
	s.BuildSurface(c, 1, 1, 71, 60)
	require.Equal(t, 2, s.Len())
	assert.Same(t, glass, s.At(0).Block)
	assert.Same(t, stone, s.At(1).Block)

	r, err := s.Composite()
	require.NoError(t, err)
	assert.Equal(t, rgb.Blend(s.At(1).Day, s.At(0).Day, glass.Alpha), r.Day)
}

func TestTranslucentRoofWithoutTransparency(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 60, stone)
	c.Fill(1, 1, 70, 70, glass)
	s := &Strata{}
	opts := render.DefaultOptions()
	opts.Transparency = false
	s.Configure(opts, render.OverworldLighting)
	s.BuildSurface(c, 1, 1, 71, 60)
	require.Equal(t, 2, s.Len())
	assert.Same(t, glass, s.At(0).Block)
	assert.Same(t, stone, s.At(1).Block)
}

func TestShallowSeaWithoutTransparency(t *testing.T) {
	sand := &chunk.Block{Name: "minecraft:sand", Color: color.RGBA{0xdb, 0xd3, 0xa0, 0xff}, Alpha: 1, LightOpacity: 15}
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 55, sand)
	c.FillAll(56, 62, water)
	s := &Strata{}
	opts := render.DefaultOptions()
	opts.Bathymetry = true
	opts.Transparency = false
	s.Configure(opts, render.OverworldLighting)

	s.BuildSurface(c, 4, 4, 63, 55)
	require.Equal(t, 2, s.Len())
	assert.Same(t, water, s.At(0).Block)
	assert.Equal(t, 62, s.At(0).Y)
	assert.Same(t, sand, s.At(1).Block)
	assert.Equal(t, 55, s.At(1).Y)

	r, err := s.Composite()
	require.NoError(t, err)
	assert.NotEqual(t, s.At(0).Day, r.Day, "sea floor must show through")
	assert.Equal(t, rgb.Blend(s.At(1).Day, s.At(0).Day, water.Alpha), r.Day)
}

func TestDeepWaterCollapses(t *testing.T) {
	opts := render.DefaultOptions()
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 50, stone)
	c.FillAll(51, 60, water)
	s := newStrata(render.OverworldLighting)
	s.BuildSurface(c, 2, 2, 61, 50)
	require.Equal(t, 2, s.Len())
	floor := s.At(1)
	assert.Same(t, stone, floor.Block)
	assert.Equal(t, 10, floor.Attenuation)

	day := DaylightFactor(0, 10, opts, render.OverworldLighting)
	night := NightFactor(0, 10, opts, render.OverworldLighting)
	want := rgb.Blend(rgb.Adjust(stone.Color, max(day, night)), water.Color, opts.Tweak.WaterColorBlend)
	assert.Equal(t, want, floor.Day)
}

func TestNoSkyNightIsDay(t *testing.T) {
	m := chunk.NewMemory(128)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 40, stone)
	for _, policy := range []render.Lighting{render.NetherLighting, render.EndLighting} {
		s := newStrata(policy)
		s.BuildSurface(c, 0, 0, 41, 40)
		r, err := s.Composite()
		require.NoError(t, err)
		assert.Equal(t, r.Day, r.Night)
	}
}

func TestNightDarkerThanDay(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 64, stone)
	s := newStrata(render.OverworldLighting)
	s.BuildSurface(c, 0, 0, 65, 64)
	r, err := s.Composite()
	require.NoError(t, err)
	assert.Less(t, r.Night.R, r.Day.R)
	assert.Equal(t, r.Night, r.Cave, "cave lighting uses the night colour")
}

func TestCaveLitFloor(t *testing.T) {
	m := chunk.NewMemory(256)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 100, stone)
	c.Fill(4, 4, 50, 52, chunk.AirBlock)
	c.SetBlockLight(4, 50, 4, 7)
	s := newStrata(render.OverworldLighting)

	s.BuildCave(c, 4, 4, 63, 48)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, 49, s.At(0).Y)
	assert.Equal(t, 7, s.At(0).Light)

	c.SetBlockLight(4, 50, 4, 0)
	s.BuildCave(c, 4, 4, 63, 48)
	assert.True(t, s.Empty(), "unlit floors are not stacked")
}

func TestCaveLightFloor(t *testing.T) {
	m := chunk.NewMemory(128)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 100, stone)
	c.Fill(4, 4, 50, 52, chunk.AirBlock)
	s := newStrata(render.EndLighting)
	s.BuildCave(c, 4, 4, 63, 48)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, render.EndLighting.LightFloor, s.At(0).Light)
}

func TestCaveLavaFallback(t *testing.T) {
	m := chunk.NewMemory(128)
	c := m.Load(chunk.Pos{})
	c.FillAll(0, 100, stone)
	c.Fill(6, 6, 10, 10, lava)

	s := newStrata(render.NetherLighting)
	s.BuildCave(c, 6, 6, 63, 48)
	require.Equal(t, 1, s.Len())
	assert.Same(t, lava, s.At(0).Block)
	assert.Equal(t, 10, s.At(0).Y)

	policy := render.NetherLighting
	policy.LavaFallback = false
	s = newStrata(policy)
	s.BuildCave(c, 6, 6, 63, 48)
	assert.True(t, s.Empty())
}

func TestCapacity(t *testing.T) {
	s := newStrata(render.OverworldLighting)
	for i := 0; i < Capacity; i++ {
		require.True(t, s.Push(glass, 0, 100-i*2, 0, 0, chunk.AirBlock))
	}
	assert.False(t, s.Push(glass, 0, 10, 0, 0, chunk.AirBlock))
	assert.Equal(t, Capacity, s.Len())
	s.Reset()
	assert.True(t, s.Empty())
}
