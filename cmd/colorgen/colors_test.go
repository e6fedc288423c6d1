package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/Tnze/go-mc/level/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBlock struct {
	Facing      string
	Waterlogged bool
	Age         int
}

func (testBlock) ID() string { return "minecraft:test" }

func TestStateMatches(t *testing.T) {
	b := testBlock{Facing: "north", Waterlogged: true, Age: 3}
	assert.True(t, stateMatches(b, ""))
	assert.True(t, stateMatches(b, "facing=north"))
	assert.True(t, stateMatches(b, "facing=south|north,age=3"))
	assert.True(t, stateMatches(b, "waterlogged=true,unknown_prop=1"))
	assert.False(t, stateMatches(b, "facing=south"))
	assert.False(t, stateMatches(b, "age=2|4"))
	assert.False(t, stateMatches(b, "broken"))
}

func TestWhenDescriptions(t *testing.T) {
	assert.Equal(t, []string{"up=true"}, whenDescriptions(map[string]any{"up": "true"}))
	ored := map[string]any{"OR": []any{
		map[string]any{"north": "side"},
		map[string]any{"south": "up"},
	}}
	assert.Equal(t, []string{"north=side", "south=up"}, whenDescriptions(ored))
}

func TestAverageColor(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xff, A: 0xff})
	img.SetNRGBA(1, 0, color.NRGBA{B: 0xff, A: 0xff})
	c := averageColor(img)
	assert.InDelta(t, 0x7fff, int(c.R), 2)
	assert.InDelta(t, 0x7fff, int(c.B), 2)
	assert.Zero(t, c.G)
	assert.InDelta(t, 0x7fff, int(c.A), 2, "half of the texture is transparent")

	assert.Equal(t, color.RGBA64{}, averageColor(image.NewNRGBA(image.Rect(0, 0, 4, 4))))
}

func buildJar(t *testing.T, files map[string][]byte) jar {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	w := zip.NewWriter(buf)
	for name, data := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return openJar(r)
}

func mustJSON(t *testing.T, v any) []byte {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func solidPNG(t *testing.T, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	draw.Draw(img, img.Rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestStateColors(t *testing.T) {
	j := buildJar(t, map[string][]byte{
		"assets/minecraft/blockstates/stone.json": mustJSON(t, map[string]any{
			"variants": map[string]any{"": map[string]any{"model": "minecraft:block/stone"}},
		}),
		"assets/minecraft/models/block/stone.json": mustJSON(t, map[string]any{
			"parent": "minecraft:block/cube_all",
		}),
		"assets/minecraft/models/block/cube_all.json": mustJSON(t, map[string]any{
			"textures": map[string]string{"all": "minecraft:block/stone", "particle": "#all"},
		}),
		"assets/minecraft/textures/block/stone.png": solidPNG(t, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}),
		"assets/minecraft/blockstates/no_such_block_here.json": mustJSON(t, map[string]any{
			"variants": map[string]any{"": map[string]any{"model": "minecraft:block/missing"}},
		}),
	})
	colors, matched := stateColors(j)
	require.Len(t, colors, len(block.StateList))
	assert.Equal(t, 1, matched)
	c := colors[block.ToStateID[block.Stone{}]]
	assert.Equal(t, uint16(0x8080), c.R)
	assert.Equal(t, uint16(0xffff), c.A)

	img := preview(colors)
	assert.GreaterOrEqual(t, img.Rect.Dx()*img.Rect.Dy(), len(colors))
}
