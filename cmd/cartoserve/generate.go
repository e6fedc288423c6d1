/*
	WebChunk, web server for block game maps
	Copyright (C) 2022 Maxim Zhuchkov

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.

	Contact me via mail: q3.max.2011@yandex.ru or Discord: MaX#6717
*/

package main

import (
	"image/color"

	"github.com/aquilax/go-perlin"
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
)

const (
	seaLevel   = 62
	snowLevel  = 100
	caveFloor  = 30
	caveHeight = 4
)

var (
	genStone = &chunk.Block{Name: "minecraft:stone", Color: color.RGBA{0x7d, 0x7d, 0x7d, 0xff}, Alpha: 1, LightOpacity: 15}
	genDirt  = &chunk.Block{Name: "minecraft:dirt", Color: color.RGBA{0x86, 0x60, 0x43, 0xff}, Alpha: 1, LightOpacity: 15}
	genGrass = &chunk.Block{Name: "minecraft:grass_block", Color: color.RGBA{0x5b, 0x8c, 0x3a, 0xff}, Alpha: 1, LightOpacity: 15}
	genSand  = &chunk.Block{Name: "minecraft:sand", Color: color.RGBA{0xdb, 0xd3, 0xa0, 0xff}, Alpha: 1, LightOpacity: 15}
	genSnow  = &chunk.Block{Name: "minecraft:snow", Color: color.RGBA{0xf9, 0xfe, 0xfe, 0xff}, Alpha: 1, Flags: chunk.NoShadow}
	genWater = &chunk.Block{Name: "minecraft:water", Color: color.RGBA{0x3f, 0x76, 0xe4, 0xff}, Alpha: 0.6, LightOpacity: 1, Flags: chunk.Fluid}
	genLava  = &chunk.Block{Name: "minecraft:lava", Color: color.RGBA{0xcf, 0x5b, 0x14, 0xff}, Alpha: 1, LightOpacity: 15, Flags: chunk.Fluid | chunk.Lava}
	genPlant = &chunk.Block{Name: "minecraft:short_grass", Color: color.RGBA{0x6d, 0x9a, 0x4c, 0xff}, Flags: chunk.Ignore | chunk.OpenToSky}
)

type generator struct {
	height *perlin.Perlin
	caves  *perlin.Perlin
}

func newGenerator(seed int64) *generator {
	return &generator{
		height: perlin.NewPerlin(2, 2, 3, seed),
		caves:  perlin.NewPerlin(2, 2, 2, seed+42),
	}
}

// surfaceAt is the terrain height of world column wx:wz.
func (g *generator) surfaceAt(wx, wz int) int {
	n := (g.height.Noise2D(float64(wx)/96, float64(wz)/96) + 1) / 2
	return 40 + int(n*80)
}

func (g *generator) caveAt(wx, wz int) bool {
	return g.caves.Noise2D(float64(wx)/24, float64(wz)/24) > 0.25
}

// fill generates one chunk into c. worldHeight bounds the column.
func (g *generator) fill(c *chunk.MemoryChunk, worldHeight int) {
	pos := c.Pos()
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			wx := pos.X*chunk.Size + x
			wz := pos.Z*chunk.Size + z
			h := min(g.surfaceAt(wx, wz), worldHeight-2)
			c.Fill(x, z, 0, h-4, genStone)
			switch {
			case h < seaLevel+2:
				c.Fill(x, z, h-3, h, genSand)
				if h < seaLevel {
					c.Fill(x, z, h+1, seaLevel, genWater)
				}
			case h >= snowLevel:
				c.Fill(x, z, h-3, h, genStone)
				c.SetBlock(x, h+1, z, genSnow)
			default:
				c.Fill(x, z, h-3, h-1, genDirt)
				c.SetBlock(x, h, z, genGrass)
				if (wx*31+wz*17)%7 == 0 {
					c.SetBlock(x, h+1, z, genPlant)
				}
			}
			if g.caveAt(wx, wz) && h > caveFloor+caveHeight+4 {
				c.Fill(x, z, caveFloor+1, caveFloor+caveHeight, chunk.AirBlock)
				for y := caveFloor + 1; y <= caveFloor+caveHeight; y++ {
					c.SetBlockLight(x, y, z, 9)
				}
				if (wx+wz)%11 == 0 {
					c.SetBlock(x, caveFloor, z, genLava)
				}
			}
		}
	}
}

// generateWorld fills every chunk within radius of the origin.
func generateWorld(m *chunk.Memory, radius int, seed int64) int {
	g := newGenerator(seed)
	n := 0
	for cz := -radius; cz < radius; cz++ {
		for cx := -radius; cx < radius; cx++ {
			g.fill(m.Load(chunk.Pos{X: cx, Z: cz}), m.WorldHeight())
			n++
		}
	}
	return n
}
