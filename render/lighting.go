package render

import "image/color"

// Lighting holds the per-dimension lighting constants.
type Lighting struct {
	HasSky bool
	// Ambient tints night and cave colours.
	Ambient color.RGBA
	// LightFloor is the minimum light level returned for cave queries.
	LightFloor int
	// SurfaceAboveCaves permits the dimmed surface overlay in caves.
	SurfaceAboveCaves bool
	// LavaFallback keeps a lava block found in an otherwise unlit column
	// as the column colour.
	LavaFallback bool
	// LightSources get an extra brightness boost.
	LightSources map[string]bool
}

var DefaultLightSources = map[string]bool{
	"minecraft:glowstone":      true,
	"minecraft:sea_lantern":    true,
	"minecraft:jack_o_lantern": true,
	"minecraft:shroomlight":    true,
	"minecraft:lantern":        true,
	"minecraft:soul_lantern":   true,
	"minecraft:redstone_lamp":  true,
	"minecraft:end_rod":        true,
	"minecraft:torch":          true,
	"minecraft:lava":           true,
}

var (
	OverworldLighting = Lighting{
		HasSky:            true,
		Ambient:           color.RGBA{0x00, 0x00, 0x1a, 0xff},
		LightFloor:        0,
		SurfaceAboveCaves: true,
		LightSources:      DefaultLightSources,
	}
	NetherLighting = Lighting{
		HasSky:            false,
		Ambient:           color.RGBA{0x33, 0x08, 0x08, 0xff},
		LightFloor:        2,
		SurfaceAboveCaves: false,
		LavaFallback:      true,
		LightSources:      DefaultLightSources,
	}
	EndLighting = Lighting{
		HasSky:            false,
		Ambient:           color.RGBA{0x1a, 0x1a, 0x1a, 0xff},
		LightFloor:        5,
		SurfaceAboveCaves: false,
		LightSources:      DefaultLightSources,
	}
)

func (l Lighting) IsLightSource(name string) bool {
	return l.LightSources[name]
}
