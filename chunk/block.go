package chunk

import "image/color"

type Flags uint16

const (
	Air Flags = 1 << iota
	// Ignore marks blocks that are skipped like air but are not air.
	Ignore
	Fluid
	Lava
	Ice
	Transparency
	// NoShadow blocks stop the surface walk one block below themselves.
	NoShadow
	OpenToSky
	NoTopo
)

type Block struct {
	Name         string
	Color        color.RGBA
	Alpha        float32
	LightOpacity int
	Flags        Flags
}

var AirBlock = &Block{Name: "minecraft:air", Alpha: 0, Flags: Air}

func (b *Block) Has(f Flags) bool {
	return b.Flags&f != 0
}

// IsIgnore reports blocks the column walks step over.
func (b *Block) IsIgnore() bool {
	return b.Flags&(Air|Ignore) != 0
}

func (b *Block) IsFluid() bool {
	return b.Flags&Fluid != 0
}

func (b *Block) IsLava() bool {
	return b.Flags&Lava != 0
}

// IsWater is any fluid that is not lava.
func (b *Block) IsWater() bool {
	return b.Flags&Fluid != 0 && b.Flags&Lava == 0
}

func (b *Block) HasTransparency() bool {
	return b.Flags&Transparency != 0
}

func (b *Block) HasNoShadow() bool {
	return b.Flags&NoShadow != 0
}

func (b *Block) IsOpenToSky() bool {
	return b.Flags&OpenToSky != 0
}

func (b *Block) IsOpaque() bool {
	return b.Alpha >= 1
}
