package goMcChunk

import (
	"hash/fnv"
	"image/color"
	"strings"

	"github.com/Tnze/go-mc/level/block"
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
)

type traits struct {
	flags   chunk.Flags
	alpha   float32
	opacity int
}

var opaque = traits{alpha: 1, opacity: 15}

var plant = traits{flags: chunk.Ignore | chunk.OpenToSky}

var namedTraits = map[string]traits{
	"air":             {flags: chunk.Air},
	"cave_air":        {flags: chunk.Air},
	"void_air":        {flags: chunk.Air},
	"structure_void":  {flags: chunk.Air},
	"light":           {flags: chunk.Air},
	"barrier":         {flags: chunk.Ignore | chunk.OpenToSky},
	"water":           {flags: chunk.Fluid, alpha: 0.6, opacity: 1},
	"bubble_column":   {flags: chunk.Fluid, alpha: 0.6, opacity: 1},
	"lava":            {flags: chunk.Fluid | chunk.Lava, alpha: 1, opacity: 15},
	"ice":             {flags: chunk.Ice | chunk.Transparency, alpha: 0.7, opacity: 1},
	"frosted_ice":     {flags: chunk.Ice | chunk.Transparency, alpha: 0.7, opacity: 1},
	"packed_ice":      {flags: chunk.Ice, alpha: 1, opacity: 15},
	"blue_ice":        {flags: chunk.Ice, alpha: 1, opacity: 15},
	"glass":           {flags: chunk.Transparency | chunk.OpenToSky, alpha: 0.3},
	"glass_pane":      {flags: chunk.Transparency | chunk.OpenToSky, alpha: 0.3},
	"tinted_glass":    {flags: chunk.Transparency, alpha: 0.8, opacity: 15},
	"snow":            {flags: chunk.NoShadow, alpha: 1},
	"lily_pad":        {flags: chunk.NoShadow | chunk.NoTopo, alpha: 1},
	"rail":            {flags: chunk.NoShadow | chunk.NoTopo, alpha: 1},
	"powered_rail":    {flags: chunk.NoShadow | chunk.NoTopo, alpha: 1},
	"detector_rail":   {flags: chunk.NoShadow | chunk.NoTopo, alpha: 1},
	"activator_rail":  {flags: chunk.NoShadow | chunk.NoTopo, alpha: 1},
	"grass":           plant,
	"short_grass":     plant,
	"tall_grass":      plant,
	"fern":            plant,
	"large_fern":      plant,
	"dead_bush":       plant,
	"seagrass":        plant,
	"tall_seagrass":   plant,
	"kelp":            plant,
	"kelp_plant":      plant,
	"vine":            plant,
	"cobweb":          plant,
	"torch":           plant,
	"wall_torch":      plant,
	"soul_torch":      plant,
	"redstone_torch":  plant,
	"redstone_wire":   plant,
	"tripwire":        plant,
	"lever":           plant,
	"ladder":          plant,
	"dandelion":       plant,
	"poppy":           plant,
	"blue_orchid":     plant,
	"allium":          plant,
	"azure_bluet":     plant,
	"oxeye_daisy":     plant,
	"cornflower":      plant,
	"sunflower":       plant,
	"lilac":           plant,
	"rose_bush":       plant,
	"peony":           plant,
	"sugar_cane":      {flags: chunk.NoTopo | chunk.OpenToSky, alpha: 1},
	"cactus":          {flags: chunk.NoTopo, alpha: 1, opacity: 1},
	"bamboo":          {flags: chunk.NoTopo | chunk.OpenToSky, alpha: 1},
}

var suffixTraits = []struct {
	suffix string
	t      traits
}{
	{"_stained_glass", traits{flags: chunk.Transparency | chunk.OpenToSky, alpha: 0.4}},
	{"_stained_glass_pane", traits{flags: chunk.Transparency | chunk.OpenToSky, alpha: 0.4}},
	{"_leaves", traits{flags: chunk.NoTopo | chunk.OpenToSky, alpha: 1, opacity: 1}},
	{"_log", traits{flags: chunk.NoTopo, alpha: 1, opacity: 15}},
	{"_stem", traits{flags: chunk.NoTopo, alpha: 1, opacity: 15}},
	{"_mushroom_block", traits{flags: chunk.NoTopo, alpha: 1, opacity: 15}},
	{"_carpet", traits{flags: chunk.NoShadow | chunk.NoTopo, alpha: 1}},
	{"_pressure_plate", traits{flags: chunk.NoShadow | chunk.NoTopo, alpha: 1}},
	{"_sapling", plant},
	{"_tulip", plant},
	{"_button", plant},
	{"_sign", plant},
	{"_banner", plant},
	{"_mushroom", plant},
	{"_coral_fan", plant},
	{"_roots", plant},
}

func traitsFor(name string) traits {
	name = strings.TrimPrefix(name, "minecraft:")
	if t, ok := namedTraits[name]; ok {
		return t
	}
	for _, s := range suffixTraits {
		if strings.HasSuffix(name, s.suffix) {
			return s.t
		}
	}
	return opaque
}

var fallbackColors = map[string]color.RGBA{
	"stone":       {0x7d, 0x7d, 0x7d, 0xff},
	"deepslate":   {0x50, 0x50, 0x52, 0xff},
	"dirt":        {0x86, 0x60, 0x43, 0xff},
	"grass_block": {0x5b, 0x8c, 0x3a, 0xff},
	"sand":        {0xdb, 0xd3, 0xa0, 0xff},
	"gravel":      {0x85, 0x7f, 0x7e, 0xff},
	"water":       {0x3f, 0x76, 0xe4, 0xff},
	"lava":        {0xcf, 0x5b, 0x14, 0xff},
	"snow":        {0xf9, 0xfe, 0xfe, 0xff},
	"snow_block":  {0xf9, 0xfe, 0xfe, 0xff},
	"ice":         {0x91, 0xb7, 0xfd, 0xff},
	"netherrack":  {0x6f, 0x36, 0x35, 0xff},
	"end_stone":   {0xdb, 0xde, 0x9e, 0xff},
	"bedrock":     {0x55, 0x55, 0x55, 0xff},
	"oak_leaves":  {0x3a, 0x6e, 0x1e, 0xff},
}

// fallbackColor is used for states missing from the colour palette.
// Unknown names get a stable muted colour derived from the name.
func fallbackColor(name string) color.RGBA {
	short := strings.TrimPrefix(name, "minecraft:")
	if c, ok := fallbackColors[short]; ok {
		return c
	}
	h := fnv.New32a()
	h.Write([]byte(short))
	v := h.Sum32()
	return color.RGBA{uint8(0x40 + v%0x80), uint8(0x40 + (v>>8)%0x80), uint8(0x40 + (v>>16)%0x80), 0xff}
}

// BlockSet maps every go-mc block state to a shared chunk.Block.
type BlockSet struct {
	states []*chunk.Block
	byName map[string]*chunk.Block
}

// NewBlockSet builds the state table. colors is indexed by state id;
// missing or short palettes fall back to built-in colours.
func NewBlockSet(colors []color.RGBA64) *BlockSet {
	s := &BlockSet{
		states: make([]*chunk.Block, len(block.StateList)),
		byName: map[string]*chunk.Block{},
	}
	for i, b := range block.StateList {
		name := b.ID()
		t := traitsFor(name)
		var c color.RGBA
		if i < len(colors) {
			c = color.RGBA{
				R: uint8(colors[i].R >> 8),
				G: uint8(colors[i].G >> 8),
				B: uint8(colors[i].B >> 8),
				A: uint8(colors[i].A >> 8),
			}
			if c.A == 0 && t.flags&(chunk.Air|chunk.Ignore) == 0 {
				t.flags |= chunk.Ignore
			}
			c.A = 0xff
		} else {
			c = fallbackColor(name)
		}
		blk := &chunk.Block{
			Name:         name,
			Color:        c,
			Alpha:        t.alpha,
			LightOpacity: t.opacity,
			Flags:        t.flags,
		}
		s.states[i] = blk
		if _, ok := s.byName[name]; !ok {
			s.byName[name] = blk
		}
	}
	return s
}

// State returns the block for a state id. Out of range ids are nil so
// the renderers mark the column bad.
func (s *BlockSet) State(id block.StateID) *chunk.Block {
	if int(id) < 0 || int(id) >= len(s.states) {
		return nil
	}
	return s.states[id]
}

// Named returns the first state block for name, with or without the
// minecraft: prefix.
func (s *BlockSet) Named(name string) *chunk.Block {
	if !strings.Contains(name, ":") {
		name = "minecraft:" + name
	}
	return s.byName[name]
}
