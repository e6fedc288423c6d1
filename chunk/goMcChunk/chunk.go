// Package goMcChunk adapts save data decoded by go-mc to chunk.Chunk.
package goMcChunk

import (
	"fmt"
	"math/bits"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/level/block"
	"github.com/Tnze/go-mc/save"
	"github.com/hashicorp/go-multierror"
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
)

// Layout is the vertical extent of a dimension.
type Layout struct {
	MinY   int
	Height int
}

var (
	OverworldLayout = Layout{MinY: -64, Height: 384}
	NetherLayout    = Layout{MinY: 0, Height: 256}
	EndLayout       = Layout{MinY: 0, Height: 256}
)

func LayoutFor(dim string) Layout {
	switch dim {
	case "the_nether":
		return NetherLayout
	case "the_end":
		return EndLayout
	}
	return OverworldLayout
}

type section struct {
	states *level.PaletteContainer[block.StateID]
	sky    []byte
	light  []byte
}

type Chunk struct {
	pos      chunk.Pos
	layout   Layout
	set      *BlockSet
	sections []section
	heights  [chunk.Size * chunk.Size]int
	cache    chunk.ColumnCache
}

// FromSave converts a decoded chunk. Sections with broken palettes are
// left empty and reported in the returned error; the chunk is still
// usable.
func FromSave(sc *save.Chunk, set *BlockSet, layout Layout) (*Chunk, error) {
	c := &Chunk{
		pos:      chunk.Pos{X: int(sc.XPos), Z: int(sc.ZPos)},
		layout:   layout,
		set:      set,
		sections: make([]section, (layout.Height+15)/16),
	}
	var errs *multierror.Error
	for i := range sc.Sections {
		s := &sc.Sections[i]
		idx := int(s.Y) - layout.MinY>>4
		if idx < 0 || idx >= len(c.sections) {
			continue
		}
		sec := section{}
		if len(s.SkyLight) == 2048 {
			sec.sky = s.SkyLight
		}
		if len(s.BlockLight) == 2048 {
			sec.light = s.BlockLight
		}
		if len(s.BlockStates.Palette) > 0 {
			states, err := safePrepare(s)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("section %d: %w", s.Y, err))
			} else {
				sec.states = states
			}
		}
		c.sections[idx] = sec
	}
	if !c.loadHeightmap(sc.Heightmaps["MOTION_BLOCKING"]) {
		c.scanHeights()
	}
	return c, errs.ErrorOrNil()
}

func safePrepare(s *save.Section) (states *level.PaletteContainer[block.StateID], err error) {
	defer func() {
		if r := recover(); r != nil {
			states = nil
			err = fmt.Errorf("%w: %v", ErrBrokenPalette, r)
		}
	}()
	return prepareSectionBlockstates(s)
}

func (c *Chunk) loadHeightmap(raw []uint64) bool {
	if len(raw) == 0 {
		return false
	}
	bpv := bits.Len(uint(c.layout.Height + 1))
	perLong := 64 / bpv
	if len(raw) != (chunk.Size*chunk.Size+perLong-1)/perLong {
		return false
	}
	hm := level.NewBitStorage(bpv, chunk.Size*chunk.Size, raw)
	for i := range c.heights {
		c.heights[i] = min(hm.Get(i), c.layout.Height)
	}
	return true
}

func (c *Chunk) scanHeights() {
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			h := 0
			for y := c.layout.Height - 1; y >= 0; y-- {
				b := c.Block(x, y, z)
				if b == nil || !b.Has(chunk.Air) {
					h = y + 1
					break
				}
			}
			c.heights[z*chunk.Size+x] = h
		}
	}
}

func (c *Chunk) Pos() chunk.Pos {
	return c.pos
}

func (c *Chunk) ColumnCache() *chunk.ColumnCache {
	return &c.cache
}

func (c *Chunk) section(y int) *section {
	if y < 0 || y >= c.layout.Height {
		return nil
	}
	return &c.sections[y>>4]
}

func (c *Chunk) Block(x, y, z int) *chunk.Block {
	s := c.section(y)
	if s == nil || s.states == nil {
		return chunk.AirBlock
	}
	return c.set.State(s.states.Get((y&15)<<8 | z<<4 | x))
}

func (c *Chunk) PrecipitationHeight(x, z int) int {
	return c.heights[z*chunk.Size+x]
}

// CanSeeSky reads stored sky light. Sections saved without sky light are
// open above the heightmap.
func (c *Chunk) CanSeeSky(x, y, z int) bool {
	if y >= c.layout.Height {
		return true
	}
	s := c.section(y)
	if s == nil {
		return false
	}
	if s.sky == nil {
		return y >= c.PrecipitationHeight(x, z)
	}
	return nibble(s.sky, x, y, z) == 15
}

func (c *Chunk) BlockLight(x, y, z int) int {
	s := c.section(y)
	if s == nil || s.light == nil {
		return 0
	}
	return nibble(s.light, x, y, z)
}

// WorldY converts a chunk y to the save's absolute y.
func (c *Chunk) WorldY(y int) int {
	return y + c.layout.MinY
}
