package strata

import (
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
)

// BuildSurface stacks the column at x,z. The roof pass collects
// translucent blocks between topY and bottom. The depth pass always
// follows it: with transparency off it adds the single block at bottom
// under whatever the roof pass kept, otherwise it walks down from bottom
// until an opaque block or the configured depth.
func (s *Strata) BuildSurface(c chunk.Chunk, x, z, topY, bottom int) {
	s.Reset()
	transparency := s.opts.Transparency
	for y := topY; y > bottom; y-- {
		b := c.Block(x, y, z)
		if b.IsIgnore() {
			continue
		}
		if b.HasNoShadow() {
			bottom = y
			break
		}
		if b.HasTransparency() {
			s.Push(b, x, y, z, c.BlockLight(x, y+1, z), c.Block(x, y+1, z))
			if !transparency {
				break
			}
		}
	}
	depth := 0
	for y := bottom; y >= 0 && depth < s.opts.MaxDepth; y-- {
		b := c.Block(x, y, z)
		if b.IsIgnore() {
			continue
		}
		s.Push(b, x, y, z, c.BlockLight(x, y+1, z), c.Block(x, y+1, z))
		depth++
		if b.IsOpaque() || !transparency {
			break
		}
	}
}

// SliceLight is the light level of a cave floor at y.
func (s *Strata) SliceLight(c chunk.Chunk, x, y, z int) int {
	if !s.opts.CaveLighting {
		return 15
	}
	return max(s.policy.LightFloor, c.BlockLight(x, y+1, z))
}

func open(b *chunk.Block) bool {
	return b.IsIgnore() || b.IsOpenToSky()
}

// BuildCave stacks the first lit floor found walking down from the slice
// ceiling. Translucent floors are blended through when transparency is
// on. With a lava fallback policy a lava block anywhere in the column is
// kept if nothing lit was found.
func (s *Strata) BuildCave(c chunk.Chunk, x, z, ceilY, minY int) {
	s.Reset()
	transparency := s.opts.Transparency
	var lava *chunk.Block
	lavaY := 0
	through := false
	for y := ceilY; y >= 0; y-- {
		b := c.Block(x, y, z)
		if s.policy.LavaFallback && lava == nil && b.IsLava() {
			lava, lavaY = b, y
		}
		if y < minY && !through {
			if !s.policy.LavaFallback || lava != nil || !s.Empty() {
				break
			}
			continue
		}
		if open(b) {
			if through {
				break
			}
			continue
		}
		above := c.Block(x, y+1, z)
		if !through && !(open(above) && !c.CanSeeSky(x, y+1, z)) {
			continue
		}
		light := s.SliceLight(c, x, y, z)
		if through {
			light = s.top().Light
		}
		if light <= 0 {
			continue
		}
		s.Push(b, x, y, z, light, above)
		if !(b.HasTransparency() && transparency) || s.Len() == Capacity {
			break
		}
		through = true
	}
	if s.Empty() && lava != nil {
		s.Push(lava, x, lavaY, z, 15, c.Block(x, lavaY+1, z))
	}
}
