// Package strata stacks the visible blocks of one column and folds them
// into final day, night and cave colours.
package strata

import (
	"errors"
	"image/color"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/rgb"
)

// Capacity is the number of slots in a Strata arena. Pushes past it are
// dropped.
const Capacity = 16

var (
	ErrNoData   = errors.New("column has no strata")
	ErrBadBlock = errors.New("stratum without block")
)

type Stratum struct {
	Block *chunk.Block
	X     int
	Y     int
	Z     int
	// Light is the block light level above the block.
	Light int
	// Attenuation is the light opacity of everything stacked above.
	Attenuation int
	Day         color.RGBA
	Night       color.RGBA
	Cave        color.RGBA
	Alpha       float32
}

// Result is the composite of a whole stack.
type Result struct {
	Day   color.RGBA
	Night color.RGBA
	Cave  color.RGBA
}

// Strata is a reusable stack of strata for one column, top first. It is
// owned by a single renderer and reset before every column.
type Strata struct {
	slots       [Capacity]Stratum
	n           int
	attenuation int

	opts   render.Options
	policy render.Lighting
}

// Configure sets the options and lighting policy used for colour
// assignment. It also resets the stack.
func (s *Strata) Configure(opts render.Options, policy render.Lighting) {
	s.opts = opts
	s.policy = policy
	s.Reset()
}

func (s *Strata) Reset() {
	for i := 0; i < s.n; i++ {
		s.slots[i] = Stratum{}
	}
	s.n = 0
	s.attenuation = 0
}

func (s *Strata) Len() int {
	return s.n
}

func (s *Strata) Empty() bool {
	return s.n == 0
}

// At returns the i-th stratum counted from the top.
func (s *Strata) At(i int) *Stratum {
	if i < 0 || i >= s.n {
		return nil
	}
	return &s.slots[i]
}

func (s *Strata) top() *Stratum {
	if s.n == 0 {
		return nil
	}
	return &s.slots[s.n-1]
}

// Push adds b below everything already stacked and assigns its colours.
// above is the block directly over b. Water directly under water only
// deepens the existing slot.
func (s *Strata) Push(b *chunk.Block, x, y, z, light int, above *chunk.Block) bool {
	if t := s.top(); t != nil && b.IsWater() && t.Block != nil && t.Block.IsWater() && t.Y == y+1 {
		t.Y = y
		s.attenuation += b.LightOpacity
		return true
	}
	if s.n == Capacity {
		return false
	}
	st := &s.slots[s.n]
	*st = Stratum{
		Block:       b,
		X:           x,
		Y:           y,
		Z:           z,
		Light:       light,
		Attenuation: s.attenuation,
		Alpha:       b.Alpha,
	}
	s.assign(st, above)
	s.n++
	s.attenuation += b.LightOpacity
	return true
}

// DaylightFactor is the brightness multiplier for a block in daylight.
func DaylightFactor(light, attenuation int, opts render.Options, policy render.Lighting) float32 {
	f := float32(max(1, max(light, 15-attenuation))) / 15
	if policy.HasSky {
		f += opts.Tweak.BrightenDaylightDiff
	}
	return f
}

// NightFactor is the brightness multiplier at night. Without sky it is
// the daylight factor.
func NightFactor(light, attenuation int, opts render.Options, policy render.Lighting) float32 {
	if !policy.HasSky {
		return DaylightFactor(light, attenuation, opts, policy)
	}
	moon := opts.Tweak.MoonlightLevel
	return max(moon, max(float32(light), moon-float32(attenuation))) / 15
}

func (s *Strata) assign(st *Stratum, above *chunk.Block) {
	day := DaylightFactor(st.Light, st.Attenuation, s.opts, s.policy)
	night := NightFactor(st.Light, st.Attenuation, s.opts, s.policy)
	base := st.Block.Color
	if s.policy.IsLightSource(st.Block.Name) {
		base = rgb.Adjust(base, s.opts.Tweak.BrightenLightSource)
	}
	if above != nil && above.IsWater() && above.HasTransparency() && !st.Block.IsWater() {
		lit := rgb.Adjust(base, max(day, night))
		st.Day = rgb.Blend(lit, above.Color, s.opts.Tweak.WaterColorBlend)
		if s.policy.HasSky {
			st.Night = rgb.DarkenAmbient(st.Day, max(night, s.opts.Tweak.MinimumDarkenNightWater), s.policy.Ambient)
		} else {
			st.Night = st.Day
		}
	} else {
		st.Day = rgb.Adjust(base, day)
		if s.policy.HasSky {
			st.Night = rgb.DarkenAmbient(base, night, s.policy.Ambient)
		} else {
			st.Night = st.Day
		}
	}
	if s.opts.CaveLighting {
		st.Cave = st.Night
	} else {
		st.Cave = st.Day
	}
}

// Composite folds the stack from the bottom up, blending each stratum
// over what lies beneath it with its own alpha.
func (s *Strata) Composite() (Result, error) {
	if s.n == 0 {
		return Result{}, ErrNoData
	}
	var r Result
	seeded := false
	for i := s.n - 1; i >= 0; i-- {
		st := &s.slots[i]
		if st.Block == nil {
			return Result{}, ErrBadBlock
		}
		if !seeded {
			r = Result{Day: st.Day, Night: st.Night, Cave: st.Cave}
			seeded = true
			continue
		}
		r.Day = rgb.Blend(r.Day, st.Day, st.Alpha)
		r.Night = rgb.Blend(r.Night, st.Night, st.Alpha)
		r.Cave = rgb.Blend(r.Cave, st.Cave, st.Alpha)
	}
	if !seeded {
		return Result{}, ErrBadBlock
	}
	return r, nil
}
