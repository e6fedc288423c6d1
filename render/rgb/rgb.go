// Package rgb holds the colour arithmetic used by the map renderers.
// All results are opaque.
package rgb

import (
	"fmt"
	"image/color"
)

var (
	Black = color.RGBA{0, 0, 0, 255}
	White = color.RGBA{255, 255, 255, 255}
)

func clamp(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Adjust multiplies every channel by factor.
func Adjust(c color.RGBA, factor float32) color.RGBA {
	if factor == 1 {
		c.A = 255
		return c
	}
	return color.RGBA{
		R: clamp(float32(c.R) * factor),
		G: clamp(float32(c.G) * factor),
		B: clamp(float32(c.B) * factor),
		A: 255,
	}
}

// DarkenAmbient scales channels by factor plus the matching ambient
// channel so dark areas keep the dimension tint.
func DarkenAmbient(c color.RGBA, factor float32, ambient color.RGBA) color.RGBA {
	return color.RGBA{
		R: clamp(float32(c.R) * (factor + float32(ambient.R)/255)),
		G: clamp(float32(c.G) * (factor + float32(ambient.G)/255)),
		B: clamp(float32(c.B) * (factor + float32(ambient.B)/255)),
		A: 255,
	}
}

// Blend mixes over onto base with weight alpha in [0,1].
func Blend(base, over color.RGBA, alpha float32) color.RGBA {
	if alpha >= 1 {
		over.A = 255
		return over
	}
	if alpha <= 0 {
		base.A = 255
		return base
	}
	inv := 1 - alpha
	return color.RGBA{
		R: clamp(float32(base.R)*inv + float32(over.R)*alpha),
		G: clamp(float32(base.G)*inv + float32(over.G)*alpha),
		B: clamp(float32(base.B)*inv + float32(over.B)*alpha),
		A: 255,
	}
}

// Parse reads "#rrggbb" or "#rrggbbaa".
func Parse(s string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 9:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = fmt.Errorf("bad colour %q", s)
	}
	return c, err
}

func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%.2x%.2x%.2x", c.R, c.G, c.B)
}
