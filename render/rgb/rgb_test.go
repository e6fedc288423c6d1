package rgb

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjust(t *testing.T) {
	c := color.RGBA{100, 200, 50, 255}
	assert.Equal(t, color.RGBA{50, 100, 25, 255}, Adjust(c, 0.5))
	assert.Equal(t, color.RGBA{150, 255, 75, 255}, Adjust(c, 1.5))
	assert.Equal(t, c, Adjust(c, 1))
}

func TestBlend(t *testing.T) {
	base := color.RGBA{0, 0, 0, 255}
	over := color.RGBA{200, 100, 50, 255}
	assert.Equal(t, color.RGBA{100, 50, 25, 255}, Blend(base, over, 0.5))
	assert.Equal(t, over, Blend(base, over, 1))
	assert.Equal(t, base, Blend(base, over, 0))
}

func TestDarkenAmbient(t *testing.T) {
	c := color.RGBA{100, 100, 100, 255}
	assert.Equal(t, Adjust(c, 0.5), DarkenAmbient(c, 0.5, color.RGBA{}))
	tinted := DarkenAmbient(c, 0.5, color.RGBA{51, 0, 0, 255})
	assert.Equal(t, uint8(70), tinted.R)
	assert.Equal(t, uint8(50), tinted.G)
}

func TestParse(t *testing.T) {
	c, err := Parse("#11220c")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0x11, 0x22, 0x0c, 0xff}, c)
	c, err = Parse("#11220c80")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x80), c.A)
	_, err = Parse("nope")
	assert.Error(t, err)
	assert.Equal(t, "#11220c", Hex(color.RGBA{0x11, 0x22, 0x0c, 0xff}))
}
