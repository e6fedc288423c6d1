package render

import (
	"errors"
	"image/color"

	"github.com/maxsupermanhd/WebChunkCarto/render/rgb"
	"github.com/maxsupermanhd/lac"
)

type ShadingOptions struct {
	SlopeMin           float32 `json:"slopeMin" mapstructure:"slopeMin"`
	SlopeMax           float32 `json:"slopeMax" mapstructure:"slopeMax"`
	PrimaryDownslope   float32 `json:"primaryDownslope" mapstructure:"primaryDownslope"`
	PrimaryUpslope     float32 `json:"primaryUpslope" mapstructure:"primaryUpslope"`
	SecondaryDownslope float32 `json:"secondaryDownslope" mapstructure:"secondaryDownslope"`
	SecondaryUpslope   float32 `json:"secondaryUpslope" mapstructure:"secondaryUpslope"`
}

type TweakOptions struct {
	MoonlightLevel          float32 `json:"moonlightLevel" mapstructure:"moonlightLevel"`
	BrightenDaylightDiff    float32 `json:"brightenDaylightDiff" mapstructure:"brightenDaylightDiff"`
	BrightenLightSource     float32 `json:"brightenLightSource" mapstructure:"brightenLightSource"`
	MinimumDarkenNightWater float32 `json:"minimumDarkenNightWater" mapstructure:"minimumDarkenNightWater"`
	WaterColorBlend         float32 `json:"waterColorBlend" mapstructure:"waterColorBlend"`
	CaveDim                 float32 `json:"caveDim" mapstructure:"caveDim"`
	CaveSurfaceGap          int     `json:"caveSurfaceGap" mapstructure:"caveSurfaceGap"`
}

type TopoOptions struct {
	Land         []string `json:"land" mapstructure:"land"`
	Water        []string `json:"water" mapstructure:"water"`
	LandContour  string   `json:"landContour" mapstructure:"landContour"`
	WaterContour string   `json:"waterContour" mapstructure:"waterContour"`
}

// Options is the live render configuration. Renderers copy it at the
// start of every chunk render.
type Options struct {
	Bathymetry        bool           `json:"bathymetry" mapstructure:"bathymetry"`
	Transparency      bool           `json:"transparency" mapstructure:"transparency"`
	Antialiasing      bool           `json:"antialiasing" mapstructure:"antialiasing"`
	CaveLighting      bool           `json:"caveLighting" mapstructure:"caveLighting"`
	SurfaceAboveCaves bool           `json:"surfaceAboveCaves" mapstructure:"surfaceAboveCaves"`
	MaxDepth          int            `json:"maxDepth" mapstructure:"maxDepth"`
	VoidColor         string         `json:"voidColor" mapstructure:"voidColor"`
	Shading           ShadingOptions `json:"shading" mapstructure:"shading"`
	Tweak             TweakOptions   `json:"tweak" mapstructure:"tweak"`
	Topo              TopoOptions    `json:"topo" mapstructure:"topo"`
}

func DefaultOptions() Options {
	return Options{
		Bathymetry:        false,
		Transparency:      true,
		Antialiasing:      true,
		CaveLighting:      true,
		SurfaceAboveCaves: true,
		MaxDepth:          8,
		VoidColor:         "#110c19",
		Shading: ShadingOptions{
			SlopeMin:           0.2,
			SlopeMax:           1.1,
			PrimaryDownslope:   0.65,
			PrimaryUpslope:     1.2,
			SecondaryDownslope: 0.95,
			SecondaryUpslope:   1.05,
		},
		Tweak: TweakOptions{
			MoonlightLevel:          3.5,
			BrightenDaylightDiff:    0.06,
			BrightenLightSource:     1.2,
			MinimumDarkenNightWater: 0.25,
			WaterColorBlend:         0.5,
			CaveDim:                 0.2,
			CaveSurfaceGap:          16,
		},
		Topo: TopoOptions{
			Land: []string{
				"#5c8a3a", "#7aa04a", "#9bb55c", "#bcc777",
				"#d6cf8c", "#c8a96b", "#a9805a", "#e8e4dc",
			},
			Water: []string{
				"#0a2f6b", "#12428a", "#1d5aa6", "#2f74bf",
				"#4a8dd0", "#6aa6dc", "#8cbfe6", "#b0d6ef",
			},
			LandContour:  "#3b2a1a",
			WaterContour: "#08203f",
		},
	}
}

// OptionsFromConf overlays the keys present in cfg onto DefaultOptions.
func OptionsFromConf(cfg *lac.ConfSubtree) (Options, error) {
	o := DefaultOptions()
	if cfg == nil {
		return o, nil
	}
	err := cfg.GetToStruct(&o)
	if err != nil && !errors.Is(err, lac.ErrNoKey) {
		return DefaultOptions(), err
	}
	return o, o.Validate()
}

func (o Options) Validate() error {
	if _, err := rgb.Parse(o.VoidColor); err != nil {
		return err
	}
	if o.Shading.SlopeMin > o.Shading.SlopeMax {
		return errors.New("shading.slopeMin is larger than shading.slopeMax")
	}
	if len(o.Topo.Land) == 0 || len(o.Topo.Water) == 0 {
		return errors.New("topo palettes must not be empty")
	}
	for _, s := range append(append([]string{o.Topo.LandContour, o.Topo.WaterContour}, o.Topo.Land...), o.Topo.Water...) {
		if _, err := rgb.Parse(s); err != nil {
			return err
		}
	}
	return nil
}

// Void returns the parsed void colour, falling back to black.
func (o Options) Void() color.RGBA {
	c, err := rgb.Parse(o.VoidColor)
	if err != nil {
		return rgb.Black
	}
	return c
}

func parsePalette(s []string) []color.RGBA {
	r := make([]color.RGBA, 0, len(s))
	for _, v := range s {
		c, err := rgb.Parse(v)
		if err != nil {
			c = rgb.Black
		}
		r = append(r, c)
	}
	return r
}

// TopoPalette is the parsed form of TopoOptions.
type TopoPalette struct {
	Land, Water               []color.RGBA
	LandContour, WaterContour color.RGBA
}

func (o Options) TopoPalette() TopoPalette {
	p := TopoPalette{
		Land:  parsePalette(o.Topo.Land),
		Water: parsePalette(o.Topo.Water),
	}
	p.LandContour, _ = rgb.Parse(o.Topo.LandContour)
	p.WaterContour, _ = rgb.Parse(o.Topo.WaterContour)
	return p
}
