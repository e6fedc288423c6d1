package renderers

import (
	"log/slog"
	"strings"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/column"
	"github.com/maxsupermanhd/lac"
)

// Dimension selects the lighting policy and the slice height resolver
// used for one world dimension.
type Dimension struct {
	Name     string
	Lighting render.Lighting
	// Slices is the default number of underground slices rendered.
	Slices      int
	Underground func(env *column.Env) column.HeightResolver
}

func undergroundResolver(env *column.Env) column.HeightResolver {
	return &column.Underground{Env: env}
}

func lavaFloorResolver(env *column.Env) column.HeightResolver {
	return &column.LavaFloor{Env: env}
}

var (
	Overworld = Dimension{
		Name:        "overworld",
		Lighting:    render.OverworldLighting,
		Slices:      16,
		Underground: undergroundResolver,
	}
	Nether = Dimension{
		Name:        "the_nether",
		Lighting:    render.NetherLighting,
		Slices:      8,
		Underground: lavaFloorResolver,
	}
	End = Dimension{
		Name:        "the_end",
		Lighting:    render.EndLighting,
		Slices:      16,
		Underground: undergroundResolver,
	}
	Dimensions = []Dimension{Overworld, Nether, End}
)

// DimensionByName accepts both namespaced and bare names.
func DimensionByName(name string) (Dimension, bool) {
	name = strings.TrimPrefix(name, "minecraft:")
	switch name {
	case "nether":
		name = Nether.Name
	case "end":
		name = End.Name
	}
	for _, d := range Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// ConstructRenderers builds one renderer per enabled map type of dim.
// The surface renderer always comes first so cave overlays can read its
// output.
func ConstructRenderers(cfg *lac.ConfSubtree, dim Dimension, p chunk.Provider, src render.ConfigSource, l *slog.Logger) []render.ChunkRenderer {
	if l == nil {
		l = slog.Default()
	}
	bad := &BadBlockLog{}
	rends := []render.ChunkRenderer{NewSurface(dim, p, src, l, bad)}
	if confBool(cfg, true, "caves") {
		slices := dim.Slices
		if cfg != nil {
			slices = cfg.GetDInt(dim.Slices, "slices")
		}
		for s := 0; s < slices; s++ {
			rends = append(rends, NewCave(dim, s, p, src, l, bad))
		}
	}
	if confBool(cfg, true, "topo") {
		rends = append(rends, NewTopo(dim, p, src, l, bad))
	}
	return rends
}

func confBool(cfg *lac.ConfSubtree, d bool, path ...string) bool {
	if cfg == nil {
		return d
	}
	return cfg.GetDSBool(d, path...)
}
