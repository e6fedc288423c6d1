package main

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"reflect"
	"regexp"
	"strings"

	"github.com/Tnze/go-mc/level/block"
	"github.com/davecgh/go-spew/spew"
)

var blockstateRegex = regexp.MustCompile("^assets/minecraft/blockstates/([A-Za-z0-9_]+).json$")

// blockstates that have no useful model for a top down map
var skipBlockstates = map[string]bool{
	"item_frame":            true,
	"glow_item_frame":       true,
	"piglin_wall_head":      true,
	"piglin_head":           true,
	"stripped_bamboo_block": true,
}

type jar map[string]*zip.File

func openJar(r *zip.Reader) jar {
	files := jar{}
	for _, f := range r.File {
		files[f.Name] = f
	}
	return files
}

func (j jar) readJSON(name string, v any) error {
	f, ok := j[name]
	if !ok {
		return fmt.Errorf("%s not found", name)
	}
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	return json.NewDecoder(r).Decode(v)
}

func statesByName() map[string][]block.StateID {
	ret := map[string][]block.StateID{}
	for i, b := range block.StateList {
		ret[b.ID()] = append(ret[b.ID()], block.StateID(i))
	}
	return ret
}

// stateMatches checks a blockstate description like "facing=north,half=top"
// against the properties of b. Alternatives are separated with |.
func stateMatches(b block.Block, desc string) bool {
	if desc == "" {
		return true
	}
	params := map[string]string{}
	for _, e := range strings.Split(desc, ",") {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			return false
		}
		params[strings.ReplaceAll(k, "_", "")] = v
	}
	r := reflect.ValueOf(b)
	for r.Kind() == reflect.Pointer {
		r = r.Elem()
	}
	if r.Kind() != reflect.Struct {
		return len(params) == 0
	}
	for m := 0; m < r.NumField(); m++ {
		want, ok := params[strings.ToLower(r.Type().Field(m).Name)]
		if !ok {
			continue
		}
		have := fmt.Sprint(r.Field(m).Interface())
		match := false
		for _, alt := range strings.Split(want, "|") {
			if alt == have {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

func firstModel(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case []any:
		if len(m) > 0 {
			if first, ok := m[0].(map[string]any); ok {
				return first, nil
			}
		}
	}
	return nil, fmt.Errorf("bad state description: %s", spew.Sdump(v))
}

// whenDescriptions turns a multipart "when" case into state descriptions,
// any of which selects the part.
func whenDescriptions(when map[string]any) []string {
	cases := []map[string]any{when}
	if ored, ok := when["OR"].([]any); ok {
		cases = cases[:0]
		for _, o := range ored {
			if om, ok := o.(map[string]any); ok {
				cases = append(cases, om)
			}
		}
	}
	ret := []string{}
	for _, c := range cases {
		sub := []string{}
		for k, v := range c {
			if vs, ok := v.(string); ok {
				sub = append(sub, k+"="+vs)
			}
		}
		ret = append(ret, strings.Join(sub, ","))
	}
	return ret
}

// stateModels maps every state with a blockstate file in the jar to the
// model it is drawn with.
func stateModels(j jar) map[block.StateID]map[string]any {
	byName := statesByName()
	ret := map[block.StateID]map[string]any{}
	for fname := range j {
		fmatch := blockstateRegex.FindStringSubmatch(fname)
		if fmatch == nil || skipBlockstates[fmatch[1]] || strings.HasSuffix(fmatch[1], "_hanging_sign") {
			continue
		}
		states := byName["minecraft:"+fmatch[1]]
		if len(states) == 0 {
			continue
		}
		var v struct {
			Variants  map[string]any `json:"variants"`
			Multipart []struct {
				When  map[string]any `json:"when"`
				Apply any            `json:"apply"`
			} `json:"multipart"`
		}
		if err := j.readJSON(fname, &v); err != nil {
			log.Printf("Failed to read %s: %v", fname, err)
			continue
		}
		switch {
		case v.Multipart != nil:
			for _, part := range v.Multipart {
				model, err := firstModel(part.Apply)
				if err != nil {
					log.Print(err)
					continue
				}
				descs := []string{""}
				if part.When != nil {
					descs = whenDescriptions(part.When)
				}
				for _, s := range states {
					if _, ok := ret[s]; ok && part.When == nil {
						continue
					}
					for _, d := range descs {
						if stateMatches(block.StateList[s], d) {
							ret[s] = model
							break
						}
					}
				}
			}
		case v.Variants != nil:
			for desc, vv := range v.Variants {
				model, err := firstModel(vv)
				if err != nil {
					log.Print(err)
					continue
				}
				for _, s := range states {
					if stateMatches(block.StateList[s], desc) {
						ret[s] = model
					}
				}
			}
		default:
			log.Printf("Weird json you have here [%v], skipping", fname)
		}
	}
	return ret
}

func modelPath(name string) string {
	return "assets/minecraft/models/" + strings.TrimPrefix(name, "minecraft:") + ".json"
}

// modelTextures collects texture paths of a model, following parents
// when the model itself names none.
func modelTextures(j jar, model string) []string {
	for depth := 0; depth < 8 && model != ""; depth++ {
		var v struct {
			Parent   string            `json:"parent"`
			Textures map[string]string `json:"textures"`
		}
		if err := j.readJSON(modelPath(model), &v); err != nil {
			return nil
		}
		ret := []string{}
		for _, tex := range v.Textures {
			if strings.HasPrefix(tex, "#") {
				continue
			}
			ret = append(ret, "assets/minecraft/textures/"+strings.TrimPrefix(tex, "minecraft:")+".png")
		}
		if len(ret) > 0 {
			return ret
		}
		model = v.Parent
	}
	return nil
}

// averageColor weights every pixel by its alpha, the alpha of the result
// is the mean coverage.
func averageColor(img image.Image) color.RGBA64 {
	bounds := img.Bounds()
	var rr, gg, bb, aa, count float64
	for i := bounds.Min.X; i < bounds.Max.X; i++ {
		for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
			r, g, b, a := img.At(i, j).RGBA()
			rr += float64(r)
			gg += float64(g)
			bb += float64(b)
			aa += float64(a)
			count++
		}
	}
	if aa == 0 {
		return color.RGBA64{}
	}
	return color.RGBA64{
		R: uint16(rr/aa*0xffff + 0.5),
		G: uint16(gg/aa*0xffff + 0.5),
		B: uint16(bb/aa*0xffff + 0.5),
		A: uint16(aa / count),
	}
}

func decodeTexture(f *zip.File) (image.Image, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return png.Decode(io.LimitReader(r, 16<<20))
}

// stateColors averages the textures of every state. States without a
// model get a zero colour.
func stateColors(j jar) (colors []color.RGBA64, matched int) {
	models := stateModels(j)
	texcache := map[string]color.RGBA64{}
	colors = make([]color.RGBA64, len(block.StateList))
	for i, b := range block.StateList {
		switch b.ID() {
		case "minecraft:air", "minecraft:cave_air", "minecraft:void_air":
			continue
		}
		m, ok := models[block.StateID(i)]
		if !ok {
			continue
		}
		name, _ := m["model"].(string)
		var r, g, bl, a, n uint32
		for _, tp := range modelTextures(j, name) {
			c, ok := texcache[tp]
			if !ok {
				f, found := j[tp]
				if !found {
					log.Printf("File not found: %v", tp)
					continue
				}
				img, err := decodeTexture(f)
				if err != nil {
					log.Printf("Failed to decode %s: %v", tp, err)
					continue
				}
				c = averageColor(img)
				texcache[tp] = c
			}
			r += uint32(c.R)
			g += uint32(c.G)
			bl += uint32(c.B)
			a += uint32(c.A)
			n++
		}
		if n == 0 {
			continue
		}
		colors[i] = color.RGBA64{R: uint16(r / n), G: uint16(g / n), B: uint16(bl / n), A: uint16(a / n)}
		matched++
	}
	return colors, matched
}
