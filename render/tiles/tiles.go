// Package tiles assembles chunk images into zoomable map tiles.
package tiles

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"runtime/debug"

	"github.com/hashicorp/go-multierror"
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/nfnt/resize"
)

// MaxSize caps the tile edge in pixels.
const MaxSize = 512

var ErrNoChunks = errors.New("no chunks in tile area")

// Painter draws one chunk. A nil image with nil error skips the chunk.
type Painter func(c chunk.Chunk) (*image.RGBA, error)

// Scale is the number of chunks along one tile edge at zoom level s.
func Scale(s int) int {
	if s > 0 {
		return 2 << (s - 1)
	}
	return 1
}

// Assemble paints every loaded chunk of the tile at loc. Chunk failures
// are collected and returned together with the partial image.
func Assemble(p chunk.Provider, loc primitives.ImageLocation, paint Painter) (*image.RGBA, error) {
	scale := Scale(loc.S)
	imagesize := min(scale*chunk.Size, MaxSize)
	imagescale := max(imagesize/scale, 1)
	img := image.NewRGBA(image.Rect(0, 0, imagesize, imagesize))
	offsetx := loc.X * scale
	offsetz := loc.Z * scale
	var errs *multierror.Error
	painted := 0
	for cz := offsetz; cz < offsetz+scale; cz++ {
		for cx := offsetx; cx < offsetx+scale; cx++ {
			c := p.Chunk(chunk.Pos{X: cx, Z: cz})
			if c == nil {
				continue
			}
			ci, err := safePaint(paint, c)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("chunk %v: %w", c.Pos(), err))
				continue
			}
			if ci == nil {
				continue
			}
			placex := cx - offsetx
			placez := cz - offsetz
			tile := resize.Resize(uint(imagescale), uint(imagescale), ci, resize.NearestNeighbor)
			draw.Draw(img, image.Rect(placex*imagescale, placez*imagescale, placex*imagescale+imagescale, placez*imagescale+imagescale),
				tile, image.Pt(0, 0), draw.Over)
			painted++
		}
	}
	if painted == 0 {
		errs = multierror.Append(errs, ErrNoChunks)
		return nil, errs.ErrorOrNil()
	}
	return img, errs.ErrorOrNil()
}

func safePaint(paint Painter, c chunk.Chunk) (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("painter panic: %v\n%s", r, debug.Stack())
			img = nil
		}
	}()
	return paint(c)
}

// RendererPainter adapts a chunk renderer to a Painter. surface, when
// set, supplies the day surface image used by cave overlays.
func RendererPainter(rd render.ChunkRenderer, night bool, surface func(pos chunk.Pos) *image.RGBA) Painter {
	return func(c chunk.Chunk) (*image.RGBA, error) {
		day := image.NewRGBA(image.Rect(0, 0, chunk.Size, chunk.Size))
		t := render.Targets{Day: day}
		var nightImg *image.RGBA
		if night {
			nightImg = image.NewRGBA(image.Rect(0, 0, chunk.Size, chunk.Size))
			t.Night = nightImg
		}
		if surface != nil {
			if s := surface(c.Pos()); s != nil {
				t.Surface = s
			}
		}
		if !rd.RenderChunk(c, t) {
			return nil, nil
		}
		if night {
			return nightImg, nil
		}
		return day, nil
	}
}
