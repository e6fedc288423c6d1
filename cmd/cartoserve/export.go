/*
	WebChunk, web server for block game maps
	Copyright (C) 2022 Maxim Zhuchkov

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.

	Contact me via mail: q3.max.2011@yandex.ru or Discord: MaX#6717
*/

package main

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/renderers"
	"github.com/maxsupermanhd/WebChunkCarto/render/tiles"
	"github.com/maxsupermanhd/lac"
)

// renderTileNow paints one tile synchronously with its own renderer set,
// without the dispatcher.
func renderTileNow(loc primitives.ImageLocation, rcfg *lac.ConfSubtree, dim renderers.Dimension, p chunk.Provider, src render.ConfigSource, l *slog.Logger) (*image.RGBA, error) {
	mt, night, err := parseTileType(dim.Name, loc.Variant)
	if err != nil {
		return nil, err
	}
	var rd, surface render.ChunkRenderer
	for _, r := range renderers.ConstructRenderers(rcfg, dim, p, src, l) {
		switch r.MapType() {
		case mt:
			rd = r
		case primitives.NewMapType(dim.Name, primitives.ModeSurface, 0):
			surface = r
		}
	}
	if rd == nil {
		return nil, fmt.Errorf("%w: %v is not configured", errBadTileType, mt)
	}
	var surfaceFn func(pos chunk.Pos) *image.RGBA
	if mt.IsUnderground() && surface != nil {
		surfacePaint := tiles.RendererPainter(surface, false, nil)
		surfaceFn = func(pos chunk.Pos) *image.RGBA {
			c := p.Chunk(pos)
			if c == nil {
				return nil
			}
			img, _ := surfacePaint(c)
			return img
		}
	}
	return tiles.Assemble(p, loc, tiles.RendererPainter(rd, night, surfaceFn))
}

func exportTile(path string, loc primitives.ImageLocation, rcfg *lac.ConfSubtree, dim renderers.Dimension, p chunk.Provider, src render.ConfigSource, l *slog.Logger) error {
	img, err := renderTileNow(loc, rcfg, dim, p, src, l)
	if img == nil {
		return err
	}
	if err != nil {
		l.Warn("tile rendered with errors", "tile", loc.String(), "err", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
