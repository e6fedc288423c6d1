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

	imagecache "github.com/maxsupermanhd/WebChunkCarto/imageCache"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render/dispatchers"
)

// tileVariant is the image cache variant holding tiles of mt, the inverse
// of parseTileType.
func tileVariant(mt primitives.MapType, night bool) string {
	switch mt.Mode {
	case primitives.ModeUnderground:
		return fmt.Sprintf("cave%d", mt.Slice)
	case primitives.ModeTopo:
		return "topo"
	}
	if night {
		return "night"
	}
	return "surface"
}

// storeResult puts dispatcher output into the image cache. A chunk that
// failed to render is cleared so stale pixels do not linger.
func storeResult(c *imagecache.ImageCache, r dispatchers.Result) {
	loc := primitives.ImageLocation{
		Dimension: r.MapType.Dimension,
		Variant:   tileVariant(r.MapType, false),
		X:         r.Pos.X,
		Z:         r.Pos.Z,
	}
	if !r.OK || r.Day == nil {
		c.SetCachedImage(loc, image.NewRGBA(image.Rect(0, 0, 16, 16)))
		return
	}
	c.SetCachedImage(loc, r.Day)
	if r.Night != nil && r.MapType.Mode == primitives.ModeSurface {
		loc.Variant = tileVariant(r.MapType, true)
		c.SetCachedImage(loc, r.Night)
	}
}
