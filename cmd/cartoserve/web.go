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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	humanize "github.com/dustin/go-humanize"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	imagecache "github.com/maxsupermanhd/WebChunkCarto/imageCache"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render/tiles"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
)

const maxZoom = 12

var (
	errBadTileType = errors.New("unknown tile type")
	errCacheClosed = errors.New("image cache is shut down")
)

// parseTileType maps tile names (surface, night, topo, caveN) to a map
// type of dim. night reports whether the night image is wanted.
func parseTileType(dim, ttype string) (mt primitives.MapType, night bool, err error) {
	if rest, ok := strings.CutPrefix(ttype, "cave"); ok && rest != "" {
		slice, err := strconv.Atoi(rest)
		if err != nil || slice < 0 {
			return mt, false, fmt.Errorf("%w: %q", errBadTileType, ttype)
		}
		return primitives.NewMapType(dim, primitives.ModeUnderground, slice), false, nil
	}
	mode, ok := primitives.ParseMode(ttype)
	if !ok || mode == primitives.ModeUnderground {
		return mt, false, fmt.Errorf("%w: %q", errBadTileType, ttype)
	}
	return primitives.NewMapType(dim, mode, 0), ttype == "night", nil
}

func customLogger(_ io.Writer, params handlers.LogFormatterParams) {
	r := params.Request
	ip := r.Header.Get("CF-Connecting-IP")
	if ip == "" {
		ip = r.RemoteAddr
	}
	log.Println("["+ip+"]", r.Method, params.StatusCode, r.RequestURI)
}

func (s *server) createRouter(logOut io.Writer, stop func()) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/stop", func(w http.ResponseWriter, _ *http.Request) {
		stop()
		w.WriteHeader(200)
		w.Write([]byte("Success"))
	}).Methods("GET")
	router.HandleFunc("/tiles/{ttype}/{cs:[0-9]+}/{cx:-?[0-9]+}/{cz:-?[0-9]+}/{format}", s.tileHandler).Methods("GET")
	router.HandleFunc("/status", s.statusHandler).Methods("GET")
	router.HandleFunc("/cfg", s.cfgHandler).Methods("GET")
	router.HandleFunc("/api/v1/renderers", s.renderersHandler).Methods("GET")
	router.HandleFunc("/debug/column/{cx:-?[0-9]+}/{cz:-?[0-9]+}/{x:[0-9]+}/{z:[0-9]+}", s.columnHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router1 := handlers.ProxyHeaders(router)
	router2 := handlers.CompressHandler(router1)
	router3 := handlers.CustomLoggingHandler(logOut, router2, customLogger)
	router4 := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router3)
	return router4
}

func runWeb(ctx context.Context, stop func(), addr string, s *server, logOut io.Writer) {
	if addr == "" {
		log.Println("Not starting web server because listen address is empty")
		<-ctx.Done()
		return
	}
	websrv := http.Server{
		Addr:    addr,
		Handler: s.createRouter(logOut, stop),
	}
	log.Println("Web server listens on " + addr)
	go func() {
		if err := websrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Web server returned an error: %s\n", err)
		}
	}()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := websrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server Shutdown Failed:%+v", err)
	}
}

func tilingParams(r *http.Request) (loc primitives.ImageLocation, format string, err error) {
	params := mux.Vars(r)
	format = params["format"]
	if format != "png" {
		return loc, format, fmt.Errorf("unsupported format %q", format)
	}
	loc.Variant = params["ttype"]
	if loc.S, err = strconv.Atoi(params["cs"]); err != nil {
		return
	}
	if loc.S > maxZoom {
		return loc, format, fmt.Errorf("zoom %d is above %d", loc.S, maxZoom)
	}
	if loc.X, err = strconv.Atoi(params["cx"]); err != nil {
		return
	}
	loc.Z, err = strconv.Atoi(params["cz"])
	return
}

// requestRender asks for loaded chunks of a tile to be rendered ahead of
// the background queue.
func (s *server) requestRender(loc primitives.ImageLocation) {
	n := 1 << loc.S
	for z := loc.Z * n; z < loc.Z*n+n; z++ {
		for x := loc.X * n; x < loc.X*n+n; x++ {
			pos := chunk.Pos{X: x, Z: z}
			if s.world.Chunk(pos) == nil {
				continue
			}
			if !s.rend.TryAddToPriorityRenderQueue(pos) {
				return
			}
		}
	}
}

// cachedPainter paints chunks from the image cache, used for tiles too
// large to be cut out of one stored image.
func (s *server) cachedPainter(dim, variant string) tiles.Painter {
	return func(c chunk.Chunk) (*image.RGBA, error) {
		pos := c.Pos()
		ci := s.images.GetCachedImageBlocking(primitives.ImageLocation{Dimension: dim, Variant: variant, X: pos.X, Z: pos.Z})
		if ci == nil || ci.Img == nil {
			s.rend.TryAddToPriorityRenderQueue(pos)
			return nil, nil
		}
		return ci.Img, nil
	}
}

func (s *server) cachedTile(loc primitives.ImageLocation) (*image.RGBA, error) {
	if loc.S > imagecache.StorageLevel {
		return tiles.Assemble(s.world, loc, s.cachedPainter(loc.Dimension, loc.Variant))
	}
	ci := s.images.GetCachedImageBlocking(loc)
	if ci == nil {
		return nil, errCacheClosed
	}
	if ci.Img == nil {
		s.requestRender(loc)
		return nil, tiles.ErrNoChunks
	}
	return ci.Img, nil
}

func (s *server) tileHandler(w http.ResponseWriter, r *http.Request) {
	loc, _, err := tilingParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	loc.Dimension = s.dim.Name
	mt, night, err := parseTileType(s.dim.Name, loc.Variant)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	loc.Variant = tileVariant(mt, night)
	img, err := s.cachedTile(loc)
	if img == nil && night && errors.Is(err, tiles.ErrNoChunks) {
		loc.Variant = tileVariant(mt, false)
		img, err = s.cachedTile(loc)
	}
	if img == nil {
		switch {
		case errors.Is(err, tiles.ErrNoChunks):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, errCacheClosed):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if err != nil {
		s.l.Warn("tile assembled with errors", "tile", loc.String(), "err", err)
	}
	writePNG(w, img)
}

func writePNG(w http.ResponseWriter, img image.Image) {
	b := bytes.NewBuffer([]byte{})
	if err := png.Encode(b, img); err != nil {
		log.Printf("Failed to encode image: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(b.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b.Bytes()); err != nil {
		log.Printf("Unable to write image: %s", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	ret := map[string]any{
		"version":       fmt.Sprintf("%s %s built %s %s", GitTag, CommitHash, BuildTime, GoVersion),
		"uptime":        humanize.RelTime(s.started, time.Now(), "", ""),
		"dimension":     s.dim.Name,
		"chunks":        len(s.world.Positions()),
		"imageCache":    s.images.GetStats(),
		"configVersion": s.src.LastModified(),
	}
	if avg, err := load.Avg(); err == nil {
		ret["load"] = avg
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		ret["memory"] = fmt.Sprintf("%s / %s", humanize.Bytes(vm.Used), humanize.Bytes(vm.Total))
	}
	respondJSON(w, ret)
}

func (s *server) cfgHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.src.Options())
}

func (s *server) renderersHandler(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(s.maptypes))
	for _, mt := range s.maptypes {
		names = append(names, mt.String())
	}
	respondJSON(w, names)
}

type columnBlock struct {
	Y          int
	Name       string
	Flags      chunk.Flags
	BlockLight int
	SeesSky    bool
}

func (s *server) columnHandler(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	cx, _ := strconv.Atoi(params["cx"])
	cz, _ := strconv.Atoi(params["cz"])
	x, _ := strconv.Atoi(params["x"])
	z, _ := strconv.Atoi(params["z"])
	if x >= chunk.Size || z >= chunk.Size {
		http.Error(w, "column out of chunk", http.StatusBadRequest)
		return
	}
	c := s.world.Chunk(chunk.Pos{X: cx, Z: cz})
	if c == nil {
		http.Error(w, "chunk not loaded", http.StatusNotFound)
		return
	}
	top := c.PrecipitationHeight(x, z)
	blocks := []columnBlock{}
	for y := top; y >= 0 && y > top-16; y-- {
		b := c.Block(x, y, z)
		cb := columnBlock{Y: y, BlockLight: c.BlockLight(x, y, z), SeesSky: c.CanSeeSky(x, y, z)}
		if b != nil {
			cb.Name = b.Name
			cb.Flags = b.Flags
		}
		blocks = append(blocks, cb)
	}
	w.Header().Set("Content-Type", "text/plain")
	spew.Fdump(w, struct {
		Chunk               chunk.Pos
		X, Z                int
		PrecipitationHeight int
		ConfigVersion       int64
		Blocks              []columnBlock
	}{c.Pos(), x, z, top, s.src.LastModified(), blocks})
}
