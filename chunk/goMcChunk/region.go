package goMcChunk

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strconv"
	"sync"

	"github.com/Tnze/go-mc/save"
	"github.com/Tnze/go-mc/save/region"
	"github.com/hashicorp/go-multierror"
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
)

var regionFnameRegexp = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

// RegionFolder is where a dimension keeps its region files inside a save.
func RegionFolder(root, dim string) string {
	switch dim {
	case "overworld":
		return path.Join(root, "region")
	case "the_end":
		return path.Join(root, "DIM1", "region")
	case "the_nether":
		return path.Join(root, "DIM-1", "region")
	}
	return path.Join(root, "dimensions", "minecraft", dim, "region")
}

func ExtractRegionPath(fname string, xx, zz *int) bool {
	r := regionFnameRegexp.FindAllStringSubmatch(fname, -1)
	if len(r) != 1 || len(r[0]) != 3 {
		return false
	}
	x, err := strconv.Atoi(r[0][1])
	if err != nil {
		return false
	}
	z, err := strconv.Atoi(r[0][2])
	if err != nil {
		return false
	}
	if xx != nil {
		*xx = x
	}
	if zz != nil {
		*zz = z
	}
	return true
}

// World is a chunk.Provider over chunks loaded from region files.
// Chunks are loaded explicitly; Chunk never touches the disk.
type World struct {
	dir    string
	layout Layout
	set    *BlockSet
	l      *slog.Logger
	lock   sync.RWMutex
	chunks map[chunk.Pos]*Chunk
}

func NewWorld(root, dim string, set *BlockSet, l *slog.Logger) *World {
	if l == nil {
		l = slog.Default()
	}
	return &World{
		dir:    RegionFolder(root, dim),
		layout: LayoutFor(dim),
		set:    set,
		l:      l,
		chunks: map[chunk.Pos]*Chunk{},
	}
}

func (w *World) Chunk(pos chunk.Pos) chunk.Chunk {
	w.lock.RLock()
	defer w.lock.RUnlock()
	c, ok := w.chunks[pos]
	if !ok {
		return nil
	}
	return c
}

func (w *World) WorldHeight() int {
	return w.layout.Height
}

func (w *World) Len() int {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return len(w.chunks)
}

// Put adds an already converted chunk.
func (w *World) Put(c *Chunk) {
	w.lock.Lock()
	w.chunks[c.Pos()] = c
	w.lock.Unlock()
}

// Positions lists loaded chunk positions in no particular order.
func (w *World) Positions() []chunk.Pos {
	w.lock.RLock()
	defer w.lock.RUnlock()
	ret := make([]chunk.Pos, 0, len(w.chunks))
	for p := range w.chunks {
		ret = append(ret, p)
	}
	return ret
}

// LoadRegion reads every chunk of region rx:rz. Broken chunks are
// skipped and reported together.
func (w *World) LoadRegion(rx, rz int) (int, error) {
	r, err := region.Open(path.Join(w.dir, fmt.Sprintf("r.%d.%d.mca", rx, rz)))
	if err != nil {
		return 0, err
	}
	defer r.Close()
	var errs *multierror.Error
	loaded := 0
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			if !r.ExistSector(x, z) {
				continue
			}
			cd, err := r.ReadSector(x, z)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("read chunk %2d:%2d of region %3d:%3d: %w", x, z, rx, rz, err))
				continue
			}
			var sc save.Chunk
			if err := sc.Load(cd); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("load chunk %2d:%2d of region %3d:%3d: %w", x, z, rx, rz, err))
				continue
			}
			c, err := FromSave(&sc, w.set, w.layout)
			if err != nil {
				w.l.Warn("chunk has broken sections", "chunk", c.Pos(), "err", err)
			}
			w.Put(c)
			loaded++
		}
	}
	return loaded, errs.ErrorOrNil()
}

// LoadAll loads every region file of the dimension.
func (w *World) LoadAll() (int, error) {
	d, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}
	var errs *multierror.Error
	total := 0
	for _, i := range d {
		if i.IsDir() {
			continue
		}
		var rx, rz int
		if !ExtractRegionPath(i.Name(), &rx, &rz) {
			continue
		}
		n, err := w.LoadRegion(rx, rz)
		total += n
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		w.l.Info("region loaded", "region", fmt.Sprintf("%d:%d", rx, rz), "chunks", n)
	}
	return total, errs.ErrorOrNil()
}
