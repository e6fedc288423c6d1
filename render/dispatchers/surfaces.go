package dispatchers

import (
	"image"
	"sync"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
)

type surfaceKey struct {
	dim string
	pos chunk.Pos
}

// SurfaceStore keeps the latest day surface image of every chunk.
type SurfaceStore struct {
	lock  sync.RWMutex
	tiles map[surfaceKey]*image.RGBA
}

func NewSurfaceStore() *SurfaceStore {
	return &SurfaceStore{tiles: map[surfaceKey]*image.RGBA{}}
}

func (s *SurfaceStore) Get(dim string, pos chunk.Pos) *image.RGBA {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.tiles[surfaceKey{dim, pos}]
}

func (s *SurfaceStore) Put(dim string, pos chunk.Pos, img *image.RGBA) {
	s.lock.Lock()
	s.tiles[surfaceKey{dim, pos}] = img
	s.lock.Unlock()
}

func (s *SurfaceStore) Forget(dim string, pos chunk.Pos) {
	s.lock.Lock()
	delete(s.tiles, surfaceKey{dim, pos})
	s.lock.Unlock()
}

// ForgetChunk drops the tiles of pos in every dimension.
func (s *SurfaceStore) ForgetChunk(pos chunk.Pos) {
	s.lock.Lock()
	for k := range s.tiles {
		if k.pos == pos {
			delete(s.tiles, k)
		}
	}
	s.lock.Unlock()
}

func (s *SurfaceStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.tiles)
}
