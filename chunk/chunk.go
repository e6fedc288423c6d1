package chunk

import "fmt"

const Size = 16

type Pos struct {
	X, Z int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.X, p.Z)
}

func (p Pos) Add(dx, dz int) Pos {
	return Pos{X: p.X + dx, Z: p.Z + dz}
}

// Chunk is a loaded 16x16 column of blocks. x and z are local (0..15),
// y is absolute and starts at 0. Lookups outside the world height
// return AirBlock and zero light.
type Chunk interface {
	Pos() Pos
	Block(x, y, z int) *Block
	// PrecipitationHeight is the first y above the topmost
	// motion-blocking block.
	PrecipitationHeight(x, z int) int
	CanSeeSky(x, y, z int) bool
	BlockLight(x, y, z int) int
	ColumnCache() *ColumnCache
}

// Provider looks up loaded chunks. Chunk returns nil when the chunk is
// not loaded; callers never wait for a load.
type Provider interface {
	Chunk(pos Pos) Chunk
	WorldHeight() int
}

// Offset resolves a column offset that may cross into a neighbor chunk.
// It returns the chunk position holding the target column and the local
// coordinates inside it.
func Offset(pos Pos, x, z, dx, dz int) (Pos, int, int) {
	ax := x + dx
	az := z + dz
	return pos.Add(ax>>4, az>>4), ax & 15, az & 15
}
