package chunk

import "sync"

// Memory is an in-memory Provider. It is used by tests and by the
// preview server for generated worlds.
type Memory struct {
	height int
	chunks map[Pos]*MemoryChunk
	lock   sync.RWMutex
}

func NewMemory(height int) *Memory {
	return &Memory{
		height: height,
		chunks: map[Pos]*MemoryChunk{},
	}
}

func (m *Memory) WorldHeight() int {
	return m.height
}

func (m *Memory) Chunk(pos Pos) Chunk {
	m.lock.RLock()
	defer m.lock.RUnlock()
	c, ok := m.chunks[pos]
	if !ok {
		return nil
	}
	return c
}

// Load returns the chunk at pos, creating an all-air chunk if needed.
func (m *Memory) Load(pos Pos) *MemoryChunk {
	m.lock.Lock()
	defer m.lock.Unlock()
	c, ok := m.chunks[pos]
	if ok {
		return c
	}
	c = &MemoryChunk{pos: pos, height: m.height}
	for i := range c.blocks {
		c.blocks[i] = make([]*Block, m.height)
		c.light[i] = make([]uint8, m.height)
	}
	m.chunks[pos] = c
	return c
}

func (m *Memory) Unload(pos Pos) {
	m.lock.Lock()
	delete(m.chunks, pos)
	m.lock.Unlock()
}

// Positions lists loaded chunks in no particular order.
func (m *Memory) Positions() []Pos {
	m.lock.RLock()
	defer m.lock.RUnlock()
	ret := make([]Pos, 0, len(m.chunks))
	for p := range m.chunks {
		ret = append(ret, p)
	}
	return ret
}

func (m *Memory) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.chunks)
}

type MemoryChunk struct {
	pos    Pos
	height int
	blocks [Size * Size][]*Block
	light  [Size * Size][]uint8
	cache  ColumnCache
}

func (c *MemoryChunk) Pos() Pos {
	return c.pos
}

func (c *MemoryChunk) ColumnCache() *ColumnCache {
	return &c.cache
}

func (c *MemoryChunk) Block(x, y, z int) *Block {
	if y < 0 || y >= c.height {
		return AirBlock
	}
	b := c.blocks[z*Size+x][y]
	if b == nil {
		return AirBlock
	}
	return b
}

func (c *MemoryChunk) SetBlock(x, y, z int, b *Block) {
	c.blocks[z*Size+x][y] = b
}

// Fill sets blocks fromY..toY inclusive in one column.
func (c *MemoryChunk) Fill(x, z, fromY, toY int, b *Block) {
	col := c.blocks[z*Size+x]
	for y := fromY; y <= toY && y < c.height; y++ {
		if y >= 0 {
			col[y] = b
		}
	}
}

// FillAll fills fromY..toY in every column of the chunk.
func (c *MemoryChunk) FillAll(fromY, toY int, b *Block) {
	for z := 0; z < Size; z++ {
		for x := 0; x < Size; x++ {
			c.Fill(x, z, fromY, toY, b)
		}
	}
}

func (c *MemoryChunk) BlockLight(x, y, z int) int {
	if y < 0 || y >= c.height {
		return 0
	}
	return int(c.light[z*Size+x][y])
}

func (c *MemoryChunk) SetBlockLight(x, y, z, l int) {
	c.light[z*Size+x][y] = uint8(l)
}

func (c *MemoryChunk) PrecipitationHeight(x, z int) int {
	col := c.blocks[z*Size+x]
	for y := c.height - 1; y >= 0; y-- {
		if col[y] != nil && !col[y].IsIgnore() {
			return y + 1
		}
	}
	return 0
}

func (c *MemoryChunk) CanSeeSky(x, y, z int) bool {
	if y >= c.height {
		return true
	}
	if y < 0 {
		return false
	}
	col := c.blocks[z*Size+x]
	for yy := c.height - 1; yy >= y; yy-- {
		b := col[yy]
		if b == nil || b.IsIgnore() || b.IsOpenToSky() {
			continue
		}
		return false
	}
	return true
}
