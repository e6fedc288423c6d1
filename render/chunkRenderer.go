package render

import (
	"image/color"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
)

// PixelSink receives rendered pixels. *image.RGBA satisfies it.
type PixelSink interface {
	SetRGBA(x, y int, c color.RGBA)
}

// SurfaceTile is a previously rendered day tile read by cave renders.
// *image.RGBA satisfies it.
type SurfaceTile interface {
	RGBAAt(x, y int) color.RGBA
}

// Targets are the caller-owned outputs of one chunk render. Night is
// only written by surface renders, Surface is only read by cave renders.
type Targets struct {
	Day     PixelSink
	Night   PixelSink
	Surface SurfaceTile
}

type DataNeeds struct {
	Dimension          bool
	NeighborsBordering bool
	NeighborsCorners   bool
}

// ChunkRenderer renders one chunk at a time for a single map type.
// RenderChunk reports whether any visible pixel was produced; it never
// panics.
type ChunkRenderer interface {
	Name() string
	MapType() primitives.MapType
	Needs() DataNeeds
	RenderChunk(c chunk.Chunk, t Targets) bool
}

type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseOptionsSynced
	PhaseSlopesPopulated
	PhaseRendered
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOptionsSynced:
		return "options synced"
	case PhaseSlopesPopulated:
		return "slopes populated"
	case PhaseRendered:
		return "rendered"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}
