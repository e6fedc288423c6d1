package dispatchers

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/lac"
)

type chunkLock struct {
	sync.Mutex
	refs int
}

type renderTask struct {
	pos chunk.Pos
	c   chunk.Chunk
}

// Result is one rendered chunk image for one map type. Night is only set
// for surface map types.
type Result struct {
	Pos     chunk.Pos
	MapType primitives.MapType
	Day     *image.RGBA
	Night   *image.RGBA
	OK      bool
}

// RendererFactory builds a fresh renderer set. Every render worker owns
// one set so renderers never wait on each other.
type RendererFactory func() []render.ChunkRenderer

type PriorityPipelineRender struct {
	qnormal   chan renderTask
	qpriority chan renderTask
	qfetched  chan renderTask
	provider  chunk.Provider
	factory   RendererFactory
	surfaces  *SurfaceStore
	onResult  func(Result)
	metrics   *Metrics
	chunkMu   map[chunk.Pos]*chunkLock
	chunkMuL  sync.Mutex
	wg        sync.WaitGroup
	l         *slog.Logger
	closeFn   func()
}

func NewPriorityRenderer(cfg *lac.ConfSubtree, p chunk.Provider, factory RendererFactory, onResult func(Result), m *Metrics, l *slog.Logger) *PriorityPipelineRender {
	if l == nil {
		l = slog.Default()
	}
	if m == nil {
		m = NewMetrics("carto")
	}
	if onResult == nil {
		onResult = func(Result) {}
	}
	closeChan := make(chan struct{})
	r := &PriorityPipelineRender{
		qnormal:   make(chan renderTask, confInt(cfg, 64, "queueNormalLen")),
		qpriority: make(chan renderTask, confInt(cfg, 128, "queuePriorityLen")),
		qfetched:  make(chan renderTask, confInt(cfg, 32, "queueFetchedLen")),
		provider:  p,
		factory:   factory,
		surfaces:  NewSurfaceStore(),
		chunkMu:   map[chunk.Pos]*chunkLock{},
		onResult:  onResult,
		metrics:   m,
		wg:        sync.WaitGroup{},
		l:         l,
		closeFn: sync.OnceFunc(func() {
			close(closeChan)
		}),
	}
	rendererThreadCount := confInt(cfg, 4, "rendererThreadCount")
	r.wg.Add(rendererThreadCount)
	for i := 0; i < rendererThreadCount; i++ {
		go func() {
			r.workerRender(closeChan, r.factory())
			r.wg.Done()
		}()
	}
	fetcherThreadCount := confInt(cfg, 4, "fetcherThreadCount")
	r.wg.Add(fetcherThreadCount)
	for i := 0; i < fetcherThreadCount; i++ {
		go func() {
			r.workerFetch(closeChan)
			r.wg.Done()
		}()
	}
	return r
}

func confInt(cfg *lac.ConfSubtree, d int, path ...string) int {
	if cfg == nil {
		return d
	}
	return cfg.GetDInt(d, path...)
}

// Surfaces is the store of rendered day surface tiles read by cave
// overlays.
func (r *PriorityPipelineRender) Surfaces() *SurfaceStore {
	return r.surfaces
}

func (r *PriorityPipelineRender) workerRender(close <-chan struct{}, rends []render.ChunkRenderer) {
	for {
		select {
		case <-close:
			return
		case w := <-r.qfetched:
			r.observeQueues()
			r.render(w, rends)
		}
	}
}

func (r *PriorityPipelineRender) workerFetch(close <-chan struct{}) {
	for {
		select {
		case <-close:
			return
		case w := <-r.qpriority:
			if r.fetch(&w) {
				select {
				case <-close:
					return
				case r.qfetched <- w:
				}
			}
			continue
		default:
		}
		select {
		case <-close:
			return
		case w := <-r.qpriority:
			if r.fetch(&w) {
				select {
				case <-close:
					return
				case r.qfetched <- w:
				}
			}
		case w := <-r.qnormal:
			if r.fetch(&w) {
				select {
				case <-close:
					return
				case r.qfetched <- w:
				}
			}
		}
	}
}

func (r *PriorityPipelineRender) fetch(work *renderTask) bool {
	r.observeQueues()
	if work.c != nil {
		return true
	}
	work.c = r.provider.Chunk(work.pos)
	if work.c == nil {
		r.metrics.missing.Inc()
		r.Forget(work.pos)
		r.l.Debug("chunk not loaded, dropping render", "chunk", work.pos)
		return false
	}
	return true
}

func (r *PriorityPipelineRender) render(work renderTask, rends []render.ChunkRenderer) {
	if work.c == nil {
		r.l.Error("render without data", "chunk", work.pos)
		return
	}
	defer r.lockChunk(work.pos)()
	for _, rd := range rends {
		mt := rd.MapType()
		res := Result{
			Pos:     work.pos,
			MapType: mt,
			Day:     image.NewRGBA(image.Rect(0, 0, chunk.Size, chunk.Size)),
		}
		t := render.Targets{Day: res.Day}
		switch mt.Mode {
		case primitives.ModeSurface:
			res.Night = image.NewRGBA(image.Rect(0, 0, chunk.Size, chunk.Size))
			t.Night = res.Night
		case primitives.ModeUnderground:
			if s := r.surfaces.Get(mt.Dimension, work.pos); s != nil {
				t.Surface = s
			}
		}
		start := time.Now()
		res.OK = rd.RenderChunk(work.c, t)
		r.metrics.duration.WithLabelValues(mt.String()).Observe(time.Since(start).Seconds())
		result := "empty"
		if res.OK {
			result = "ok"
		}
		r.metrics.rendered.WithLabelValues(mt.String(), result).Inc()
		if mt.Mode == primitives.ModeSurface && res.OK {
			r.surfaces.Put(mt.Dimension, work.pos, res.Day)
		}
		r.onResult(res)
	}
}

// lockChunk keeps a chunk's column cache to one writer at a time. The
// lock entry lives only while someone holds or waits for it.
func (r *PriorityPipelineRender) lockChunk(pos chunk.Pos) func() {
	r.chunkMuL.Lock()
	m, ok := r.chunkMu[pos]
	if !ok {
		m = &chunkLock{}
		r.chunkMu[pos] = m
	}
	m.refs++
	r.chunkMuL.Unlock()
	m.Lock()
	return func() {
		m.Unlock()
		r.chunkMuL.Lock()
		m.refs--
		if m.refs == 0 {
			delete(r.chunkMu, pos)
		}
		r.chunkMuL.Unlock()
	}
}

func (r *PriorityPipelineRender) lockedChunks() int {
	r.chunkMuL.Lock()
	defer r.chunkMuL.Unlock()
	return len(r.chunkMu)
}

// Forget drops everything kept for a chunk that left the provider.
func (r *PriorityPipelineRender) Forget(pos chunk.Pos) {
	r.surfaces.ForgetChunk(pos)
}

func (r *PriorityPipelineRender) observeQueues() {
	r.metrics.queued.WithLabelValues("normal").Set(float64(len(r.qnormal)))
	r.metrics.queued.WithLabelValues("priority").Set(float64(len(r.qpriority)))
	r.metrics.queued.WithLabelValues("fetched").Set(float64(len(r.qfetched)))
}

// stops and waits
func (r *PriorityPipelineRender) Close() {
	r.closeFn()
	r.wg.Wait()
}

func (r *PriorityPipelineRender) AddToRenderQueue(pos chunk.Pos) {
	r.qnormal <- renderTask{
		pos: pos,
		c:   nil,
	}
}

func (r *PriorityPipelineRender) AddToPriorityRenderQueue(pos chunk.Pos) {
	r.qpriority <- renderTask{
		pos: pos,
		c:   nil,
	}
}

// TryAddToPriorityRenderQueue never blocks, it reports false when the
// queue is full.
func (r *PriorityPipelineRender) TryAddToPriorityRenderQueue(pos chunk.Pos) bool {
	select {
	case r.qpriority <- renderTask{pos: pos}:
		return true
	default:
		return false
	}
}

func (r *PriorityPipelineRender) AddToRenderQueueWithData(c chunk.Chunk) {
	r.qfetched <- renderTask{
		pos: c.Pos(),
		c:   c,
	}
}
