package imagecache

import (
	"context"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/lac"
)

var (
	powarr   = []int{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096}
	powarr16 = []int{1 * 16, 2 * 16, 4 * 16, 8 * 16, 16 * 16, 32 * 16, 64 * 16, 128 * 16, 256 * 16, 512 * 16, 1024 * 16, 2048 * 16, 4096 * 16}
)

const (
	StorageLevel           = int(5)
	DefaultTaskQueueLen    = int(256)
	DefaultIOProcessors    = int(4)
	DefaultIOTasksQueueLen = int(256)
	DefaultEvictAfter      = int(300)
)

// AT is the storage level image holding chunk cx:cz.
func AT(cx, cz int) (int, int) {
	return cx >> StorageLevel, cz >> StorageLevel
}

// IN is the chunk offset inside its storage level image.
func IN(cx, cz int) (int, int) {
	return cx & 31, cz & 31
}

type CachedImage struct {
	Img           *image.RGBA
	Loc           primitives.ImageLocation
	SyncedToDisk  bool
	ModTime       time.Time
	lastUse       time.Time
	imageUnloaded bool
}

type cacheTask struct {
	loc primitives.ImageLocation
	img *image.RGBA
	ret chan *CachedImage
}

// ImageCache keeps storage level images in memory and on disk. Chunk
// images are drawn into them, smaller zoom levels are cut out of them.
// All state is owned by one processor goroutine.
type ImageCache struct {
	ctx                 context.Context
	logger              *slog.Logger
	cfg                 *lac.ConfSubtree
	root                string
	tasks               chan *cacheTask
	ioTasks             chan *cacheTaskIO
	ioReturn            chan *cacheTaskIO
	cache               map[primitives.ImageLocation]*CachedImage
	cacheReturn         map[primitives.ImageLocation][]*cacheTask
	loading             map[primitives.ImageLocation]bool
	loadQueue           []*cacheTaskIO
	wg                  sync.WaitGroup
	done                chan struct{}
	cacheStatLen        atomic.Int64
	cacheStatUncommited atomic.Int64
}

// NewImageCache stores images under root. The cache runs until ctx is
// cancelled, see WaitExit.
func NewImageCache(ctx context.Context, root string, cfg *lac.ConfSubtree, logger *slog.Logger) *ImageCache {
	if logger == nil {
		logger = slog.Default()
	}
	taskQueueLen := gtzero(logger, cfg, DefaultTaskQueueLen, "taskQueueLen")
	ioQueueLen := gtzero(logger, cfg, DefaultIOTasksQueueLen, "ioQueueLen")
	ioProcessors := gtzero(logger, cfg, DefaultIOProcessors, "ioProcessors")
	c := &ImageCache{
		ctx:         ctx,
		logger:      logger,
		cfg:         cfg,
		root:        root,
		tasks:       make(chan *cacheTask, taskQueueLen),
		ioTasks:     make(chan *cacheTaskIO, ioQueueLen),
		ioReturn:    make(chan *cacheTaskIO, ioQueueLen),
		cache:       map[primitives.ImageLocation]*CachedImage{},
		cacheReturn: map[primitives.ImageLocation][]*cacheTask{},
		loading:     map[primitives.ImageLocation]bool{},
		done:        make(chan struct{}),
	}
	c.wg.Add(ioProcessors)
	for i := 0; i < ioProcessors; i++ {
		go func() {
			c.processorIO(c.ioTasks, c.ioReturn)
			c.wg.Done()
		}()
	}
	go c.processor()
	return c
}

// WaitExit blocks until the cache saved everything after its context
// was cancelled.
func (c *ImageCache) WaitExit() {
	<-c.done
}

func (c *ImageCache) processor() {
	autosaveTimer := time.NewTicker(time.Duration(gtzero(c.logger, c.cfg, 15, "autosaveInterval")) * time.Second)
	defer autosaveTimer.Stop()
	evictAfter := time.Duration(gtzero(c.logger, c.cfg, DefaultEvictAfter, "evictAfter")) * time.Second

processorLoop:
	for {
		var sendq chan<- *cacheTaskIO
		var next *cacheTaskIO
		if len(c.loadQueue) > 0 {
			sendq = c.ioTasks
			next = c.loadQueue[0]
		}
		select {
		case <-c.ctx.Done():
			break processorLoop
		case task := <-c.tasks:
			c.processTask(task)
		case sendq <- next:
			c.loadQueue = c.loadQueue[1:]
		case ret := <-c.ioReturn:
			c.processReturn(ret)
		case <-autosaveTimer.C:
			c.processSave()
			c.processEvict(evictAfter)
		}
	}

	close(c.ioTasks)
	go func() {
		c.wg.Wait()
		close(c.ioReturn)
	}()
	for ret := range c.ioReturn {
		c.mergeReturn(ret)
	}
	for _, task := range c.loadQueue {
		task.img, task.err = c.cacheLoad(task.loc)
		c.mergeReturn(task)
	}
	c.loadQueue = nil
	c.processSave()
	close(c.done)
}

func (c *ImageCache) processTask(task *cacheTask) {
	if task.img == nil {
		c.processImageGet(task)
	} else {
		c.processImageSet(task)
	}
}

func (c *ImageCache) processImageGet(task *cacheTask) {
	if task.loc.S < 0 || task.loc.S > StorageLevel {
		c.logger.Debug("requested larger than storage level get", "loc", task.loc.String())
		task.ret <- &CachedImage{Loc: task.loc}
		return
	}
	loc := getStorageLevelLoc(task.loc)
	l, ok := c.cache[loc]
	if ok && !l.imageUnloaded {
		l.lastUse = time.Now()
		if task.loc.S == StorageLevel {
			task.ret <- copyCachedImage(l)
		} else {
			task.ret <- copySmallerCachedImage(l, task.loc)
		}
		return
	}
	c.cacheReturn[loc] = append(c.cacheReturn[loc], task)
	c.scheduleLoad(loc)
}

func (c *ImageCache) scheduleLoad(loc primitives.ImageLocation) {
	if c.loading[loc] {
		return
	}
	c.loading[loc] = true
	c.loadQueue = append(c.loadQueue, &cacheTaskIO{loc: loc})
}

func getStorageLevelLoc(loc primitives.ImageLocation) primitives.ImageLocation {
	rx, rz := AT(loc.X*powarr[loc.S], loc.Z*powarr[loc.S])
	return primitives.ImageLocation{
		World:     loc.World,
		Dimension: loc.Dimension,
		Variant:   loc.Variant,
		S:         StorageLevel,
		X:         rx,
		Z:         rz,
	}
}

func copySmallerCachedImage(img *CachedImage, target primitives.ImageLocation) *CachedImage {
	return &CachedImage{
		Img:          copyFragmentRGBA(img.Img, target),
		Loc:          target,
		SyncedToDisk: img.SyncedToDisk,
		ModTime:      img.ModTime,
	}
}

func copyFragmentRGBA(from *image.RGBA, target primitives.ImageLocation) *image.RGBA {
	if from == nil {
		return nil
	}
	ax, az := IN(target.X*powarr[target.S], target.Z*powarr[target.S])
	to := image.NewRGBA(image.Rect(0, 0, powarr16[target.S], powarr16[target.S]))
	draw.Draw(to, to.Rect, from, image.Point{X: ax * 16, Y: az * 16}, draw.Src)
	return to
}

func copyCachedImage(img *CachedImage) *CachedImage {
	return &CachedImage{
		Img:          copyRGBA(img.Img),
		Loc:          img.Loc,
		SyncedToDisk: img.SyncedToDisk,
		ModTime:      img.ModTime,
	}
}

func copyRGBA(from *image.RGBA) *image.RGBA {
	if from == nil {
		return nil
	}
	to := image.NewRGBA(image.Rect(0, 0, from.Rect.Dx(), from.Rect.Dy()))
	draw.Draw(to, to.Rect, from, from.Rect.Min, draw.Src)
	return to
}

func (c *ImageCache) processImageSet(task *cacheTask) {
	if task.loc.S != 0 && task.loc.S != StorageLevel {
		c.logger.Warn("set of non-native and non-zero scaled image", "loc", task.loc.String())
		return
	}
	loc := getStorageLevelLoc(task.loc)
	t, ok := c.cache[loc]
	if !ok {
		t = &CachedImage{
			Loc:           loc,
			imageUnloaded: true,
		}
		c.cache[loc] = t
		c.cacheStatLen.Add(1)
		c.scheduleLoad(loc)
	}
	if t.Img == nil {
		t.Img = image.NewRGBA(image.Rect(0, 0, powarr16[StorageLevel], powarr16[StorageLevel]))
	}
	if task.loc.S == 0 {
		rx, rz := IN(task.loc.X, task.loc.Z)
		r := image.Rect(rx*16, rz*16, rx*16+16, rz*16+16)
		draw.Draw(t.Img, r, task.img, task.img.Rect.Min, draw.Src)
	} else {
		draw.Draw(t.Img, t.Img.Rect, task.img, task.img.Rect.Min, draw.Src)
	}
	t.lastUse = time.Now()
	t.ModTime = t.lastUse
	if t.SyncedToDisk || !ok {
		c.cacheStatUncommited.Add(1)
	}
	t.SyncedToDisk = false
}

func (c *ImageCache) processReturn(task *cacheTaskIO) {
	if !c.mergeReturn(task) {
		task.img.lastUse = time.Now()
		c.cache[task.loc] = task.img
		c.cacheStatLen.Add(1)
	}
	ret := c.cacheReturn[task.loc]
	delete(c.cacheReturn, task.loc)
	for _, v := range ret {
		c.processTask(v)
	}
}

// mergeReturn reports whether the loaded location already had an entry.
func (c *ImageCache) mergeReturn(task *cacheTaskIO) bool {
	delete(c.loading, task.loc)
	if task.err != nil {
		c.logger.Warn("error reading cached image", "loc", task.loc.String(), "err", task.err)
		task.img = &CachedImage{Loc: task.loc, SyncedToDisk: true}
	}
	t, ok := c.cache[task.loc]
	if ok {
		c.processCacheLoad(t, task)
	}
	return ok
}

// processCacheLoad puts what was drawn while the disk read was in flight
// on top of the image read from disk.
func (c *ImageCache) processCacheLoad(t *CachedImage, task *cacheTaskIO) {
	if !t.imageUnloaded {
		return
	}
	t.imageUnloaded = false
	if task.img.Img == nil {
		return
	}
	if t.Img != nil {
		draw.Draw(task.img.Img, task.img.Img.Bounds(), t.Img, image.Point{}, draw.Over)
	}
	t.Img = task.img.Img
}

func (c *ImageCache) processEvict(after time.Duration) {
	for k, v := range c.cache {
		if !v.SyncedToDisk || v.imageUnloaded || len(c.cacheReturn[k]) > 0 {
			continue
		}
		if time.Since(v.lastUse) > after {
			delete(c.cache, k)
			c.cacheStatLen.Add(-1)
		}
	}
}

// SetCachedImage stores a chunk (S 0) or storage level image.
func (c *ImageCache) SetCachedImage(loc primitives.ImageLocation, img *image.RGBA) {
	select {
	case c.tasks <- &cacheTask{loc: loc, img: img}:
	case <-c.ctx.Done():
	}
}

// GetCachedImageBlocking returns nil once the cache is shut down.
func (c *ImageCache) GetCachedImageBlocking(loc primitives.ImageLocation) *CachedImage {
	ret := make(chan *CachedImage, 1)
	select {
	case c.tasks <- &cacheTask{loc: loc, ret: ret}:
	case <-c.ctx.Done():
		return nil
	}
	select {
	case r := <-ret:
		return r
	case <-c.ctx.Done():
		return nil
	}
}

func (c *ImageCache) GetCachedImageModTime(loc primitives.ImageLocation) time.Time {
	if loc.S < 0 || loc.S > StorageLevel {
		return time.Time{}
	}
	return c.getModTimeLoc(getStorageLevelLoc(loc))
}

func (c *ImageCache) GetStats() map[string]any {
	return map[string]any{
		"root":                c.root,
		"io queue capacity":   cap(c.ioTasks),
		"io queue length":     len(c.ioTasks),
		"task queue capacity": cap(c.tasks),
		"task queue length":   len(c.tasks),
		"cached images":       c.cacheStatLen.Load(),
		"unwritten images":    c.cacheStatUncommited.Load(),
	}
}

func gtzero(l *slog.Logger, c *lac.ConfSubtree, d int, p ...string) int {
	if c == nil {
		return d
	}
	v := c.GetDSInt(d, p...)
	if v > 0 {
		return v
	}
	l.Warn("non-positive cache setting, using default", "key", p, "default", d)
	return d
}
