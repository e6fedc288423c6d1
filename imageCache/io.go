package imagecache

import (
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/maxsupermanhd/WebChunkCarto/primitives"
)

type cacheTaskIO struct {
	loc primitives.ImageLocation
	img *CachedImage
	err error
}

func (c *ImageCache) processorIO(in <-chan *cacheTaskIO, out chan<- *cacheTaskIO) {
	for task := range in {
		task.img, task.err = c.cacheLoad(task.loc)
		out <- task
	}
}

func (c *ImageCache) processSave() {
	for k, v := range c.cache {
		if v.SyncedToDisk || v.imageUnloaded || v.Img == nil {
			continue
		}
		err := c.cacheSave(v.Img, k)
		if err != nil {
			c.logger.Error("failed to save cached image", "loc", k.String(), "path", c.cacheGetFilenameLoc(k), "err", err)
			continue
		}
		v.SyncedToDisk = true
		c.cacheStatUncommited.Add(-1)
	}
}

func (c *ImageCache) cacheGetFilename(world, dim, variant string, s, x, z int) string {
	if world == "" {
		world = "default"
	}
	return filepath.Join(c.root, world, dim, variant, strconv.FormatInt(int64(s), 10), strconv.FormatInt(int64(x), 10)+"x"+strconv.FormatInt(int64(z), 10)+".png")
}

func (c *ImageCache) cacheGetFilenameLoc(loc primitives.ImageLocation) string {
	return c.cacheGetFilename(loc.World, loc.Dimension, loc.Variant, loc.S, loc.X, loc.Z)
}

// cacheSave writes next to the target and renames so readers never see
// a half written png.
func (c *ImageCache) cacheSave(img *image.RGBA, loc primitives.ImageLocation) error {
	storePath := c.cacheGetFilenameLoc(loc)
	err := os.MkdirAll(filepath.Dir(storePath), 0764)
	if err != nil {
		return err
	}
	file, err := os.CreateTemp(filepath.Dir(storePath), "tmp-*.png")
	if err != nil {
		return err
	}
	err = png.Encode(file, img)
	if err != nil {
		file.Close()
		os.Remove(file.Name())
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(file.Name())
		return err
	}
	return os.Rename(file.Name(), storePath)
}

func (c *ImageCache) cacheLoad(loc primitives.ImageLocation) (*CachedImage, error) {
	fp := c.cacheGetFilenameLoc(loc)
	f, err := os.Open(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return &CachedImage{
				Loc:          loc,
				SyncedToDisk: true,
				lastUse:      time.Now(),
			}, nil
		}
		return nil, err
	}
	defer f.Close()
	ii, err := png.Decode(f)
	if err != nil {
		os.Remove(fp)
		return nil, err
	}
	ret := &CachedImage{
		Loc:          loc,
		SyncedToDisk: true,
		lastUse:      time.Now(),
		ModTime:      c.getModTimeFp(fp),
	}
	if iirgba, ok := ii.(*image.RGBA); ok && iirgba.Rect.Min == (image.Point{}) {
		ret.Img = iirgba
		return ret, nil
	}
	b := ii.Bounds()
	ret.Img = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(ret.Img, ret.Img.Bounds(), ii, b.Min, draw.Src)
	return ret, nil
}

func (c *ImageCache) getModTimeLoc(loc primitives.ImageLocation) time.Time {
	return c.getModTimeFp(c.cacheGetFilenameLoc(loc))
}

func (c *ImageCache) getModTimeFp(fp string) time.Time {
	info, err := os.Stat(fp)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
