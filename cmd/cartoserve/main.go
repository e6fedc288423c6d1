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
	"context"
	"flag"
	"image/color"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/maxsupermanhd/WebChunkCarto/chunk"
	"github.com/maxsupermanhd/WebChunkCarto/chunk/goMcChunk"
	imagecache "github.com/maxsupermanhd/WebChunkCarto/imageCache"
	"github.com/maxsupermanhd/WebChunkCarto/primitives"
	"github.com/maxsupermanhd/WebChunkCarto/render"
	"github.com/maxsupermanhd/WebChunkCarto/render/dispatchers"
	"github.com/maxsupermanhd/WebChunkCarto/render/renderers"
	"github.com/maxsupermanhd/lac"
	"github.com/natefinch/lumberjack"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BuildTime  = "00000000.000000"
	CommitHash = "0000000"
	GoVersion  = "0.0"
	GitTag     = "0.0"
)

var (
	exportPath  = flag.String("export", "", "render one tile into this png file and exit")
	exportType  = flag.String("type", "surface", "tile type for -export (surface, night, topo, caveN)")
	exportScale = flag.Int("s", 0, "tile zoom for -export")
	exportX     = flag.Int("x", 0, "tile x for -export")
	exportZ     = flag.Int("z", 0, "tile z for -export")
)

// world is a loaded chunk provider that can list its chunks.
type world interface {
	chunk.Provider
	Positions() []chunk.Pos
}

type server struct {
	cfgPath  string
	dim      renderers.Dimension
	world    world
	src      *render.VersionedConfig
	rend     *dispatchers.PriorityPipelineRender
	images   *imagecache.ImageCache
	maptypes []primitives.MapType
	l        *slog.Logger
	started  time.Time
}

// serverConfig holds the config subtrees and paths a server is built from.
// Nil subtrees mean defaults.
type serverConfig struct {
	renderers  *lac.ConfSubtree
	dispatcher *lac.ConfSubtree
	cache      *lac.ConfSubtree
	cacheRoot  string
	cfgPath    string
}

// newServer starts the image cache on cacheCtx, it outlives the
// dispatcher so late results still get stored.
func newServer(cacheCtx context.Context, sc serverConfig, dim renderers.Dimension, w world, src *render.VersionedConfig, reg prometheus.Registerer, l *slog.Logger) (*server, error) {
	s := &server{
		cfgPath: sc.cfgPath,
		dim:     dim,
		world:   w,
		src:     src,
		images:  imagecache.NewImageCache(cacheCtx, sc.cacheRoot, sc.cache, l),
		l:       l,
		started: time.Now(),
	}
	factory := func() []render.ChunkRenderer {
		return renderers.ConstructRenderers(sc.renderers, dim, w, src, l)
	}
	for _, rd := range factory() {
		s.maptypes = append(s.maptypes, rd.MapType())
	}
	metrics := dispatchers.NewMetrics("carto")
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}
	s.rend = dispatchers.NewPriorityRenderer(sc.dispatcher, w, factory, func(r dispatchers.Result) {
		storeResult(s.images, r)
	}, metrics, l)
	return s, nil
}

func (s *server) queueAll(ctx context.Context) {
	positions := s.world.Positions()
	s.l.Info("queueing chunks for render", "count", len(positions))
	for _, p := range positions {
		if ctx.Err() != nil {
			return
		}
		s.rend.AddToRenderQueue(p)
	}
}

func (s *server) reloadOptions() error {
	cfg, err := lac.FromFileJSON(s.cfgPath)
	if err != nil {
		return err
	}
	o, err := render.OptionsFromConf(cfg.SubTree("render"))
	if err != nil {
		return err
	}
	s.src.Update(o)
	s.l.Info("render options reloaded", "version", s.src.LastModified())
	return nil
}

func (s *server) watchConfig(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.l.Error("failed to create config watcher", "err", err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(s.cfgPath); err != nil {
		s.l.Error("failed to watch config", "path", s.cfgPath, "err", err)
		return
	}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				if err := s.reloadOptions(); err != nil {
					s.l.Warn("config reload failed, keeping previous options", "err", err)
					continue
				}
				go s.queueAll(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.l.Warn("config watcher error", "err", err)
		case <-ctx.Done():
			s.l.Info("config watcher stopped")
			return
		}
	}
}

func createLogger(cfg *lac.Conf) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename: cfg.GetDSString("./logs/cartoserve.log", "logs_path"),
		MaxSize:  10,
		Compress: true,
	}
}

func logLevel(cfg *lac.Conf) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.GetDSString("INFO", "log_level"))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func loadWorld(cfg *lac.Conf, dim renderers.Dimension, l *slog.Logger) (world, error) {
	switch cfg.GetDSString("generated", "world", "source") {
	case "save":
		var colors []color.RGBA64
		if p := cfg.GetDSString("", "world", "blockColorsPath"); p != "" {
			var err error
			colors, err = goMcChunk.LoadColors(p)
			if err != nil {
				return nil, err
			}
		}
		w := goMcChunk.NewWorld(cfg.GetDSString(".", "world", "path"), dim.Name, goMcChunk.NewBlockSet(colors), l)
		n, err := w.LoadAll()
		if err != nil {
			l.Warn("some chunks failed to load", "err", err)
		}
		l.Info("save loaded", "chunks", n)
		return w, nil
	default:
		m := chunk.NewMemory(cfg.GetDSInt(256, "world", "height"))
		n := generateWorld(m, cfg.GetDSInt(8, "world", "radius"), int64(cfg.GetDSInt(1, "world", "seed")))
		l.Info("world generated", "chunks", n)
		return m, nil
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if buildinfo, ok := debug.ReadBuildInfo(); ok {
		GoVersion = buildinfo.GoVersion
	}
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}
	cfgPath := os.Getenv("CARTO_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.json"
	}
	cfg, err := lac.FromFileJSON(cfgPath)
	if err != nil {
		log.Fatal("Error loading config file: " + err.Error())
	}
	logWriter := io.MultiWriter(createLogger(cfg), os.Stdout)
	log.SetOutput(logWriter)
	l := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: logLevel(cfg)}))
	slog.SetDefault(l)
	log.Println()
	log.Println("WebChunkCarto is starting up...")
	log.Printf("Built %s, Ver %s (%s) %s\n", BuildTime, GitTag, CommitHash, GoVersion)
	log.Println()

	opts, err := render.OptionsFromConf(cfg.SubTree("render"))
	if err != nil {
		log.Fatal("Invalid render options: " + err.Error())
	}
	src := render.NewVersionedConfig(opts)
	dimName := cfg.GetDSString("overworld", "world", "dimension")
	dim, ok := renderers.DimensionByName(dimName)
	if !ok {
		log.Fatalf("Unknown dimension %q", dimName)
	}
	w, err := loadWorld(cfg, dim, l)
	if err != nil {
		log.Fatal("Failed to load world: " + err.Error())
	}

	if *exportPath != "" {
		loc := primitives.ImageLocation{Dimension: dim.Name, Variant: *exportType, S: *exportScale, X: *exportX, Z: *exportZ}
		if err := exportTile(*exportPath, loc, cfg.SubTree("renderers"), dim, w, src, l); err != nil {
			log.Fatal("Export failed: " + err.Error())
		}
		log.Println("Tile written to", *exportPath)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cacheCtx, cacheCancel := context.WithCancel(context.Background())
	defer cacheCancel()
	s, err := newServer(cacheCtx, serverConfig{
		renderers:  cfg.SubTree("renderers"),
		dispatcher: cfg.SubTree("dispatcher"),
		cache:      cfg.SubTree("imageCache"),
		cacheRoot:  cfg.GetDSString("cachedImages", "imageCache", "root"),
		cfgPath:    cfgPath,
	}, dim, w, src, prometheus.DefaultRegisterer, l)
	if err != nil {
		log.Fatal("Failed to set up renderer: " + err.Error())
	}
	if cfg.GetDSBool(true, "config_reload") {
		go s.watchConfig(ctx)
	}
	go s.queueAll(ctx)
	runWeb(ctx, cancel, cfg.GetDSString("0.0.0.0:3003", "web", "listen_addr"), s, logWriter)
	log.Println("Stopping renderers")
	s.rend.Close()
	log.Println("Saving image cache")
	cacheCancel()
	s.images.WaitExit()
	log.Println("bye")
}
