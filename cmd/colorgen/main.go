// colorgen averages block textures of a game jar into the palette colour
// file read by the save world loader.
package main

import (
	"archive/zip"
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"math"
	"os"

	"github.com/Tnze/go-mc/level/block"
	"github.com/maxsupermanhd/WebChunkCarto/chunk/goMcChunk"
)

var (
	JARpath     = flag.String("jar", "~/.minecraft/versions/1.19.4/1.19.4.jar", "path to jar")
	outPath     = flag.String("out", "colors.gob", "palette colour file to write")
	previewPath = flag.String("preview", "res.png", "write a png with one pixel per state, empty to skip")
)

func must(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

func preview(colors []color.RGBA64) *image.RGBA {
	size := int(math.Ceil(math.Sqrt(float64(len(colors)))))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i, v := range colors {
		img.Set(i%size, i/size, v)
	}
	return img
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	log.Printf("Opening jar [%s]", *JARpath)
	r, err := zip.OpenReader(*JARpath)
	must(err)
	defer r.Close()
	j := openJar(&r.Reader)
	log.Printf("Mapped %d filenames", len(j))

	colors, matched := stateColors(j)
	log.Printf("Colors matched %v/%v", matched, len(block.StateList))

	b, err := goMcChunk.EncodeColors(colors)
	must(err)
	must(os.WriteFile(*outPath, b, 0644))
	if *previewPath != "" {
		must(writeFile(*previewPath, func(f *os.File) error {
			return png.Encode(f, preview(colors))
		}))
	}
	log.Printf("Written %s", *outPath)
}
