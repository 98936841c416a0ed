package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"gbbasic/pkg/assets"
)

// sheetTiles collects the tiles of one set, or of every set and font when
// name is empty, in cartridge order.
func sheetTiles(b *assets.Bundle, name string) ([]assets.Tile, error) {
	var out []assets.Tile
	for i := range b.TileSets {
		if name == "" || b.TileSets[i].Name == name {
			out = append(out, b.TileSets[i].Tiles()...)
		}
	}
	for i := range b.Fonts {
		if name == "" || b.Fonts[i].Name == name {
			out = append(out, b.Fonts[i].Tiles()...)
		}
	}
	if len(out) == 0 {
		if name != "" {
			return nil, fmt.Errorf("no tile set or font named %q", name)
		}
		return nil, fmt.Errorf("bundle has no tiles")
	}
	return out, nil
}

// scale enlarges src by an integer factor without smoothing.
func scale(src image.Image, factor int) *image.RGBA {
	if factor < 1 {
		factor = 1
	}
	r := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx()*factor, r.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, r, draw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
