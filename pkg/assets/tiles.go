package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// Tile is one 8x8 tile in the handheld's 2 bits per pixel format: for each
// row a low-bit plane byte followed by a high-bit plane byte, leftmost pixel
// in bit 7.
type Tile [16]byte

// Shade returns the 0..3 shade of pixel (x, y).
func (t Tile) Shade(x, y int) uint8 {
	lo := t[y*2] >> (7 - x) & 1
	hi := t[y*2+1] >> (7 - x) & 1
	return lo | hi<<1
}

func (t *Tile) set(x, y int, shade uint8) {
	bit := byte(1) << (7 - x)
	if shade&1 != 0 {
		t[y*2] |= bit
	}
	if shade&2 != 0 {
		t[y*2+1] |= bit
	}
}

// Palette is the classic four-shade display, lightest first.
var Palette = [4]color.RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

func (t *TileSet) decode(dir string) error {
	var shades [][]uint8
	switch {
	case len(t.Pixels) > 0 && t.Image != "":
		return fmt.Errorf("%w: tiles %q has both pixels and image", ErrBadAsset, t.Name)
	case len(t.Pixels) > 0:
		var err error
		if shades, err = parsePixels(t.Pixels); err != nil {
			return fmt.Errorf("%w: tiles %q: %v", ErrBadAsset, t.Name, err)
		}
	case t.Image != "":
		img, err := readImage(filepath.Join(dir, t.Image))
		if err != nil {
			return fmt.Errorf("%w: tiles %q: %v", ErrBadAsset, t.Name, err)
		}
		shades = imageShades(img)
	default:
		return fmt.Errorf("%w: tiles %q has no pixels", ErrBadAsset, t.Name)
	}

	if len(shades) == 0 || len(shades[0]) == 0 {
		return fmt.Errorf("%w: tiles %q is empty", ErrBadAsset, t.Name)
	}
	h := len(shades)
	w := len(shades[0])
	if w%8 != 0 || h%8 != 0 {
		return fmt.Errorf("%w: tiles %q is %dx%d, not a multiple of 8", ErrBadAsset, t.Name, w, h)
	}
	if n := (w / 8) * (h / 8); n > 255 {
		return fmt.Errorf("%w: tiles %q holds %d tiles, at most 255 fit a set", ErrBadAsset, t.Name, n)
	}
	t.tiles = SliceTiles(shades)
	return nil
}

func parsePixels(rows []string) ([][]uint8, error) {
	out := make([][]uint8, len(rows))
	for y, row := range rows {
		row = strings.ReplaceAll(row, " ", "")
		if y > 0 && len(row) != len(out[0]) {
			return nil, fmt.Errorf("row %d has %d pixels, want %d", y, len(row), len(out[0]))
		}
		out[y] = make([]uint8, len(row))
		for x := 0; x < len(row); x++ {
			c := row[x]
			if c < '0' || c > '3' {
				return nil, fmt.Errorf("row %d column %d: shade %q", y, x, c)
			}
			out[y][x] = c - '0'
		}
	}
	if len(out[0]) == 0 {
		return nil, fmt.Errorf("empty pixel rows")
	}
	return out, nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return bmp.Decode(f)
	case ".png":
		return png.Decode(f)
	}
	return nil, fmt.Errorf("unsupported image format %q", filepath.Ext(path))
}

// imageShades quantises an image to four shades by luminance, dark to 3.
func imageShades(img image.Image) [][]uint8 {
	r := img.Bounds()
	out := make([][]uint8, r.Dy())
	for y := 0; y < r.Dy(); y++ {
		out[y] = make([]uint8, r.Dx())
		for x := 0; x < r.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.Gray)
			out[y][x] = 3 - g.Y>>6
		}
	}
	return out
}

// SliceTiles cuts a shade grid into 8x8 tiles, row-major.
func SliceTiles(shades [][]uint8) []Tile {
	rows, cols := len(shades)/8, len(shades[0])/8
	out := make([]Tile, 0, rows*cols)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			var t Tile
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					t.set(x, y, shades[ty*8+y][tx*8+x])
				}
			}
			out = append(out, t)
		}
	}
	return out
}

// Sheet renders tiles into an RGBA image, columns tiles per row.
func Sheet(tiles []Tile, columns int) *image.RGBA {
	if columns <= 0 {
		columns = 16
	}
	rows := (len(tiles) + columns - 1) / columns
	if rows == 0 {
		rows = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, columns*8, rows*8))
	for i, t := range tiles {
		ox, oy := (i%columns)*8, (i/columns)*8
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetRGBA(ox+x, oy+y, Palette[t.Shade(x, y)])
			}
		}
	}
	return img
}
