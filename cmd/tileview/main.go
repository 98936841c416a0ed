package main

import (
	"flag"
	"fmt"
	"image"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gbbasic/pkg/assets"
)

type Viewer struct {
	sheet  *image.RGBA
	img    *ebiten.Image
	zoom   int
	count  int
	status bool
}

func (v *Viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) && v.zoom < 8 {
		v.zoom++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) && v.zoom > 1 {
		v.zoom--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		v.status = !v.status
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	if v.img == nil {
		v.img = ebiten.NewImageFromImage(v.sheet)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(v.zoom), float64(v.zoom))
	screen.DrawImage(v.img, op)
	if v.status {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("%d tiles  x%d", v.count, v.zoom))
	}
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func main() {
	bundlePath := flag.String("assets", "", "asset bundle")
	setName := flag.String("set", "", "tile set or font to show (default: all)")
	columns := flag.Int("columns", 16, "tiles per row")
	zoom := flag.Int("zoom", 4, "initial zoom")
	pngPath := flag.String("png", "", "write the sheet to a PNG file instead of opening a window")
	flag.Parse()

	if *bundlePath == "" {
		log.Fatalf("Missing -assets")
	}
	bundle, err := assets.Load(*bundlePath)
	if err != nil {
		log.Fatalf("Failed to load assets: %v", err)
	}
	tiles, err := sheetTiles(bundle, *setName)
	if err != nil {
		log.Fatal(err)
	}
	sheet := assets.Sheet(tiles, *columns)

	if *pngPath != "" {
		if err := writePNG(*pngPath, scale(sheet, *zoom)); err != nil {
			log.Fatalf("Failed to write %s: %v", *pngPath, err)
		}
		fmt.Printf("wrote %d tiles -> %s\n", len(tiles), *pngPath)
		return
	}

	b := sheet.Bounds()
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(b.Dx()**zoom, b.Dy()**zoom)
	ebiten.SetWindowTitle("GB BASIC tiles")
	if err := ebiten.RunGame(&Viewer{sheet: sheet, zoom: *zoom, count: len(tiles), status: true}); err != nil {
		log.Fatal(err)
	}
}
