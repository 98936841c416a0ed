package assets

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/image/bmp"
)

const sampleYAML = `
tiles:
  - name: hero
    pixels:
      - "3000000000000003"
      - "0300000000000030"
      - "0030000000000300"
      - "0003000000003000"
      - "0000300000030000"
      - "0000030000300000"
      - "0000003003000000"
      - "0000000330000000"
maps:
  - name: field
    tiles: hero
    width: 2
    height: 1
    cells: [1, 0]
fonts:
  - name: small
    first: 32
    pixels:
      - "00000000"
      - "00000000"
      - "00000000"
      - "00000000"
      - "00000000"
      - "00000000"
      - "00000000"
      - "11111111"
music:
  - name: theme
    data: [1, 2, 3]
sfx:
  - name: jump
    data: [9]
actors:
  - name: player
    tiles: hero
    frames: 2
    behaviour: player
  - name: slime
    tiles: hero
    frames: 1
    behaviour: enemy
scenes:
  - name: start
    map: field
    actors: [player, slime]
    triggers:
      - {x: 1, y: 2, w: 3, h: 4}
`

func TestDecode(t *testing.T) {
	b, err := Decode([]byte(sampleYAML), ".")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	counts := map[Kind]int{KindTiles: 1, KindMap: 1, KindFont: 1, KindMusic: 1, KindSfx: 1, KindActor: 2, KindScene: 1}
	for kind, want := range counts {
		if got := b.Count(kind); got != want {
			t.Errorf("Count(%s) = %d, want %d", kind, got, want)
		}
	}
	if i, ok := b.Index(KindActor, "slime"); !ok || i != 1 {
		t.Errorf("Index(actor, slime) = %d, %v", i, ok)
	}
	if b.Has(KindScene, 1) || !b.Has(KindScene, 0) {
		t.Error("Has(scene) out of range")
	}
	if got := b.TileCount(0); got != 2 {
		t.Errorf("hero should slice into 2 tiles, got %d", got)
	}

	tile := b.TileSets[0].Tiles()[0]
	if tile.Shade(0, 0) != 3 || tile.Shade(1, 0) != 0 || tile.Shade(7, 7) != 3 {
		t.Errorf("unexpected shades in %v", tile)
	}
	// Row 0 "30000000": pixel 0 has both bits set.
	if tile[0] != 0x80 || tile[1] != 0x80 {
		t.Errorf("row 0 planes = %02X %02X, want 80 80", tile[0], tile[1])
	}

	tests := []struct {
		kind Kind
		i    int
		want []byte
	}{
		{KindMap, 0, []byte{2, 1, 0, 1, 0}},
		{KindMusic, 0, []byte{1, 2, 3}},
		{KindSfx, 0, []byte{9}},
		{KindActor, 1, append([]byte{0, 1, 5}, "enemy"...)},
		{KindScene, 0, []byte{0, 2, 0, 1, 1, 1, 2, 3, 4}},
	}
	for _, tc := range tests {
		got, err := b.Encode(tc.kind, tc.i)
		if err != nil {
			t.Errorf("Encode(%s, %d): %v", tc.kind, tc.i, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Encode(%s, %d) = %v, want %v", tc.kind, tc.i, got, tc.want)
		}
	}

	font, _ := b.Encode(KindFont, 0)
	if len(font) != 2+16 || font[0] != 1 || font[1] != 32 {
		t.Errorf("font header = %v", font[:2])
	}
	if _, err := b.Encode(KindMap, 3); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
	if got := b.SceneActors(0); len(got) != 2 || got[0].Behaviour != "player" {
		t.Errorf("SceneActors = %+v", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"music": [{"name": "a", "data": [0, 255]}], "sfx": []}`
	b, err := Decode([]byte(doc), ".")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b.Count(KindMusic) != 1 || b.Count(KindTiles) != 0 {
		t.Errorf("unexpected counts")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"Syntax", "tiles: [", ErrBadAsset},
		{"MissingTiles", "maps: [{name: m, tiles: none, width: 1, height: 1, cells: [0]}]", ErrUnknownAsset},
		{"Duplicate", "music: [{name: a}, {name: a}]", ErrBadAsset},
		{"Unnamed", "sfx: [{data: [1]}]", ErrBadAsset},
		{"BadShade", `tiles: [{name: t, pixels: ["40000000","0","0","0","0","0","0","0"]}]`, ErrBadAsset},
		{"NotMultipleOf8", `tiles: [{name: t, pixels: ["0000"]}]`, ErrBadAsset},
		{"CellOutOfRange", `
tiles: [{name: t, pixels: ["00000000","00000000","00000000","00000000","00000000","00000000","00000000","00000000"]}]
maps: [{name: m, tiles: t, width: 1, height: 1, cells: [1]}]`, ErrBadAsset},
		{"SceneActor", `
tiles: [{name: t, pixels: ["00000000","00000000","00000000","00000000","00000000","00000000","00000000","00000000"]}]
maps: [{name: m, tiles: t, width: 1, height: 1, cells: [0]}]
scenes: [{name: s, map: m, actors: [ghost]}]`, ErrUnknownAsset},
		{"SoundByte", "music: [{name: a, data: [256]}]", ErrBadAsset},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc), ".")
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func checker() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestImageTiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, encode func(*os.File) error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if err := encode(f); err != nil {
			t.Fatal(err)
		}
	}
	write("sheet.png", func(f *os.File) error { return png.Encode(f, checker()) })
	write("sheet.bmp", func(f *os.File) error { return bmp.Encode(f, checker()) })

	doc := "tiles:\n  - {name: p, image: sheet.png}\n  - {name: b, image: sheet.bmp}\n"
	if err := os.WriteFile(filepath.Join(dir, "bundle.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(filepath.Join(dir, "bundle.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 2; i++ {
		tiles := b.TileSets[i].Tiles()
		if len(tiles) != 2 {
			t.Fatalf("set %d: expected 2 tiles, got %d", i, len(tiles))
		}
		if tiles[0].Shade(3, 3) != 3 || tiles[1].Shade(3, 3) != 0 {
			t.Errorf("set %d: black should map to shade 3 and white to 0", i)
		}
	}
	if !reflect.DeepEqual(b.TileSets[0].Tiles(), b.TileSets[1].Tiles()) {
		t.Error("PNG and BMP of the same sheet should decode identically")
	}
}

func TestSheet(t *testing.T) {
	var tile Tile
	tile.set(2, 5, 2)
	img := Sheet([]Tile{{}, tile}, 1)
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 16 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if got := img.RGBAAt(2, 13); got != Palette[2] {
		t.Errorf("pixel = %v, want %v", got, Palette[2])
	}
	if got := img.RGBAAt(0, 0); got != Palette[0] {
		t.Errorf("background = %v, want %v", got, Palette[0])
	}
}
