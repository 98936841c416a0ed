// Package assets loads the serialized asset bundle (tiles, maps, fonts,
// music, sound effects, actors, scenes) and answers the queries the compiler
// makes about it. A bundle is read-only once loaded.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrBadAsset     = errors.New("invalid asset")
)

// Kind is an asset category.
type Kind int

const (
	KindTiles Kind = iota
	KindMap
	KindFont
	KindMusic
	KindSfx
	KindActor
	KindScene
	kindCount
)

var kindNames = [...]string{
	KindTiles: "tiles",
	KindMap:   "map",
	KindFont:  "font",
	KindMusic: "music",
	KindSfx:   "sfx",
	KindActor: "actor",
	KindScene: "scene",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every category in table order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// TileSet is a sheet of 8x8 tiles given either as rows of shade digits
// ("0".."3") or as a PNG/BMP file next to the bundle.
type TileSet struct {
	Name   string   `yaml:"name"`
	Pixels []string `yaml:"pixels,omitempty"`
	Image  string   `yaml:"image,omitempty"`

	tiles []Tile
}

// Tiles returns the decoded tiles in row-major sheet order.
func (t *TileSet) Tiles() []Tile { return t.tiles }

// Map is a grid of tile indices into one TileSet.
type Map struct {
	Name   string `yaml:"name"`
	Tiles  string `yaml:"tiles"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Cells  []int  `yaml:"cells"`
}

// Font is a tile sheet whose tiles are glyphs starting at First.
type Font struct {
	TileSet `yaml:",inline"`
	First   int `yaml:"first"`
}

// Sound is an opaque music or sound-effect stream.
type Sound struct {
	Name string `yaml:"name"`
	Data []int  `yaml:"data"`
}

// Actor is a sprite-based game object.
type Actor struct {
	Name      string `yaml:"name"`
	Tiles     string `yaml:"tiles"`
	Frames    int    `yaml:"frames"`
	Behaviour string `yaml:"behaviour"`
}

// Trigger is a rectangular region of a scene, in tiles.
type Trigger struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Scene places actors and triggers on a map.
type Scene struct {
	Name     string    `yaml:"name"`
	Map      string    `yaml:"map"`
	Actors   []string  `yaml:"actors"`
	Triggers []Trigger `yaml:"triggers"`
}

// Bundle is the whole asset document.
type Bundle struct {
	TileSets []TileSet `yaml:"tiles"`
	Maps     []Map     `yaml:"maps"`
	Fonts    []Font    `yaml:"fonts"`
	Music    []Sound   `yaml:"music"`
	Sfx      []Sound   `yaml:"sfx"`
	Actors   []Actor   `yaml:"actors"`
	Scenes   []Scene   `yaml:"scenes"`

	dir string
}

// Load reads a YAML or JSON bundle from path. Image files are resolved
// relative to the bundle's directory.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset bundle: %w", err)
	}
	return Decode(data, filepath.Dir(path))
}

// Decode parses a bundle document and validates every cross reference.
func Decode(data []byte, dir string) (*Bundle, error) {
	b := &Bundle{dir: dir}
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAsset, err)
	}
	if err := b.prepare(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) prepare() error {
	for _, kind := range Kinds() {
		seen := make(map[string]bool)
		for _, name := range b.Names(kind) {
			if name == "" {
				return fmt.Errorf("%w: %s without a name", ErrBadAsset, kind)
			}
			if seen[name] {
				return fmt.Errorf("%w: duplicate %s %q", ErrBadAsset, kind, name)
			}
			seen[name] = true
		}
	}

	for i := range b.TileSets {
		if err := b.TileSets[i].decode(b.dir); err != nil {
			return err
		}
	}
	for i := range b.Fonts {
		if err := b.Fonts[i].decode(b.dir); err != nil {
			return err
		}
	}

	for _, m := range b.Maps {
		ts, ok := b.Index(KindTiles, m.Tiles)
		if !ok {
			return fmt.Errorf("%w: map %q uses tiles %q", ErrUnknownAsset, m.Name, m.Tiles)
		}
		if m.Width <= 0 || m.Height <= 0 || m.Width > 255 || m.Height > 255 {
			return fmt.Errorf("%w: map %q has size %dx%d", ErrBadAsset, m.Name, m.Width, m.Height)
		}
		if len(m.Cells) != m.Width*m.Height {
			return fmt.Errorf("%w: map %q has %d cells, want %d", ErrBadAsset, m.Name, len(m.Cells), m.Width*m.Height)
		}
		n := len(b.TileSets[ts].tiles)
		for i, c := range m.Cells {
			if c < 0 || c >= n {
				return fmt.Errorf("%w: map %q cell %d refers to tile %d of %d", ErrBadAsset, m.Name, i, c, n)
			}
		}
	}
	for _, s := range append(append([]Sound(nil), b.Music...), b.Sfx...) {
		for _, v := range s.Data {
			if v < 0 || v > 0xFF {
				return fmt.Errorf("%w: sound %q holds byte %d", ErrBadAsset, s.Name, v)
			}
		}
	}
	for _, a := range b.Actors {
		ts, ok := b.Index(KindTiles, a.Tiles)
		if !ok {
			return fmt.Errorf("%w: actor %q uses tiles %q", ErrUnknownAsset, a.Name, a.Tiles)
		}
		if a.Frames < 1 || a.Frames > len(b.TileSets[ts].tiles) {
			return fmt.Errorf("%w: actor %q has %d frames, tile set has %d tiles", ErrBadAsset, a.Name, a.Frames, len(b.TileSets[ts].tiles))
		}
	}
	for _, s := range b.Scenes {
		if _, ok := b.Index(KindMap, s.Map); !ok {
			return fmt.Errorf("%w: scene %q uses map %q", ErrUnknownAsset, s.Name, s.Map)
		}
		for _, a := range s.Actors {
			if _, ok := b.Index(KindActor, a); !ok {
				return fmt.Errorf("%w: scene %q places actor %q", ErrUnknownAsset, s.Name, a)
			}
		}
	}
	return nil
}

// Count is the number of assets of kind. A nil bundle is empty.
func (b *Bundle) Count(kind Kind) int {
	if b == nil {
		return 0
	}
	switch kind {
	case KindTiles:
		return len(b.TileSets)
	case KindMap:
		return len(b.Maps)
	case KindFont:
		return len(b.Fonts)
	case KindMusic:
		return len(b.Music)
	case KindSfx:
		return len(b.Sfx)
	case KindActor:
		return len(b.Actors)
	case KindScene:
		return len(b.Scenes)
	}
	return 0
}

// Names lists asset names of kind in table order.
func (b *Bundle) Names(kind Kind) []string {
	n := b.Count(kind)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = b.name(kind, i)
	}
	return out
}

func (b *Bundle) name(kind Kind, i int) string {
	switch kind {
	case KindTiles:
		return b.TileSets[i].Name
	case KindMap:
		return b.Maps[i].Name
	case KindFont:
		return b.Fonts[i].Name
	case KindMusic:
		return b.Music[i].Name
	case KindSfx:
		return b.Sfx[i].Name
	case KindActor:
		return b.Actors[i].Name
	case KindScene:
		return b.Scenes[i].Name
	}
	return ""
}

// Index finds the 0-based index of the named asset.
func (b *Bundle) Index(kind Kind, name string) (int, bool) {
	for i, n := range b.Names(kind) {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Has reports whether index i exists for kind.
func (b *Bundle) Has(kind Kind, i int) bool {
	return i >= 0 && i < b.Count(kind)
}
