package assets

import "fmt"

// Encode serialises asset i of kind in the layout the kernel reads.
//
//	tiles, font  count, first glyph (fonts only), 16 bytes per tile
//	map          width, height, tile set, cells
//	music, sfx   raw stream
//	actor        tile set, frames, behaviour length, behaviour text
//	scene        map, actor count, actors, trigger count, x y w h per trigger
func (b *Bundle) Encode(kind Kind, i int) ([]byte, error) {
	if !b.Has(kind, i) {
		return nil, fmt.Errorf("%w: %s #%d", ErrUnknownAsset, kind, i)
	}
	switch kind {
	case KindTiles:
		return encodeTiles(nil, b.TileSets[i].tiles), nil
	case KindFont:
		f := b.Fonts[i]
		return encodeTiles([]byte{byte(f.First)}, f.tiles), nil
	case KindMap:
		m := b.Maps[i]
		ts, _ := b.Index(KindTiles, m.Tiles)
		out := []byte{byte(m.Width), byte(m.Height), byte(ts)}
		for _, c := range m.Cells {
			out = append(out, byte(c))
		}
		return out, nil
	case KindMusic:
		return bytesOf(b.Music[i].Data), nil
	case KindSfx:
		return bytesOf(b.Sfx[i].Data), nil
	case KindActor:
		a := b.Actors[i]
		ts, _ := b.Index(KindTiles, a.Tiles)
		if len(a.Behaviour) > 0xFF {
			return nil, fmt.Errorf("%w: actor %q behaviour is too long", ErrBadAsset, a.Name)
		}
		out := []byte{byte(ts), byte(a.Frames), byte(len(a.Behaviour))}
		return append(out, a.Behaviour...), nil
	case KindScene:
		s := b.Scenes[i]
		m, _ := b.Index(KindMap, s.Map)
		out := []byte{byte(m), byte(len(s.Actors))}
		for _, name := range s.Actors {
			a, _ := b.Index(KindActor, name)
			out = append(out, byte(a))
		}
		out = append(out, byte(len(s.Triggers)))
		for _, t := range s.Triggers {
			out = append(out, byte(t.X), byte(t.Y), byte(t.W), byte(t.H))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, kind)
}

func encodeTiles(prefix []byte, tiles []Tile) []byte {
	out := append([]byte{byte(len(tiles))}, prefix...)
	for _, t := range tiles {
		out = append(out, t[:]...)
	}
	return out
}

func bytesOf(data []int) []byte {
	out := make([]byte, len(data))
	for i, v := range data {
		out[i] = byte(v)
	}
	return out
}

// Actor returns actor i.
func (b *Bundle) Actor(i int) Actor { return b.Actors[i] }

// SceneActors returns the actors placed in scene i.
func (b *Bundle) SceneActors(i int) []Actor {
	var out []Actor
	for _, name := range b.Scenes[i].Actors {
		if j, ok := b.Index(KindActor, name); ok {
			out = append(out, b.Actors[j])
		}
	}
	return out
}

// TileCount is the number of tiles in tile set i.
func (b *Bundle) TileCount(i int) int {
	if !b.Has(KindTiles, i) {
		return 0
	}
	return len(b.TileSets[i].tiles)
}
