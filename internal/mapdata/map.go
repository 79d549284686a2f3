// Package mapdata loads the declarative map document into arena bounds
// and collider rectangles (§4.C), and generates deterministic perimeter
// spawn points for a match.
//
// Grounded on server/srv/maps_store.go's disk-scan-and-decode shape, and
// resolved in detail against original_source/multiplayer.py's
// _load_map_bounds/_load_map_colliders, which is the ground truth for the
// document schema spec.md leaves implicit (§4.C.1).
package mapdata

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rect is an axis-aligned collider rectangle in pixel units.
type Rect struct {
	X, Y, W, H float64
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// tile is the {x,y,w,h} tuple shape a collider layer lists explicitly, in
// tile units (w/h default to 1 tile when omitted).
type tile struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type layer struct {
	Collider bool    `json:"collider"`
	Tiles    []tile  `json:"tiles"`
	Data     []int   `json:"data"`
}

type document struct {
	TileSize  int     `json:"tileSize"`
	MapWidth  int     `json:"mapWidth"`
	MapHeight int     `json:"mapHeight"`
	Layers    []layer `json:"layers"`
}

// Map is the parsed result: pixel bounds plus collider rectangles.
type Map struct {
	BoundsW, BoundsH float64
	Colliders        []Rect
}

// Load reads and parses a map document from path.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Map{}, fmt.Errorf("mapdata: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a map document's bytes into a Map.
func Parse(data []byte) (Map, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Map{}, fmt.Errorf("mapdata: decode: %w", err)
	}
	tileSize := doc.TileSize
	if tileSize <= 0 {
		tileSize = 16
	}
	w := float64(doc.MapWidth * tileSize)
	h := float64(doc.MapHeight * tileSize)
	if w <= 0 || h <= 0 {
		w, h = 640, 640
	}

	var colliders []Rect
	for _, l := range doc.Layers {
		if !l.Collider {
			continue
		}
		if len(l.Tiles) > 0 {
			for _, t := range l.Tiles {
				cw, ch := t.W*float64(tileSize), t.H*float64(tileSize)
				if cw <= 0 {
					cw = float64(tileSize)
				}
				if ch <= 0 {
					ch = float64(tileSize)
				}
				colliders = append(colliders, Rect{
					X: t.X * float64(tileSize),
					Y: t.Y * float64(tileSize),
					W: cw,
					H: ch,
				})
			}
			continue
		}
		if len(l.Data) > 0 && doc.MapWidth > 0 {
			for idx, cell := range l.Data {
				if cell == 0 {
					continue
				}
				gx := idx % doc.MapWidth
				gy := idx / doc.MapWidth
				colliders = append(colliders, Rect{
					X: float64(gx * tileSize),
					Y: float64(gy * tileSize),
					W: float64(tileSize),
					H: float64(tileSize),
				})
			}
		}
	}

	return Map{BoundsW: w, BoundsH: h, Colliders: colliders}, nil
}
