package mapdata

import (
	"math/rand"
)

// Spawn is a single perimeter spawn point in pixel coordinates.
type Spawn struct {
	X, Y float64
}

// BuildSpawns produces count deterministic perimeter spawn points inset by
// margin from the arena bounds, shuffled by a seed derived from match seed.
// Grounded on original_source/multiplayer.py's _build_spawns_from_map: the
// perimeter is split into four edges, count//4 slots per edge with the
// remainder distributed to the first count%4 edges, each slot placed at
// fraction (i+0.5)/slots along its edge, then the whole list is shuffled
// with a seed derived from the match seed so spawn assignment is
// reproducible given the same seed and participant count.
func BuildSpawns(boundsW, boundsH, margin float64, count int, seed string) []Spawn {
	if count <= 0 {
		return nil
	}
	base := count / 4
	extra := count % 4
	perEdge := [4]int{base, base, base, base}
	for i := 0; i < extra; i++ {
		perEdge[i]++
	}

	left, top := margin, margin
	right, bottom := boundsW-margin, boundsH-margin

	var points []Spawn
	appendEdge := func(slots int, at func(frac float64) Spawn) {
		if slots <= 0 {
			return
		}
		for i := 0; i < slots; i++ {
			frac := (float64(i) + 0.5) / float64(slots)
			points = append(points, at(frac))
		}
	}

	// top edge, left-to-right
	appendEdge(perEdge[0], func(frac float64) Spawn {
		return Spawn{X: left + frac*(right-left), Y: top}
	})
	// right edge, top-to-bottom
	appendEdge(perEdge[1], func(frac float64) Spawn {
		return Spawn{X: right, Y: top + frac*(bottom-top)}
	})
	// bottom edge, right-to-left
	appendEdge(perEdge[2], func(frac float64) Spawn {
		return Spawn{X: right - frac*(right-left), Y: bottom}
	})
	// left edge, bottom-to-top
	appendEdge(perEdge[3], func(frac float64) Spawn {
		return Spawn{X: left, Y: bottom - frac*(bottom-top)}
	})

	rng := rand.New(rand.NewSource(seedHash(seed)))
	rng.Shuffle(len(points), func(i, j int) { points[i], points[j] = points[j], points[i] })

	if len(points) == 0 {
		return points
	}
	// Wrap around if the caller asked for more points than the perimeter
	// produced (can only happen if count rounded oddly above).
	n := len(points)
	for len(points) < count {
		points = append(points, points[len(points)%n])
	}
	return points[:count]
}

func seedHash(s string) int64 {
	var h int64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= int64(s[i])
		h *= 1099511628211
	}
	if h < 0 {
		h = -h
	}
	return h
}
