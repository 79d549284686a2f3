package mapdata

import "testing"

func TestParseTileList(t *testing.T) {
	doc := []byte(`{
		"tileSize": 16,
		"mapWidth": 10,
		"mapHeight": 10,
		"layers": [
			{"collider": false, "tiles": [{"x":0,"y":0,"w":1,"h":1}]},
			{"collider": true, "tiles": [{"x":2,"y":3,"w":2,"h":1}]}
		]
	}`)

	m, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.BoundsW != 160 || m.BoundsH != 160 {
		t.Fatalf("bounds = %v,%v want 160,160", m.BoundsW, m.BoundsH)
	}
	if len(m.Colliders) != 1 {
		t.Fatalf("colliders = %d want 1", len(m.Colliders))
	}
	got := m.Colliders[0]
	want := Rect{X: 32, Y: 48, W: 32, H: 16}
	if got != want {
		t.Fatalf("collider = %+v want %+v", got, want)
	}
}

func TestParseDenseLayer(t *testing.T) {
	doc := []byte(`{
		"tileSize": 10,
		"mapWidth": 2,
		"mapHeight": 2,
		"layers": [
			{"collider": true, "data": [0,1,1,0]}
		]
	}`)

	m, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Colliders) != 2 {
		t.Fatalf("colliders = %d want 2", len(m.Colliders))
	}
}

func TestParseDefaultsWhenMissingDimensions(t *testing.T) {
	m, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.BoundsW <= 0 || m.BoundsH <= 0 {
		t.Fatalf("expected non-zero default bounds, got %v,%v", m.BoundsW, m.BoundsH)
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	c := Rect{X: 20, Y: 20, W: 5, H: 5}
	if !a.Intersects(b) {
		t.Fatal("expected a,b to intersect")
	}
	if a.Intersects(c) {
		t.Fatal("expected a,c not to intersect")
	}
}
