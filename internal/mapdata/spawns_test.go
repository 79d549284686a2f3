package mapdata

import "testing"

func TestBuildSpawnsCountAndDeterminism(t *testing.T) {
	a := BuildSpawns(640, 640, 32, 8, "seed-one")
	b := BuildSpawns(640, 640, 32, 8, "seed-one")
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("len = %d,%d want 8,8", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("spawn %d differs across identical seeds: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBuildSpawnsDifferentSeedsDiffer(t *testing.T) {
	a := BuildSpawns(640, 640, 32, 8, "seed-one")
	b := BuildSpawns(640, 640, 32, 8, "seed-two")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different seeds to produce a different ordering")
	}
}

func TestBuildSpawnsWithinBounds(t *testing.T) {
	spawns := BuildSpawns(640, 640, 32, 12, "seed")
	for _, s := range spawns {
		if s.X < 32 || s.X > 608 || s.Y < 32 || s.Y > 608 {
			t.Fatalf("spawn out of inset bounds: %+v", s)
		}
	}
}

func TestBuildSpawnsZeroCount(t *testing.T) {
	if spawns := BuildSpawns(640, 640, 32, 0, "seed"); spawns != nil {
		t.Fatalf("expected nil spawns for count=0, got %v", spawns)
	}
}
