package authority

import (
	"testing"

	"skirmish/internal/mapdata"
	"skirmish/internal/minigame"
)

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	registry := minigame.Load("../../data/minigames")
	return New(registry, "../../data/maps", DefaultConfig())
}

func TestStartMatchCreatesEntitiesAndKeepsSeed(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.lobby.onAccept("p2")

	a.mu.Lock()
	a.startMatchLocked("p1", "deadbeef")
	a.mu.Unlock()

	if a.match == nil || !a.match.Active {
		t.Fatal("expected an active match")
	}
	if len(a.match.Entities) != 2 {
		t.Fatalf("entities = %d want 2", len(a.match.Entities))
	}
	if a.match.Seed != "deadbeef" {
		t.Fatalf("seed = %q want deadbeef", a.match.Seed)
	}
}

func TestStartMatchRejectsNonHost(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.lobby.onAccept("p2")

	a.mu.Lock()
	a.startMatchLocked("p2", "")
	a.mu.Unlock()

	if a.match != nil {
		t.Fatal("expected non-host start_match to be ignored")
	}
}

func TestInputClamping(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	a.setInputLocked("p1", 5, -5)
	in := a.match.Inputs["p1"]
	a.mu.Unlock()

	if in.X != 1 || in.Y != -1 {
		t.Fatalf("input not clamped: %+v", in)
	}
}

func TestSafeRadiusShrinksMonotonicallyAfterDelay(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	a.match.ShrinkDelay = 0
	a.mu.Unlock()

	a.tick(0.1)
	r1 := a.match.SafeRadius
	a.tick(0.1)
	r2 := a.match.SafeRadius

	if r2 > r1 {
		t.Fatalf("safe radius increased: %v -> %v", r1, r2)
	}
	if r2 < a.match.SafeRadiusMin {
		t.Fatalf("safe radius %v fell below minimum %v", r2, a.match.SafeRadiusMin)
	}
}

func TestEliminateHumanFlaggedNotRemoved(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	a.eliminate("p1")
	_, stillPresent := a.match.Entities["p1"]
	flagged := a.match.EliminatedHumans["p1"]
	a.mu.Unlock()

	if !stillPresent {
		t.Fatal("eliminated human should remain in entities for bookkeeping")
	}
	if !flagged {
		t.Fatal("expected p1 in EliminatedHumans")
	}
}

// TestMoveAndCollideResolvesExactlyOnEachAxis drives an entity into the
// same collider from each of the four directions and asserts the
// resolved AABB exactly touches the collider: no overlap, no gap
// (§4.D step 4).
func TestMoveAndCollideResolvesExactlyOnEachAxis(t *testing.T) {
	a := &Authority{}
	collider := mapdata.Rect{X: 100, Y: 100, W: 20, H: 20}

	cases := []struct {
		name     string
		startPos Vec2
		vel      Vec2
		wantPos  Vec2
	}{
		{"pushed out moving +X", Vec2{80, 105}, Vec2{40, 0}, Vec2{95, 105}},
		{"pushed out moving -X", Vec2{140, 105}, Vec2{-40, 0}, Vec2{125, 105}},
		{"pushed out moving +Y", Vec2{105, 80}, Vec2{0, 40}, Vec2{105, 100}},
		{"pushed out moving -Y", Vec2{105, 140}, Vec2{0, -30}, Vec2{105, 126}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := &MatchState{Bounds: Vec2{1000, 1000}, Colliders: []mapdata.Rect{collider}}
			e := &MatchEntity{Pos: c.startPos, Vel: c.vel}
			a.moveAndCollide(m, e, 1.0)

			if e.Pos != c.wantPos {
				t.Fatalf("pos = %+v want %+v", e.Pos, c.wantPos)
			}
			body := mapdata.Rect{X: e.Pos.X - entityHalfW, Y: e.Pos.Y - entityHalfH*2, W: entityHalfW * 2, H: entityHalfH * 2}
			if body.Intersects(collider) {
				t.Fatalf("resolved body %+v still overlaps collider %+v", body, collider)
			}
		})
	}
}

func TestEliminateBotRemoved(t *testing.T) {
	a := newTestAuthority(t)
	a.mu.Lock()
	a.lobby.onAccept("host")
	a.startMatchLocked("host", "seed")
	a.match.Entities["npc-0"] = &MatchEntity{PlayerID: "npc-0", IsNPC: true}
	a.eliminate("npc-0")
	_, stillPresent := a.match.Entities["npc-0"]
	a.mu.Unlock()

	if stillPresent {
		t.Fatal("eliminated bot should be removed from entities")
	}
}
