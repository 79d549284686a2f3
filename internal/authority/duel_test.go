package authority

import (
	"testing"

	"skirmish/internal/protocol"
)

func startedDuel(t *testing.T, a *Authority, p1, p2 string) *DuelRecord {
	t.Helper()
	a.startDuel(p1, p2)
	for _, d := range a.duels {
		if d.Participants == [2]string{p1, p2} || d.Participants == [2]string{p2, p1} {
			return d
		}
	}
	t.Fatal("duel was not created")
	return nil
}

func TestRequestDuelRejectedWithoutActiveMatch(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.lobby.onAccept("p2")

	a.mu.Lock()
	a.requestDuelLocked("p1", "p2")
	a.mu.Unlock()

	if len(a.duelRequests) != 0 {
		t.Fatal("expected no pending duel request without an active match")
	}
}

func TestRequestDuelMutualStartsImmediately(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.lobby.onAccept("p2")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	a.requestDuelLocked("p1", "p2")
	if len(a.duels) != 0 {
		t.Fatal("duel should not start on first one-sided request")
	}
	a.requestDuelLocked("p2", "p1")
	a.mu.Unlock()

	if len(a.duels) != 1 {
		t.Fatalf("expected duel to start once both sides requested, duels=%d", len(a.duels))
	}
}

func TestRequestDuelAgainstBotStartsImmediately(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	a.match.Entities["npc-0"] = &MatchEntity{PlayerID: "npc-0", IsNPC: true}
	a.requestDuelLocked("p1", "npc-0")
	a.mu.Unlock()

	if len(a.duels) != 1 {
		t.Fatalf("expected immediate duel vs bot, duels=%d", len(a.duels))
	}
}

func TestDuelChoiceBestOfThreeResolvesAtTwoWins(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.lobby.onAccept("p2")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	rec := startedDuel(t, a, "p1", "p2")
	rec.Selected = "rps_duel"
	p1, p2 := rec.Participants[0], rec.Participants[1]

	// round 1: p1 rock beats p2 scissors
	a.duelChoiceLocked(p1, rec.DuelID, "rock")
	a.duelChoiceLocked(p2, rec.DuelID, "scissors")
	// round 2: p1 paper beats p2 rock
	a.duelChoiceLocked(p1, rec.DuelID, "paper")
	a.duelChoiceLocked(p2, rec.DuelID, "rock")
	a.mu.Unlock()

	if _, stillOpen := a.duels[rec.DuelID]; stillOpen {
		t.Fatal("expected duel to resolve after p1 reached 2 round wins")
	}
	if !a.match.EliminatedHumans[p2] {
		t.Fatalf("expected %s eliminated as loser", p2)
	}
}

func TestDuelChoiceTieDoesNotScore(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.lobby.onAccept("p2")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	rec := startedDuel(t, a, "p1", "p2")
	rec.Selected = "rps_duel"
	p1, p2 := rec.Participants[0], rec.Participants[1]

	a.duelChoiceLocked(p1, rec.DuelID, "rock")
	a.duelChoiceLocked(p2, rec.DuelID, "rock")
	a.mu.Unlock()

	if rec.Scores[p1] != 0 || rec.Scores[p2] != 0 {
		t.Fatalf("tie should not change scores, got %+v", rec.Scores)
	}
}

func TestNpcPseudoDuelFreezesParticipants(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("host")
	a.mu.Lock()
	a.startMatchLocked("host", "seed")
	a.match.Entities["npc-0"] = &MatchEntity{PlayerID: "npc-0", IsNPC: true, Pos: Vec2{100, 100}}
	a.match.Entities["npc-1"] = &MatchEntity{PlayerID: "npc-1", IsNPC: true, Pos: Vec2{105, 100}}
	a.match.NpcBusy["npc-0"] = &npcBusyEntry{Opponent: "npc-1", StartTick: 0, Remaining: 10}
	a.match.NpcBusy["npc-1"] = &npcBusyEntry{Opponent: "npc-0", StartTick: 0, Remaining: 10}

	a.stepMatch(0.5)
	e0, e1 := a.match.Entities["npc-0"], a.match.Entities["npc-1"]
	a.mu.Unlock()

	if e0.Vel != (Vec2{}) || e1.Vel != (Vec2{}) {
		t.Fatalf("expected pseudo-duel participants frozen, got vel %+v / %+v", e0.Vel, e1.Vel)
	}
	a.mu.Lock()
	_, stillBusy := a.match.NpcBusy["npc-0"]
	a.mu.Unlock()
	if !stillBusy {
		t.Fatal("expected pseudo-duel entry to remain until its timer elapses")
	}
}

func TestNpcPseudoDuelResolvesAndClearsOpponentBusyFlag(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("host")
	a.mu.Lock()
	a.startMatchLocked("host", "seed")
	a.match.Entities["npc-0"] = &MatchEntity{PlayerID: "npc-0", IsNPC: true, Pos: Vec2{100, 100}}
	a.match.Entities["npc-1"] = &MatchEntity{PlayerID: "npc-1", IsNPC: true, Pos: Vec2{105, 100}}
	a.match.NpcBusy["npc-0"] = &npcBusyEntry{Opponent: "npc-1", StartTick: 3, Remaining: 0.1}
	a.match.NpcBusy["npc-1"] = &npcBusyEntry{Opponent: "npc-0", StartTick: 3, Remaining: 0.1}

	a.updateNpcPseudoDuels(0.5)

	_, busy0 := a.match.NpcBusy["npc-0"]
	_, busy1 := a.match.NpcBusy["npc-1"]
	eliminated0 := a.match.EliminatedBots["npc-0"]
	eliminated1 := a.match.EliminatedBots["npc-1"]
	a.mu.Unlock()

	if busy0 || busy1 {
		t.Fatal("expected both pseudo-duel entries cleared on resolution")
	}
	if eliminated0 == eliminated1 {
		t.Fatalf("expected exactly one loser eliminated, got npc-0=%v npc-1=%v", eliminated0, eliminated1)
	}
}

func TestResolveDuelFailsafeOnUnknownDuelID(t *testing.T) {
	a := newTestAuthority(t)
	a.lobby.onAccept("p1")
	a.lobby.onAccept("p2")
	a.mu.Lock()
	a.startMatchLocked("p1", "seed")
	a.ingestDuelResultLocked("p1", protocol.DuelResult{
		Type:   "duel_result",
		DuelID: "unknown-duel",
		Winner: "p1",
		Loser:  "p2",
	})
	a.mu.Unlock()

	if !a.match.EliminatedHumans["p2"] {
		t.Fatal("expected failsafe to eliminate the reported loser")
	}
}
