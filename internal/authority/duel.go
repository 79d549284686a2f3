package authority

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"skirmish/internal/minigame"
	"skirmish/internal/protocol"
)

const (
	duelCooldownAfterStart = 2.5
	duelRequestTTL         = 10 * time.Second
	npcDuelStaleAfter      = 8 * time.Second
	wheelMaxEntries        = 5

	npcPseudoDuelRange    = 42.0
	npcPseudoDuelChance   = 0.20
	npcPseudoDuelMinDur   = 20.0
	npcPseudoDuelMaxDur   = 35.0
	npcPseudoCooldownWait = 5.0
)

// DuelRecord is one in-flight or resolved 1v1 duel (§3).
type DuelRecord struct {
	DuelID       string
	Participants [2]string
	Wheel        []string
	Selected     string
	Results      map[string]duelReport
	Scores       map[string]int
	Round        int
	RoundEntries map[string]string
	ForcedWinner string
	ForcedLoser  string
	StartedAt    time.Time
}

type duelReport struct {
	Entry   string
	Outcome string
}

// DuelRequest is a pending challenge keyed by the unordered participant
// pair (§3).
type DuelRequest struct {
	Initiator string
	Target    string
	At        time.Time
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// requestDuelLocked implements request_duel (§4.E).
func (a *Authority) requestDuelLocked(initiator, target string) {
	if a.match == nil || !a.match.Active {
		return
	}
	if initiator == "" || target == "" || initiator == target {
		return
	}
	if len(a.duels) > 0 || a.match.DuelCooldown > 0 {
		return
	}
	if _, busy := a.participantInAnyDuel(initiator); busy {
		return
	}

	if isNPCID(target) {
		a.startDuel(initiator, target)
		return
	}

	key := pairKey(initiator, target)
	if existing, ok := a.duelRequests[key]; ok {
		if existing.Target == initiator && existing.Initiator == target {
			delete(a.duelRequests, key)
			a.startDuel(initiator, target)
			return
		}
	}
	a.duelRequests[key] = &DuelRequest{Initiator: initiator, Target: target, At: a.now()}
	a.broadcast("duel_request", protocol.DuelRequestMsg{Type: "duel_request", From: initiator, To: target})
}

func (a *Authority) participantInAnyDuel(id string) (*DuelRecord, bool) {
	for _, d := range a.duels {
		if d.Participants[0] == id || d.Participants[1] == id {
			return d, true
		}
	}
	return nil, false
}

// startDuel constructs and persists a DuelRecord, then broadcasts
// start_duel (§4.E Start).
func (a *Authority) startDuel(p1, p2 string) {
	if a.match == nil {
		return
	}
	seed := int64(a.match.Tick)
	for _, b := range []byte(a.match.Seed + p1 + p2) {
		seed = seed*31 + int64(b)
	}
	rng := rand.New(rand.NewSource(seed))

	wheel := a.buildWheel(rng)
	selected := wheel[rng.Intn(len(wheel))]

	rec := &DuelRecord{
		DuelID:       protocol.NewID(),
		Participants: [2]string{p1, p2},
		Wheel:        wheel,
		Selected:     selected,
		Results:      make(map[string]duelReport),
		Scores:       map[string]int{p1: 0, p2: 0},
		Round:        1,
		RoundEntries: make(map[string]string),
		StartedAt:    a.now(),
	}

	hooks := a.registry.Hooks(selected)
	for _, pid := range rec.Participants {
		if isNPCID(pid) && hooks != nil {
			choice := hooks.AIChoice(a.match.Seed, 1, []string{p1, p2})
			if choice != "" {
				rec.Results[pid] = duelReport{Entry: choice, Outcome: "auto"}
			}
		}
	}

	a.duels[rec.DuelID] = rec
	a.match.DuelCooldown = duelCooldownAfterStart

	for _, pid := range rec.Participants {
		if e, ok := a.match.Entities[pid]; ok {
			e.OutsideTimer = 0
		}
	}

	a.broadcast("start_duel", protocol.StartDuelMsg{
		Type:          "start_duel",
		DuelID:        rec.DuelID,
		Participants:  []string{p1, p2},
		WheelEntries:  wheel,
		WheelSpinSeed: rng.Float64(),
		SelectedEntry: selected,
	})
}

// buildWheel samples up to wheelMaxEntries multiplayer-enabled minigames
// without replacement, falling back to a singleton ["rps_duel"] (§4.E).
func (a *Authority) buildWheel(rng *rand.Rand) []string {
	if a.registry != nil {
		if w := a.registry.PickWheel(rng, wheelMaxEntries); len(w) > 0 {
			return w
		}
	}
	return append([]string{}, minigame.FallbackMinigames...)
}

// debugStartDuelLocked is the host-only manual trigger (§6).
func (a *Authority) debugStartDuelLocked(requester, target string) {
	if !a.isHost(requester) || a.match == nil || !a.match.Active {
		return
	}
	if len(a.duels) > 0 {
		return
	}
	if target == "" {
		for id := range a.match.Entities {
			if id != requester {
				target = id
				break
			}
		}
	}
	if target == "" {
		return
	}
	a.startDuel(requester, target)
}

// duelChoiceLocked implements per-round RPS resolution (§4.E).
func (a *Authority) duelChoiceLocked(sender, duelID, entry string) {
	rec, ok := a.duels[duelID]
	if !ok || rec.Selected != "rps_duel" {
		return
	}
	if rec.Participants[0] != sender && rec.Participants[1] != sender {
		return
	}
	if !minigame.IsValidChoice(entry) {
		return
	}
	rec.RoundEntries[sender] = entry

	for _, pid := range rec.Participants {
		if isNPCID(pid) {
			if _, ok := rec.RoundEntries[pid]; !ok {
				rec.RoundEntries[pid] = randomRPSChoice()
			}
		}
	}

	p1, p2 := rec.Participants[0], rec.Participants[1]
	c1, ok1 := rec.RoundEntries[p1]
	c2, ok2 := rec.RoundEntries[p2]
	if !ok1 || !ok2 {
		return
	}

	var winner string
	switch {
	case c1 == c2:
		winner = ""
	case minigame.Beats(c1, c2):
		winner = p1
	case minigame.Beats(c2, c1):
		winner = p2
	}
	if winner != "" {
		rec.Scores[winner]++
	}

	a.broadcast("duel_round_result", protocol.DuelRoundResultMsg{
		Type:    "duel_round_result",
		DuelID:  duelID,
		Round:   rec.Round,
		Choices: map[string]string{p1: c1, p2: c2},
		Winner:  winner,
		Scores:  map[string]int{p1: rec.Scores[p1], p2: rec.Scores[p2]},
	})

	rec.Round++
	rec.RoundEntries = make(map[string]string)

	for _, pid := range rec.Participants {
		if rec.Scores[pid] == 2 {
			rec.ForcedWinner = pid
			a.resolveDuel(rec)
			return
		}
	}
}

func randomRPSChoice() string {
	choices := []string{"rock", "paper", "scissors"}
	return choices[rand.Intn(len(choices))]
}

// resolveDuel implements the generic resolution rule (§4.E).
func (a *Authority) resolveDuel(rec *DuelRecord) {
	winner, loser := rec.ForcedWinner, rec.ForcedLoser
	if winner == "" {
		var reportedWinner string
		decisive := true
		for _, pid := range rec.Participants {
			rep, ok := rec.Results[pid]
			if !ok {
				decisive = false
				continue
			}
			if rep.Outcome == "win" {
				reportedWinner = pid
			}
		}
		if decisive && reportedWinner != "" {
			winner = reportedWinner
		}
	}
	if winner == "" {
		return // not yet resolvable: wait.
	}
	if loser == "" {
		for _, pid := range rec.Participants {
			if pid != winner {
				loser = pid
			}
		}
	}

	entries := make([]string, 0, 2)
	for _, pid := range rec.Participants {
		entries = append(entries, pid)
	}

	a.broadcast("duel_result", protocol.DuelResultMsg{
		Type:    "duel_result",
		DuelID:  rec.DuelID,
		Winner:  winner,
		Loser:   loser,
		Entries: entries,
	})
	a.eliminate(loser)
	for _, pid := range rec.Participants {
		if e, ok := a.match.Entities[pid]; ok {
			e.OutsideTimer = 0
		}
	}
	delete(a.duels, rec.DuelID)
}

// ingestDuelResultLocked implements result ingestion (§4.E).
func (a *Authority) ingestDuelResultLocked(sender string, m protocol.DuelResult) {
	rec, ok := a.duels[m.DuelID]
	if !ok {
		// failsafe: unknown duel but a decisive winner/loser was reported.
		if m.Winner != "" && m.Loser != "" {
			entries := []string{m.Winner, m.Loser}
			a.broadcast("duel_result", protocol.DuelResultMsg{
				Type: "duel_result", DuelID: m.DuelID, Winner: m.Winner, Loser: m.Loser, Entries: entries,
			})
			a.eliminate(m.Loser)
		}
		return
	}
	rec.Results[sender] = duelReport{Entry: m.Entry, Outcome: m.Outcome}

	hasNPC := isNPCID(rec.Participants[0]) || isNPCID(rec.Participants[1])
	if (m.Outcome == "win" || m.Outcome == "lose" || m.Outcome == "forfeit") && hasNPC {
		other := rec.Participants[0]
		if other == sender {
			other = rec.Participants[1]
		}
		switch m.Outcome {
		case "win":
			rec.ForcedWinner, rec.ForcedLoser = sender, other
		case "lose", "forfeit":
			rec.ForcedWinner, rec.ForcedLoser = other, sender
		}
		a.resolveDuel(rec)
		return
	}
	if m.Winner != "" {
		rec.ForcedWinner = m.Winner
		rec.ForcedLoser = m.Loser
		a.resolveDuel(rec)
	}
}

// startMinigameLocked is the host-only rebroadcast trigger (§6).
func (a *Authority) startMinigameLocked(requester string, m protocol.StartMinigame) {
	if !a.isHost(requester) {
		return
	}
	a.broadcast("start_minigame", protocol.StartMinigameMsg{
		Type: "start_minigame", Minigame: m.Minigame, Participants: m.Participants, DuelID: m.DuelID,
	})
}

// autoPairDuels implements §4.D step 7.
func (a *Authority) autoPairDuels() {
	m := a.match
	if len(a.duels) > 0 || len(a.duelRequests) > 0 || m.DuelCooldown > 0 {
		return
	}

	busy := a.busyParticipants()
	var eligible []string
	for id := range m.Entities {
		if busy[id] {
			continue
		}
		if _, npcBusy := m.NpcBusy[id]; npcBusy {
			continue
		}
		eligible = append(eligible, id)
	}
	sort.Strings(eligible)

	type pair struct {
		a, b     string
		dist     float64
		hasHuman bool
	}
	var best *pair
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			ea, eb := m.Entities[eligible[i]], m.Entities[eligible[j]]
			dist := math.Hypot(ea.Pos.X-eb.Pos.X, ea.Pos.Y-eb.Pos.Y)
			if dist > autoPairRange {
				continue
			}
			hasHuman := !ea.IsNPC || !eb.IsNPC
			cand := pair{eligible[i], eligible[j], dist, hasHuman}
			if best == nil || (cand.hasHuman && !best.hasHuman) || (cand.hasHuman == best.hasHuman && cand.dist < best.dist) {
				best = &cand
			}
		}
	}
	if best != nil {
		a.startDuel(best.a, best.b)
	}
}

// sweepDuels implements §4.D step 1 and §4.E stale sweep.
func (a *Authority) sweepDuels() {
	now := a.now()
	for id, d := range a.duels {
		if a.match != nil {
			if _, ok := a.match.Entities[d.Participants[0]]; !ok {
				delete(a.duels, id)
				continue
			}
			if _, ok := a.match.Entities[d.Participants[1]]; !ok {
				delete(a.duels, id)
				continue
			}
		}
		hasNPC := isNPCID(d.Participants[0]) || isNPCID(d.Participants[1])
		if hasNPC && now.Sub(d.StartedAt) > npcDuelStaleAfter {
			a.forceResolveStale(d)
		}
	}
	for key, req := range a.duelRequests {
		if now.Sub(req.At) > duelRequestTTL {
			delete(a.duelRequests, key)
		}
	}
}

// forceResolveStale honours any partial report, else flips a coin seeded
// by (duel_id, now) per §4.E/§9.
func (a *Authority) forceResolveStale(d *DuelRecord) {
	for _, pid := range d.Participants {
		if rep, ok := d.Results[pid]; ok && rep.Outcome == "win" {
			other := d.Participants[0]
			if other == pid {
				other = d.Participants[1]
			}
			d.ForcedWinner, d.ForcedLoser = pid, other
			a.resolveDuel(d)
			return
		}
	}
	seed := int64(0)
	for _, b := range []byte(d.DuelID) {
		seed = seed*31 + int64(b)
	}
	seed += a.now().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	if rng.Intn(2) == 0 {
		d.ForcedWinner, d.ForcedLoser = d.Participants[0], d.Participants[1]
	} else {
		d.ForcedWinner, d.ForcedLoser = d.Participants[1], d.Participants[0]
	}
	a.resolveDuel(d)
}

// updateNpcPseudoDuels runs host-only, lightweight NPC-vs-NPC pseudo
// minigames (§4.D step 3, §9 design note): proximity pairing, a busy
// window the paired entities are frozen for, and a seeded coin-flip
// resolution — entirely separate from the player-facing duel broker
// above.
func (a *Authority) updateNpcPseudoDuels(dt float64) {
	m := a.match
	if m == nil || !m.Active {
		return
	}

	var finished []string
	for pid, info := range m.NpcBusy {
		_, opponentAlive := m.Entities[info.Opponent]
		info.Remaining -= dt
		if info.Remaining <= 0 || !opponentAlive {
			finished = append(finished, pid)
		}
	}
	for _, pid := range finished {
		info, ok := m.NpcBusy[pid]
		if !ok {
			continue
		}
		opponent := info.Opponent
		delete(m.NpcBusy, pid)
		delete(m.NpcBusy, opponent)
		if opponent == "" {
			continue
		}

		seed := int64(info.StartTick)
		for _, b := range []byte(m.Seed + pid + opponent) {
			seed = seed*31 + int64(b)
		}
		rng := rand.New(rand.NewSource(seed))
		winner := pid
		if rng.Intn(2) == 1 {
			winner = opponent
		}
		loser := opponent
		if winner == opponent {
			loser = pid
		}
		a.eliminate(loser)
	}

	m.NpcDuelCooldown -= dt
	if m.NpcDuelCooldown > 0 {
		return
	}

	var npcIDs []string
	for id, e := range m.Entities {
		if !e.IsNPC {
			continue
		}
		if _, busy := m.NpcBusy[id]; busy {
			continue
		}
		npcIDs = append(npcIDs, id)
	}
	sort.Strings(npcIDs)

	for i := 0; i < len(npcIDs); i++ {
		for j := i + 1; j < len(npcIDs); j++ {
			pa, pb := npcIDs[i], npcIDs[j]
			ea, eb := m.Entities[pa], m.Entities[pb]
			dx, dy := ea.Pos.X-eb.Pos.X, ea.Pos.Y-eb.Pos.Y
			if dx*dx+dy*dy > npcPseudoDuelRange*npcPseudoDuelRange {
				continue
			}
			seed := int64(m.Tick)
			for _, b := range []byte(m.Seed + pa + pb) {
				seed = seed*31 + int64(b)
			}
			rng := rand.New(rand.NewSource(seed))
			if rng.Float64() >= npcPseudoDuelChance {
				continue
			}
			dur := npcPseudoDuelMinDur + rng.Float64()*(npcPseudoDuelMaxDur-npcPseudoDuelMinDur)
			m.NpcBusy[pa] = &npcBusyEntry{Opponent: pb, StartTick: m.Tick, Remaining: dur}
			m.NpcBusy[pb] = &npcBusyEntry{Opponent: pa, StartTick: m.Tick, Remaining: dur}
			m.NpcDuelCooldown = npcPseudoCooldownWait
			return
		}
	}
}

// dropDuelsInvolving removes pending duel requests referencing a departed
// connection. Duel records are left to the next sweep, which drops them
// once the entity is gone from match.Entities.
func (a *Authority) dropDuelsInvolving(id string) {
	for key, req := range a.duelRequests {
		if req.Initiator == id || req.Target == id {
			delete(a.duelRequests, key)
		}
	}
}
