package authority

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"skirmish/internal/mapdata"
	"skirmish/internal/protocol"
)

const (
	speedBase       = 110.0
	entityHalfW     = 5.0
	entityHalfH     = 3.0
	spawnMargin     = 96.0
	outsideGrace    = 5.0
	idleSpeedFloor  = 6.0
	idleFailsafe    = 8.0
	autoPairRange   = 44.0
	shrinkDelayDef  = 8.0
	shrinkRateDef   = 8.0
)

// wanderState holds a bot's steering memory (§4.D step 3).
type wanderState struct {
	angle     float64
	radius    float64
	jitterAt  float64
}

// MatchEntity is one live participant in the simulation (§3).
type MatchEntity struct {
	PlayerID     string
	Pos          Vec2
	Vel          Vec2
	CharName     string
	IsNPC        bool
	DisplayName  string
	OutsideTimer float64
	IdleTimer    float64
	Wander       *wanderState
}

// MatchState is the authoritative simulation snapshot (§3).
type MatchState struct {
	Seed   string
	Bounds Vec2
	Colliders []mapdata.Rect

	Entities map[string]*MatchEntity
	Inputs   map[string]Vec2

	Tick int

	SafeCenter    Vec2
	SafeRadius    float64
	SafeRadiusMin float64
	ShrinkRate    float64
	ShrinkDelay   float64
	ShrinkElapsed float64

	EliminatedBots   map[string]bool
	EliminatedHumans map[string]bool

	DuelCooldown  float64
	Active        bool

	NpcBusy         map[string]*npcBusyEntry
	NpcDuelCooldown float64
}

// npcBusyEntry tracks one side of an NPC-vs-NPC pseudo duel (§4.D step 3,
// §9 design note) — a background busy window entirely separate from the
// player-facing duel broker in duel.go.
type npcBusyEntry struct {
	Opponent  string
	StartTick int
	Remaining float64
}

// Vec2 is a simple 2D float vector used throughout the simulation.
type Vec2 struct{ X, Y float64 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// startMatchLocked implements the host's start_match request (§4.D
// lifecycle). Caller holds a.mu.
func (a *Authority) startMatchLocked(requester, seed string) {
	if a.match != nil && a.match.Active {
		return
	}
	if !a.isHost(requester) {
		return
	}

	a.lobby.mapName = "test_arena"
	a.lobby.mode = "tournament"

	if seed == "" {
		seed = protocol.NewSeed()
	}

	doc, err := mapdata.Load(a.mapsDir + "/" + a.lobby.mapName + "/map.json")
	var m mapdata.Map
	if err != nil {
		a.logf("load map %s: %v", a.lobby.mapName, err)
		m = mapdata.Map{BoundsW: 640, BoundsH: 640}
	} else {
		m = doc
	}

	ids := a.lobby.playerIDs()
	spawns := mapdata.BuildSpawns(m.BoundsW, m.BoundsH, spawnMargin, len(ids), seed)

	minW := math.Min(m.BoundsW, m.BoundsH)
	safeRadiusMin := math.Max(220, minW/3)

	ms := &MatchState{
		Seed:             seed,
		Bounds:           Vec2{m.BoundsW, m.BoundsH},
		Colliders:        m.Colliders,
		Entities:         make(map[string]*MatchEntity),
		Inputs:           make(map[string]Vec2),
		SafeCenter:       Vec2{m.BoundsW / 2, m.BoundsH / 2},
		SafeRadius:       0.75 * math.Max(m.BoundsW, m.BoundsH),
		SafeRadiusMin:    safeRadiusMin,
		ShrinkRate:       shrinkRateDef,
		ShrinkDelay:      shrinkDelayDef,
		EliminatedBots:   make(map[string]bool),
		EliminatedHumans: make(map[string]bool),
		NpcBusy:          make(map[string]*npcBusyEntry),
		Active:           true,
	}

	assignments := make([]protocol.SpawnAssignment, 0, len(ids))
	for i, id := range ids {
		var pos Vec2
		if len(spawns) > 0 {
			s := spawns[i%len(spawns)]
			pos = Vec2{s.X, s.Y}
		} else {
			pos = ms.SafeCenter
		}
		player := a.lobby.players[id]
		ms.Entities[id] = &MatchEntity{
			PlayerID:    id,
			Pos:         pos,
			CharName:    player.charName,
			DisplayName: player.name,
		}
		assignments = append(assignments, protocol.SpawnAssignment{PlayerID: id, Pos: [2]float64{pos.X, pos.Y}})
	}

	a.match = ms
	a.duels = make(map[string]*DuelRecord)
	a.duelRequests = make(map[string]*DuelRequest)
	a.winnerCache = ""
	a.npcWinnerCache = false

	lobbyPlayers := a.lobby.snapshot().Players
	a.broadcast("start_match", protocol.StartMatchMsg{
		Type: "start_match",
		Match: protocol.MatchEnvelope{
			Map:      a.lobby.mapName,
			Mode:     a.lobby.mode,
			Seed:     seed,
			AllowNpc: a.lobby.allowNpc,
			Players:  lobbyPlayers,
			Spawns:   assignments,
		},
	})
	a.broadcastSnapshot()
}

func (a *Authority) setInputLocked(id string, x, y float64) {
	if a.match == nil || !a.match.Active {
		return
	}
	if _, ok := a.match.Entities[id]; !ok {
		return
	}
	a.match.Inputs[id] = Vec2{clamp(x, -1, 1), clamp(y, -1, 1)}
}

// stepMatch advances the simulation by dt seconds (§4.D tick loop, steps
// 2-9). Caller holds a.mu and has already run the duel sweep (step 1).
func (a *Authority) stepMatch(dt float64) {
	m := a.match
	m.Tick++

	// step 2: safe-zone shrink
	m.ShrinkElapsed += dt
	if m.ShrinkElapsed >= m.ShrinkDelay {
		m.SafeRadius -= m.ShrinkRate * dt
		if m.SafeRadius < m.SafeRadiusMin {
			m.SafeRadius = m.SafeRadiusMin
		}
	}
	if m.DuelCooldown > 0 {
		m.DuelCooldown -= dt
	}

	a.updateNpcPseudoDuels(dt)

	busy := a.busyParticipants()

	for id, e := range m.Entities {
		if busy[id] || m.NpcBusy[id] != nil {
			e.Vel = Vec2{}
			continue
		}
		if e.IsNPC {
			a.stepBot(m, e, dt)
		} else {
			in := m.Inputs[id]
			e.Vel = Vec2{in.X * speedBase, in.Y * speedBase}
		}
	}

	for id, e := range m.Entities {
		a.moveAndCollide(m, e, dt)
		_ = id
	}

	// step 5: out-of-zone check
	for id, e := range m.Entities {
		if busy[id] {
			continue
		}
		dx := e.Pos.X - m.SafeCenter.X
		dy := e.Pos.Y - m.SafeCenter.Y
		dist := math.Hypot(dx, dy)
		if dist > 1.02*m.SafeRadius {
			e.OutsideTimer += dt
			if e.OutsideTimer >= outsideGrace {
				a.eliminate(id)
			}
		} else {
			e.OutsideTimer = 0
		}
	}

	// step 6: NPC idle fail-safe
	for id, e := range m.Entities {
		if !e.IsNPC || busy[id] {
			continue
		}
		speed := math.Hypot(e.Vel.X, e.Vel.Y)
		if speed < idleSpeedFloor {
			e.IdleTimer += dt
			if e.IdleTimer >= idleFailsafe {
				a.eliminate(id)
			}
		} else {
			e.IdleTimer = 0
		}
	}

	// step 7: auto-pair duels
	a.autoPairDuels()

	// step 8: end-of-match detection
	a.checkMatchEnd()

	// step 9: snapshot
	a.broadcastSnapshot()
}

func (a *Authority) busyParticipants() map[string]bool {
	busy := make(map[string]bool)
	for _, d := range a.duels {
		busy[d.Participants[0]] = true
		busy[d.Participants[1]] = true
	}
	return busy
}

func (a *Authority) stepBot(m *MatchState, e *MatchEntity, dt float64) {
	if e.Wander == nil {
		e.Wander = &wanderState{
			angle:    rand.Float64() * 2 * math.Pi,
			radius:   120,
			jitterAt: 1.8 + rand.Float64()*1.4,
		}
	}
	w := e.Wander
	w.jitterAt -= dt
	if w.jitterAt <= 0 {
		w.angle += (rand.Float64()*2 - 1) * 0.22
		w.radius += (rand.Float64()*2 - 1) * 18
		maxR := math.Min(0.65*m.SafeRadius, 0.45*math.Min(m.Bounds.X, m.Bounds.Y))
		w.radius = clamp(w.radius, 80, math.Max(80, maxR))
		w.jitterAt = 1.8 + rand.Float64()*1.4
	}

	anchorX := m.SafeCenter.X + math.Cos(w.angle)*w.radius
	anchorY := m.SafeCenter.Y + math.Sin(w.angle)*w.radius

	dx := e.Pos.X - m.SafeCenter.X
	dy := e.Pos.Y - m.SafeCenter.Y
	distFromCenter := math.Hypot(dx, dy)

	var dirX, dirY float64
	if distFromCenter > 0.88*m.SafeRadius {
		dirX, dirY = -dx, -dy
	} else {
		dirX, dirY = anchorX-e.Pos.X, anchorY-e.Pos.Y
	}
	mag := math.Hypot(dirX, dirY)
	if mag > 1e-6 {
		dirX /= mag
		dirY /= mag
	}

	jitterX := (rand.Float64()*2 - 1) * 0.08
	jitterY := (rand.Float64()*2 - 1) * 0.08
	desiredX := (dirX + jitterX) * speedBase * 0.7
	desiredY := (dirY + jitterY) * speedBase * 0.7

	e.Vel.X = e.Vel.X*(1-0.12) + desiredX*0.12
	e.Vel.Y = e.Vel.Y*(1-0.12) + desiredY*0.12

	if speed := math.Hypot(e.Vel.X, e.Vel.Y); speed < idleSpeedFloor {
		e.Vel.X += (rand.Float64()*2 - 1) * 10
		e.Vel.Y += (rand.Float64()*2 - 1) * 10
	}
}

// moveAndCollide applies axis-separated movement against static colliders
// then clamps the entity's AABB inside the arena bounds (§4.D step 4).
func (a *Authority) moveAndCollide(m *MatchState, e *MatchEntity, dt float64) {
	moveAxis := func(pos *float64, delta float64, axisX bool) {
		*pos += delta
		body := entityRect(e.Pos, *pos, axisX)
		for _, c := range m.Colliders {
			if !body.Intersects(c) {
				continue
			}
			if axisX {
				if delta > 0 {
					*pos = c.X - entityHalfW
				} else if delta < 0 {
					*pos = c.X + c.W + entityHalfW
				}
			} else {
				if delta > 0 {
					*pos = c.Y
				} else if delta < 0 {
					*pos = c.Y + c.H + entityHalfH*2
				}
			}
			body = entityRect(e.Pos, *pos, axisX)
		}
	}

	moveAxis(&e.Pos.X, e.Vel.X*dt, true)
	moveAxis(&e.Pos.Y, e.Vel.Y*dt, false)

	e.Pos.X = clamp(e.Pos.X, entityHalfW, m.Bounds.X-entityHalfW)
	e.Pos.Y = clamp(e.Pos.Y, entityHalfH*2, m.Bounds.Y)
}

// entityRect builds the nominal 10x6 midbottom-anchored body used for
// collision tests (§4.D step 4); only the axis under test uses the
// candidate coordinate, the other uses the entity's current position.
func entityRect(cur Vec2, candidate float64, axisX bool) mapdata.Rect {
	x, y := cur.X, cur.Y
	if axisX {
		x = candidate
	} else {
		y = candidate
	}
	return mapdata.Rect{X: x - entityHalfW, Y: y - entityHalfH*2, W: entityHalfW * 2, H: entityHalfH * 2}
}

func (a *Authority) broadcastSnapshot() {
	m := a.match
	if m == nil {
		return
	}
	entities := make([]protocol.EntityView, 0, len(m.Entities))
	for _, e := range m.Entities {
		entities = append(entities, protocol.EntityView{
			ID:   e.PlayerID,
			Pos:  [2]int{int(e.Pos.X), int(e.Pos.Y)},
			Vel:  [2]int{int(e.Vel.X), int(e.Vel.Y)},
			Char: e.CharName,
			Npc:  e.IsNPC,
			Name: e.DisplayName,
		})
	}
	remainingHumans, remainingTotal := a.liveCounts()
	snap := protocol.MatchSnapshot{
		Tick:            m.Tick,
		Ts:              float64(time.Now().UnixNano()) / 1e9,
		Entities:        entities,
		Remaining:       remainingTotal,
		RemainingHumans: remainingHumans,
		RemainingTotal:  remainingTotal,
	}
	if !m.Active {
		snap.Winner = a.winnerCache
		snap.NpcWinner = a.npcWinnerCache
	}
	a.broadcast("match_state", protocol.MatchStateMsg{Type: "match_state", State: snap})
}

func (a *Authority) liveCounts() (humans, total int) {
	for id, e := range a.match.Entities {
		if e.IsNPC {
			total++
			continue
		}
		if a.match.EliminatedHumans[id] {
			continue
		}
		humans++
		total++
	}
	return
}

// checkMatchEnd implements §4.D step 8.
func (a *Authority) checkMatchEnd() {
	m := a.match
	if !m.Active {
		return
	}
	humans, total := a.liveCounts()
	botsAlive := total - humans

	if humans == 1 && botsAlive == 0 {
		for id, e := range m.Entities {
			if !e.IsNPC && !m.EliminatedHumans[id] {
				a.winnerCache = id
				break
			}
		}
		m.Active = false
		a.clearDuelState()
		return
	}
	if humans == 0 && botsAlive >= 1 && botsAlive <= 4 {
		a.npcWinnerCache = true
		m.Active = false
		a.clearDuelState()
	}
}

func (a *Authority) clearDuelState() {
	a.duels = make(map[string]*DuelRecord)
	a.duelRequests = make(map[string]*DuelRequest)
}

// isNPCID reports whether id is a bot identifier (prefixed npc-, §4.E).
func isNPCID(id string) bool {
	return strings.HasPrefix(id, "npc-")
}
