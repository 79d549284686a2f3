// Package authority holds the single-owner authoritative state machine:
// lobby, match simulation, and duel broker all live behind one mutex so
// every mutation observed by a broadcast is a consistent prefix of applied
// operations, mirroring srv.Hub's mu-guarded room map — generalized from
// "many independent rooms" to "one lobby, one match, many duels."
package authority

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"skirmish/internal/minigame"
	"skirmish/internal/protocol"
	"skirmish/internal/session"
	"skirmish/internal/wire"
)

// Config is the hot-updatable admin configuration (§4.I).
type Config struct {
	AutoStart     bool
	MinPlayers    int
	ReadyRequired bool
	ReadyTimeout  float64
	StartDelay    float64
	ResetDelay    float64
	MapName       string
}

// DefaultConfig mirrors the CLI defaults named in §6.
func DefaultConfig() Config {
	return Config{
		AutoStart:     true,
		MinPlayers:    2,
		ReadyRequired: true,
		ReadyTimeout:  15,
		StartDelay:    3,
		ResetDelay:    5,
		MapName:       "test_arena",
	}
}

// Authority is the process-wide singleton holding every piece of mutable
// state for the lobby, the active match and all open duels.
type Authority struct {
	mu sync.Mutex

	conns map[string]*wire.Conn

	lobby lobby

	cfg         Config
	lobbyLocked bool
	joinLocked  bool

	minPlayersSince *time.Time
	eligibleSince   *time.Time
	autoStartIn     *int
	pendingResetAt  *time.Time
	lastForceStart  time.Time

	match          *MatchState
	winnerCache    string
	npcWinnerCache bool

	duels        map[string]*DuelRecord
	duelRequests map[string]*DuelRequest

	registry *minigame.Registry
	mapsDir  string
	sessions *session.Issuer

	clock func() time.Time
}

// New constructs an idle Authority: empty lobby, no match, no duels.
func New(registry *minigame.Registry, mapsDir string, cfg Config) *Authority {
	return &Authority{
		conns:        make(map[string]*wire.Conn),
		lobby:        newLobby(),
		cfg:          cfg,
		duels:        make(map[string]*DuelRecord),
		duelRequests: make(map[string]*DuelRequest),
		registry:     registry,
		mapsDir:      mapsDir,
		sessions:     session.NewIssuer(),
		clock:        time.Now,
	}
}

func (a *Authority) now() time.Time { return a.clock() }

// Accept registers a fresh connection, assigns it a lobby slot (or rejects
// it per §4.E's join-gating rule), and sends the welcome/reject reply.
// Returns the assigned player ID, or "" if the connection was rejected.
func (a *Authority) Accept(conn *wire.Conn) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.match != nil && a.match.Active {
		conn.Send("reject", protocol.Reject{Type: "reject", Reason: "match_active"})
		conn.Close()
		return ""
	}
	if a.lobbyLocked {
		conn.Send("reject", protocol.Reject{Type: "reject", Reason: "lobby_locked"})
		conn.Close()
		return ""
	}

	id := protocol.NewID()
	player := a.lobby.onAccept(id)
	a.conns[id] = conn

	token, err := a.sessions.Issue(id, player.name)
	if err != nil {
		a.logf("issue session token for %s: %v", id, err)
	}
	player.sessionToken = token

	conn.Send("welcome", protocol.Welcome{
		Type:         "welcome",
		PlayerID:     id,
		State:        a.snapshotLobbyState(),
		SessionToken: token,
	})
	a.publishLobbyState()
	return id
}

// Disconnect unregisters a connection and runs disconnect-time lobby and
// match bookkeeping.
func (a *Authority) Disconnect(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.conns, id)
	a.lobby.onDisconnect(id)
	if a.match != nil {
		delete(a.match.Entities, id)
		delete(a.match.Inputs, id)
	}
	a.dropDuelsInvolving(id)
	a.publishLobbyState()
}

// HandleLine decodes one inbound line from player id and dispatches it.
// Malformed lines are dropped silently per §4.A/§7 ProtocolError.
func (a *Authority) HandleLine(id string, line []byte) {
	var peek protocol.Peek
	if err := json.Unmarshal(line, &peek); err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch peek.Type {
	case "hello":
		var m protocol.Hello
		if json.Unmarshal(line, &m) == nil {
			a.lobby.hello(id, m.Name)
			if m.SessionToken != "" {
				if prevID, _, err := a.sessions.Verify(m.SessionToken); err == nil && prevID != id {
					a.lobby.reclaim(id, prevID)
				}
			}
			a.publishLobbyStateLocked()
		}
	case "set_ready":
		var m protocol.SetReady
		if json.Unmarshal(line, &m) == nil {
			a.lobby.setReady(id, m.Ready)
			a.publishLobbyStateLocked()
		}
	case "set_char":
		var m protocol.SetChar
		if json.Unmarshal(line, &m) == nil {
			a.lobby.setChar(id, m.CharName)
			a.publishLobbyStateLocked()
		}
	case "set_map", "set_mode", "set_allow_npc":
		// ignored: multiplayer is pinned (§4.B).
	case "start_match":
		var m protocol.StartMatch
		if json.Unmarshal(line, &m) == nil {
			a.startMatchLocked(id, m.Seed)
		}
	case "match_input", "input":
		var m protocol.MatchInput
		if json.Unmarshal(line, &m) == nil {
			a.setInputLocked(id, m.Vec.X, m.Vec.Y)
		}
	case "request_duel":
		var m protocol.RequestDuel
		if json.Unmarshal(line, &m) == nil {
			a.requestDuelLocked(id, m.Target)
		}
	case "duel_choice":
		var m protocol.DuelChoice
		if json.Unmarshal(line, &m) == nil {
			a.duelChoiceLocked(id, m.DuelID, m.Entry)
		}
	case "duel_action":
		var raw map[string]interface{}
		if json.Unmarshal(line, &raw) == nil {
			a.relayDuelActionLocked(id, raw)
		}
	case "duel_result":
		var m protocol.DuelResult
		if json.Unmarshal(line, &m) == nil {
			a.ingestDuelResultLocked(id, m)
		}
	case "start_minigame":
		var m protocol.StartMinigame
		if json.Unmarshal(line, &m) == nil {
			a.startMinigameLocked(id, m)
		}
	case "minigame_result":
		var raw map[string]interface{}
		if json.Unmarshal(line, &raw) == nil {
			a.relayMinigameResultLocked(id, raw)
		}
	case "debug_start_duel":
		var m protocol.DebugStartDuel
		if json.Unmarshal(line, &m) == nil {
			a.debugStartDuelLocked(id, m.Target)
		}
	default:
		// unrecognized type: dropped silently.
	}
}

// Run drives the fixed-rate tick loop until stop is closed.
func (a *Authority) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / protocol.TickRate)
	defer ticker.Stop()
	last := a.now()
	for {
		select {
		case <-stop:
			return
		case t := <-ticker.C:
			dt := t.Sub(last).Seconds()
			last = t
			if dt < 0 {
				dt = 0
			}
			if dt > 0.2 {
				dt = 0.2
			}
			a.tick(dt)
		}
	}
}

// RunAdmin drives the ~500ms auto-start/reset loop until stop is closed.
func (a *Authority) RunAdmin(stop <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.mu.Lock()
			a.adminStep()
			a.mu.Unlock()
		}
	}
}

func (a *Authority) tick(dt float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweepDuels()
	if a.match == nil || !a.match.Active {
		return
	}
	a.stepMatch(dt)
}

// broadcast fans payload out to every connected client (§4.H).
func (a *Authority) broadcast(typ string, v interface{}) {
	for _, c := range a.conns {
		c.Send(typ, v)
	}
}

func (a *Authority) broadcastRaw(obj map[string]interface{}) {
	for _, c := range a.conns {
		c.SendRaw(obj)
	}
}

func (a *Authority) sendTo(id string, typ string, v interface{}) {
	if c, ok := a.conns[id]; ok {
		c.Send(typ, v)
	}
}

func (a *Authority) publishLobbyState() {
	a.publishLobbyStateLocked()
}

func (a *Authority) publishLobbyStateLocked() {
	a.broadcast("lobby_state", protocol.LobbyStateMsg{Type: "lobby_state", State: a.snapshotLobbyState()})
}

func (a *Authority) snapshotLobbyState() protocol.LobbyState {
	state := a.lobby.snapshot()
	state.ServerMeta = a.snapshotServerMeta()
	return state
}

func (a *Authority) snapshotServerMeta() *protocol.ServerMeta {
	return &protocol.ServerMeta{
		AutoStart:     a.cfg.AutoStart,
		MinPlayers:    a.cfg.MinPlayers,
		ReadyRequired: a.cfg.ReadyRequired,
		ReadyTimeout:  a.cfg.ReadyTimeout,
		StartDelay:    a.cfg.StartDelay,
		ResetDelay:    a.cfg.ResetDelay,
		AutoStartIn:   a.autoStartIn,
		LobbyLocked:   a.lobbyLocked,
		JoinLocked:    a.joinLocked,
	}
}

func (a *Authority) isHost(id string) bool {
	return a.lobby.hostID == id && id != ""
}

func (a *Authority) logf(format string, args ...interface{}) {
	log.Printf("authority: "+format, args...)
}
