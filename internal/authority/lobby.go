package authority

import (
	"fmt"
	"time"
	"unicode/utf8"

	"skirmish/internal/protocol"
)

// reconnectGrace bounds how long a departed player's character selection
// can be reclaimed by a fresh connection bearing a valid
// session token (§2.G).
const reconnectGrace = 30 * time.Second

type departedPlayer struct {
	player *lobbyPlayer
	at     time.Time
}

// lobbyPlayer is the server-side record for one connected player. It
// carries the session token as a field never copied onto the outbound
// protocol.LobbyPlayer (§3.E — never broadcast).
type lobbyPlayer struct {
	id           string
	name         string
	ready        bool
	charName     string
	sessionToken string
}

// lobby tracks LobbyState: connected players in join order, the pinned
// map/mode, and the host designation (§3, §4.B).
type lobby struct {
	order       []string
	players     map[string]*lobbyPlayer
	hostID      string
	mapName     string
	mode        string
	allowNpc    bool
	nextSeq     int
	recentlyLeft map[string]departedPlayer
}

func newLobby() lobby {
	return lobby{
		players:      make(map[string]*lobbyPlayer),
		mapName:      "test_arena",
		mode:         "tournament",
		recentlyLeft: make(map[string]departedPlayer),
	}
}

// onAccept assigns a fresh player slot with a default name and, if this is
// the first player, becomes host.
func (l *lobby) onAccept(id string) *lobbyPlayer {
	l.nextSeq++
	p := &lobbyPlayer{id: id, name: fmt.Sprintf("Player %d", l.nextSeq)}
	l.players[id] = p
	l.order = append(l.order, id)
	if l.hostID == "" {
		l.hostID = id
	}
	return p
}

// hello sets the display name, truncated to 24 codepoints; empty becomes
// "Player".
func (l *lobby) hello(id, name string) {
	p, ok := l.players[id]
	if !ok {
		return
	}
	name = truncateRunes(name, 24)
	if name == "" {
		name = "Player"
	}
	p.name = name
}

func (l *lobby) setReady(id string, ready bool) {
	if p, ok := l.players[id]; ok {
		p.ready = ready
	}
}

func (l *lobby) setChar(id, charName string) {
	if p, ok := l.players[id]; ok {
		p.charName = truncateRunes(charName, 32)
	}
}

// onDisconnect removes the player and, if they were host, promotes the
// first remaining player in join order. The departing player's record is
// remembered briefly so a reconnecting client presenting a valid session
// token can reclaim its character selection (§2.G).
func (l *lobby) onDisconnect(id string) {
	p, ok := l.players[id]
	if !ok {
		return
	}
	l.recentlyLeft[id] = departedPlayer{player: p, at: time.Now()}
	delete(l.players, id)
	for i, pid := range l.order {
		if pid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	if l.hostID == id {
		l.hostID = ""
		if len(l.order) > 0 {
			l.hostID = l.order[0]
		}
	}
}

func (l *lobby) allReady() bool {
	if len(l.order) == 0 {
		return false
	}
	for _, id := range l.order {
		if !l.players[id].ready {
			return false
		}
	}
	return true
}

func (l *lobby) playerIDs() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

func (l *lobby) resetReady() {
	for _, p := range l.players {
		p.ready = false
	}
}

// reclaim copies a departed player's character selection onto id if
// prevID's departure is still within reconnectGrace; stale entries are
// dropped as a side effect. The ready flag is deliberately NOT restored —
// a fresh connection always re-enters the lobby as not-ready (§2.G).
func (l *lobby) reclaim(id, prevID string) {
	dep, ok := l.recentlyLeft[prevID]
	if !ok {
		return
	}
	delete(l.recentlyLeft, prevID)
	if time.Since(dep.at) > reconnectGrace {
		return
	}
	p, ok := l.players[id]
	if !ok {
		return
	}
	p.charName = dep.player.charName
}

// snapshot builds the outbound LobbyState (ServerMeta is attached by the
// caller).
func (l *lobby) snapshot() protocol.LobbyState {
	players := make([]protocol.LobbyPlayer, 0, len(l.order))
	for _, id := range l.order {
		p := l.players[id]
		players = append(players, protocol.LobbyPlayer{
			PlayerID: p.id,
			Name:     p.name,
			Ready:    p.ready,
			CharName: p.charName,
		})
	}
	return protocol.LobbyState{
		MapName:  l.mapName,
		Mode:     l.mode,
		AllowNpc: l.allowNpc,
		HostID:   l.hostID,
		Players:  players,
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
