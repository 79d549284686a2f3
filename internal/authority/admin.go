package authority

import "time"

const forceStartRateLimit = 1 * time.Second

// Status is the snapshot returned by GET /status (§4.I).
type Status struct {
	PlayerCount   int
	MatchActive   bool
	LobbyLocked   bool
	JoinLocked    bool
	AutoStartIn   *int
	Config        Config
	UptimeSeconds float64
}

var processStart = time.Now()

// adminStep runs one iteration of the auto-start/reset state machine
// (§4.I). Caller holds a.mu.
func (a *Authority) adminStep() {
	now := a.now()

	if a.match != nil && a.match.Active {
		a.minPlayersSince = nil
		a.eligibleSince = nil
		a.autoStartIn = nil
		return
	}

	if a.match != nil && !a.match.Active && a.pendingResetAt == nil {
		at := now.Add(time.Duration(a.cfg.ResetDelay * float64(time.Second)))
		a.pendingResetAt = &at
	}
	if a.pendingResetAt != nil {
		if now.After(*a.pendingResetAt) || now.Equal(*a.pendingResetAt) {
			a.resetLobbyLocked()
			a.pendingResetAt = nil
		}
		return
	}

	if !a.cfg.AutoStart {
		a.autoStartIn = nil
		return
	}

	count := len(a.lobby.order)
	if count < a.cfg.MinPlayers {
		a.minPlayersSince = nil
		a.eligibleSince = nil
		a.autoStartIn = nil
		return
	}
	if a.minPlayersSince == nil {
		t := now
		a.minPlayersSince = &t
	}

	eligible := true
	if a.cfg.ReadyRequired && !a.lobby.allReady() {
		eligible = a.cfg.ReadyTimeout > 0 && now.Sub(*a.minPlayersSince).Seconds() >= a.cfg.ReadyTimeout
	}

	if !eligible {
		a.eligibleSince = nil
		a.autoStartIn = nil
		return
	}

	if a.eligibleSince == nil {
		t := now
		a.eligibleSince = &t
	}
	remaining := a.cfg.StartDelay - now.Sub(*a.eligibleSince).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	r := int(remaining)
	a.autoStartIn = &r

	if now.Sub(*a.eligibleSince).Seconds() >= a.cfg.StartDelay {
		a.forceStartLocked("")
	}
}

// Kick removes a player from the lobby (idempotent: no-op if unknown).
func (a *Authority) Kick(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.conns[id]; ok {
		c.Close()
	}
	delete(a.conns, id)
	a.lobby.onDisconnect(id)
	a.publishLobbyStateLocked()
}

// ForceStart starts a match immediately, rate-limited to once per second
// (§5 Cancellation & timeouts, S5).
func (a *Authority) ForceStart(seed string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.forceStartLocked(seed)
}

func (a *Authority) forceStartLocked(seed string) bool {
	now := a.now()
	if now.Sub(a.lastForceStart) < forceStartRateLimit {
		return false
	}
	if a.match != nil && a.match.Active {
		return false
	}
	if len(a.lobby.order) == 0 {
		return false
	}
	a.lastForceStart = now
	host := a.lobby.hostID
	if host == "" {
		host = a.lobby.order[0]
		a.lobby.hostID = host
	}
	a.startMatchLocked(host, seed)
	return true
}

// ResetLobby clears match/duel state and every player's ready flag
// (§4.I).
func (a *Authority) ResetLobby() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLobbyLocked()
}

func (a *Authority) resetLobbyLocked() {
	a.match = nil
	a.duels = make(map[string]*DuelRecord)
	a.duelRequests = make(map[string]*DuelRequest)
	a.winnerCache = ""
	a.npcWinnerCache = false
	a.minPlayersSince = nil
	a.eligibleSince = nil
	a.autoStartIn = nil
	a.lobby.resetReady()
	a.publishLobbyStateLocked()
}

// SetLobbyLock toggles join-gating.
func (a *Authority) SetLobbyLock(locked bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lobbyLocked = locked
	a.publishLobbyStateLocked()
}

// ConfigPatch carries only the fields present in a partial update (§8
// "update_config(partial) merges").
type ConfigPatch struct {
	AutoStart     *bool
	MinPlayers    *int
	ReadyRequired *bool
	ReadyTimeout  *float64
	StartDelay    *float64
	ResetDelay    *float64
	MapName       *string
}

// UpdateConfig merges patch into the current config, leaving absent
// fields untouched.
func (a *Authority) UpdateConfig(patch ConfigPatch) Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	if patch.AutoStart != nil {
		a.cfg.AutoStart = *patch.AutoStart
	}
	if patch.MinPlayers != nil {
		a.cfg.MinPlayers = *patch.MinPlayers
	}
	if patch.ReadyRequired != nil {
		a.cfg.ReadyRequired = *patch.ReadyRequired
	}
	if patch.ReadyTimeout != nil {
		a.cfg.ReadyTimeout = *patch.ReadyTimeout
	}
	if patch.StartDelay != nil {
		a.cfg.StartDelay = *patch.StartDelay
	}
	if patch.ResetDelay != nil {
		a.cfg.ResetDelay = *patch.ResetDelay
	}
	if patch.MapName != nil {
		a.cfg.MapName = *patch.MapName
		a.lobby.mapName = *patch.MapName
	}
	a.publishLobbyStateLocked()
	return a.cfg
}

// GetStatus reports the operator-visible snapshot (§4.I get_status).
func (a *Authority) GetStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		PlayerCount:   len(a.lobby.order),
		MatchActive:   a.match != nil && a.match.Active,
		LobbyLocked:   a.lobbyLocked,
		JoinLocked:    a.joinLocked,
		AutoStartIn:   a.autoStartIn,
		Config:        a.cfg,
		UptimeSeconds: time.Since(processStart).Seconds(),
	}
}
