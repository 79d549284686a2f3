package authority

// relayDuelActionLocked fans a duel_action out to every connected client
// with from=sender appended; the authority never interprets the inner
// payload (§4.E/§4.F).
func (a *Authority) relayDuelActionLocked(sender string, raw map[string]interface{}) {
	duelID, _ := raw["duel_id"].(string)
	if duelID == "" {
		return
	}
	rec, ok := a.duels[duelID]
	if !ok {
		return
	}
	if rec.Participants[0] != sender && rec.Participants[1] != sender {
		return
	}
	raw["type"] = "duel_action"
	raw["from"] = sender
	a.broadcastRaw(raw)
}

// relayMinigameResultLocked rebroadcasts a minigame_result payload as-is
// (§6).
func (a *Authority) relayMinigameResultLocked(sender string, raw map[string]interface{}) {
	raw["type"] = "minigame_result"
	raw["from"] = sender
	a.broadcastRaw(raw)
}
