package authority

import "skirmish/internal/protocol"

// eliminate implements the Eliminator (§4.G). Callers already hold a.mu.
func (a *Authority) eliminate(id string) {
	if id == "" || a.match == nil {
		return
	}
	if info, ok := a.match.NpcBusy[id]; ok {
		delete(a.match.NpcBusy, id)
		delete(a.match.NpcBusy, info.Opponent)
	}

	e, ok := a.match.Entities[id]
	if !ok {
		a.match.EliminatedBots[id] = true
		a.broadcast("eliminate", protocol.EliminateMsg{Type: "eliminate", PlayerID: id})
		return
	}

	if !e.IsNPC {
		a.match.EliminatedHumans[id] = true
		a.broadcast("eliminate", protocol.EliminateMsg{Type: "eliminate", PlayerID: id})
		return
	}

	a.match.EliminatedBots[id] = true
	delete(a.match.Entities, id)
	delete(a.match.Inputs, id)
	a.broadcast("eliminate", protocol.EliminateMsg{Type: "eliminate", PlayerID: id})
}
