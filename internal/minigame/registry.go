// Package minigame discovers minigames that opt into multiplayer and
// exposes the small hook surface the authority is allowed to call: id,
// enabled flag, build-payload, resolve-result, and ai-choice (§4.J).
//
// original_source dynamically imports each minigame's multiplayer.py and
// reads module attributes off it (minigames/shared/multiplayer_registry.py).
// Go has no equivalent of exec-a-file-and-read-its-globals, so discovery
// here reads a static manifest.json per minigame directory instead, and
// any behavior beyond the manifest's enabled flag is supplied by a
// compiled-in Hooks implementation registered under the same minigame_id
// (falling back to a no-op Hooks otherwise) — the same shape as
// multiplayer_registry.py's get_minigame_hooks/_Fallback.
package minigame

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FallbackMinigames is the wheel used when discovery finds nothing —
// mirrors original_source's FALLBACK_MINIGAMES.
var FallbackMinigames = []string{"rps_duel"}

// manifest mirrors the {minigame_id, multiplayer_enabled} shape §4.J
// names.
type manifest struct {
	MinigameID         string `json:"minigame_id"`
	MultiplayerEnabled bool   `json:"multiplayer_enabled"`
}

// Hooks is the only surface the authority is allowed to invoke on a
// minigame.
type Hooks interface {
	ID() string
	Enabled() bool
	BuildMatchPayload(hostState interface{}, participants []string) interface{}
	ResolveResult(result map[string]interface{}) (duelID, winner, loser, outcome string)
	AIChoice(seed string, round int, participants []string) string
}

// fallbackHooks implements Hooks for a manifest with no compiled-in
// implementation, mirroring multiplayer_registry.py's _Fallback class.
type fallbackHooks struct {
	id      string
	enabled bool
}

func (f *fallbackHooks) ID() string      { return f.id }
func (f *fallbackHooks) Enabled() bool   { return f.enabled }
func (f *fallbackHooks) BuildMatchPayload(_ interface{}, participants []string) interface{} {
	return map[string]interface{}{"minigame": f.id, "participants": participants}
}
func (f *fallbackHooks) ResolveResult(result map[string]interface{}) (string, string, string, string) {
	str := func(k string) string {
		v, _ := result[k].(string)
		return v
	}
	return str("duel_id"), str("winner"), str("loser"), str("outcome")
}
func (f *fallbackHooks) AIChoice(string, int, []string) string { return "" }

// Registry is the set of multiplayer-enabled minigames discovered at
// startup; it is read-only after Load returns (§5, "minigame registry is
// read-only after startup").
type Registry struct {
	ids   []string // sorted, stable wheel population order
	hooks map[string]Hooks
}

// builtins is populated by minigame implementations in this package via
// RegisterBuiltin (see rps.go's init).
var builtins = map[string]Hooks{}

// RegisterBuiltin wires a compiled-in Hooks implementation for a
// minigame_id, to be used when that ID's manifest is discovered on disk.
func RegisterBuiltin(h Hooks) {
	builtins[h.ID()] = h
}

// Load walks dir for minigame subdirectories carrying a manifest.json and
// builds the registry. Directories named "template" or "shared", or
// lacking a manifest, are skipped — mirroring discover_multiplayer_minigames'
// "__"/"shared"/missing-descriptor skip rules.
func Load(dir string) *Registry {
	r := &Registry{hooks: map[string]Hooks{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return withFallback(r)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "template" || name == "shared" || strings.HasPrefix(name, "_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name, "manifest.json"))
		if err != nil {
			continue
		}
		var m manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		id := m.MinigameID
		if id == "" {
			id = name
		}
		if !m.MultiplayerEnabled {
			continue
		}
		hooks, ok := builtins[id]
		if !ok {
			hooks = &fallbackHooks{id: id, enabled: true}
		}
		r.ids = append(r.ids, id)
		r.hooks[id] = hooks
	}
	sort.Strings(r.ids)
	if len(r.ids) == 0 {
		return withFallback(r)
	}
	return r
}

func withFallback(r *Registry) *Registry {
	r.ids = append([]string{}, FallbackMinigames...)
	for _, id := range r.ids {
		if h, ok := builtins[id]; ok {
			r.hooks[id] = h
		} else {
			r.hooks[id] = &fallbackHooks{id: id, enabled: true}
		}
	}
	return r
}

// IDs returns the discovered minigame IDs, stable order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Hooks returns the hook implementation for id, or nil if unknown.
func (r *Registry) Hooks(id string) Hooks {
	return r.hooks[id]
}

// PickWheel samples up to `slots` minigame IDs without replacement from
// the registry using rng, mirroring pick_minigame_wheel. If the registry
// is empty, the caller falls back to a singleton ["rps_duel"] (§4.E).
func (r *Registry) PickWheel(rng *rand.Rand, slots int) []string {
	candidates := r.IDs()
	if len(candidates) == 0 {
		return nil
	}
	if slots > len(candidates) {
		slots = len(candidates)
	}
	shuffled := append([]string{}, candidates...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:slots]
}
