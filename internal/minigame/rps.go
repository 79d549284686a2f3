package minigame

import "math/rand"

// rpsChoices is the full move set for the rock/paper/scissors duel, the
// one minigame the authority itself understands (§4.E round resolution).
var rpsChoices = []string{"rock", "paper", "scissors"}

// rpsHooks is the built-in Hooks implementation for "rps_duel".
type rpsHooks struct{}

func init() {
	RegisterBuiltin(rpsHooks{})
}

func (rpsHooks) ID() string    { return "rps_duel" }
func (rpsHooks) Enabled() bool { return true }

func (rpsHooks) BuildMatchPayload(_ interface{}, participants []string) interface{} {
	return map[string]interface{}{"minigame": "rps_duel", "participants": participants}
}

func (rpsHooks) ResolveResult(result map[string]interface{}) (string, string, string, string) {
	str := func(k string) string {
		v, _ := result[k].(string)
		return v
	}
	return str("duel_id"), str("winner"), str("loser"), str("outcome")
}

// AIChoice picks a uniform-random move seeded deterministically by the
// caller's seed/round/participants, matching original_source's
// ai_choice hook contract.
func (rpsHooks) AIChoice(seed string, round int, participants []string) string {
	key := seed
	for _, p := range participants {
		key += "-" + p
	}
	rng := rand.New(rand.NewSource(hashSeed(key) + int64(round)))
	return rpsChoices[rng.Intn(len(rpsChoices))]
}

// Beats reports whether a beats b under rock/paper/scissors rules.
func Beats(a, b string) bool {
	switch a {
	case "rock":
		return b == "scissors"
	case "scissors":
		return b == "paper"
	case "paper":
		return b == "rock"
	}
	return false
}

// IsValidChoice reports whether s is a recognized rock/paper/scissors move.
func IsValidChoice(s string) bool {
	for _, c := range rpsChoices {
		if c == s {
			return true
		}
	}
	return false
}

func hashSeed(s string) int64 {
	var h int64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= int64(s[i])
		h *= 1099511628211
	}
	return h
}
