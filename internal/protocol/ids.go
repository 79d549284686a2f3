package protocol

import "github.com/google/uuid"

// NewID mints an opaque hex identifier for players, duels and match seeds.
// The wire format never assumes any structure beyond "opaque text", so a
// plain UUIDv4 hex string (mirroring original_source's uuid.uuid4().hex)
// is used throughout.
func NewID() string {
	u := uuid.New()
	return hex(u[:])
}

// NewSeed mints a 32-hex-character match seed, matching the "32-hex,
// provided or randomly sampled" shape §4.D requires.
func NewSeed() string {
	u := uuid.New()
	return hex(u[:])
}

func hex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0x0f]
	}
	return string(out)
}
