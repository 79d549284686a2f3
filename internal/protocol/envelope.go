// Package protocol defines the wire shape shared by every client
// connection: every line is a flat JSON object carrying a "type"
// discriminator alongside its own fields (no envelope nesting), matching
// the authority's line-delimited JSON transport.
package protocol

// Peek is decoded first from every inbound line to discover its type
// before the line is decoded a second time into the concrete payload.
type Peek struct {
	Type string `json:"type"`
}
