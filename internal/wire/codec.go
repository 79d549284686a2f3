// Package wire frames newline-delimited JSON messages over a stream
// connection. Each Conn owns exactly one writer goroutine so concurrent
// senders never interleave bytes on the socket — the same shape as the
// teacher's per-client send channel + writer goroutine, adapted from a
// websocket frame to a raw net.Conn line.
package wire

import (
	"bufio"
	"encoding/json"
	"log"
	"net"
)

// sendBuffer is the depth of each connection's outbound queue. A full
// queue drops the newest message rather than blocking the sender, matching
// the teacher's non-blocking sendJSON.
const sendBuffer = 64

// Conn wraps a single client connection: a read side decoded line by line
// by the caller via RecvLine, and a write side serialized through an internal
// goroutine so multiple callers can enqueue with Send concurrently.
type Conn struct {
	raw    net.Conn
	reader *bufio.Scanner
	send   chan []byte
	closed chan struct{}
}

// New wraps conn and starts its writer goroutine.
func New(conn net.Conn) *Conn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	c := &Conn{
		raw:    conn,
		reader: scanner,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Conn) writeLoop() {
	for {
		select {
		case line, ok := <-c.send:
			if !ok {
				return
			}
			if _, err := c.raw.Write(line); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Send marshals v and enqueues it for delivery; typ only labels the log
// line on a marshal error, v must carry its own "type" field. Errors
// on marshal are logged and dropped; the connection is never torn down for
// a malformed outbound payload (errors on send/peer reset close the
// connection instead, per §4.A).
func (c *Conn) Send(typ string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("wire: marshal %s: %v", typ, err)
		return
	}
	// v already carries its own "type" field by convention; Send just
	// frames and enqueues.
	line := append(b, '\n')
	select {
	case c.send <- line:
	default:
		// queue full: drop newest rather than block the caller.
	}
}

// SendRaw marshals a generic JSON object and enqueues it as one line; used
// for relayed payloads the authority does not decode into a typed struct.
func (c *Conn) SendRaw(obj map[string]interface{}) {
	b, err := json.Marshal(obj)
	if err != nil {
		return
	}
	line := append(b, '\n')
	select {
	case c.send <- line:
	default:
	}
}

// RecvLine blocks for the next line on the connection and returns a copy of
// its raw bytes, undecoded; the caller decides whether the line is valid
// JSON. It returns false once the connection is closed or fails.
func (c *Conn) RecvLine() ([]byte, bool) {
	if !c.reader.Scan() {
		return nil, false
	}
	line := c.reader.Bytes()
	out := make([]byte, len(line))
	copy(out, line)
	return out, true
}

// Close tears down both directions of the connection. Safe to call more
// than once.
func (c *Conn) Close() {
	select {
	case <-c.closed:
		return
	default:
		close(c.closed)
	}
	_ = c.raw.Close()
}

// RemoteAddr reports the peer address for logging.
func (c *Conn) RemoteAddr() string {
	if c.raw == nil {
		return ""
	}
	return c.raw.RemoteAddr().String()
}
