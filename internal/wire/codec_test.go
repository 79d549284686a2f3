package wire

import (
	"bufio"
	"net"
	"testing"
	"time"
)

func pipeConns(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()
	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server = <-accepted
	return client, server
}

func TestSendAndRecvLine(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()
	defer server.Close()

	c := New(server)
	defer c.Close()

	c.Send("welcome", map[string]string{"type": "welcome", "player_id": "p1"})

	reader := bufio.NewReader(client)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line == "" {
		t.Fatal("expected non-empty line")
	}
}

func TestRecvLineFromPeer(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()
	defer server.Close()

	c := New(server)
	defer c.Close()

	client.Write([]byte(`{"type":"hello","name":"a"}` + "\n"))

	line, ok := c.RecvLine()
	if !ok {
		t.Fatal("expected a line")
	}
	if string(line) != `{"type":"hello","name":"a"}` {
		t.Fatalf("unexpected line: %s", line)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()

	c := New(server)
	c.Close()
	c.Close() // must not panic
}
