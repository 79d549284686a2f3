package admin

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skirmish/internal/authority"
	"skirmish/internal/minigame"
	"skirmish/internal/wire"
)

func newTestServer(t *testing.T, token string) (*Server, *authority.Authority) {
	t.Helper()
	registry := minigame.Load("../../data/minigames")
	a := authority.New(registry, "../../data/maps", authority.DefaultConfig())
	return New(a, "127.0.0.1:0", token), a
}

func TestHealthzUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", w.Code)
	}
}

func TestStatusRejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d want 401", w.Code)
	}
}

func TestStatusAcceptsValidToken(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-Admin-Token", "secret")
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", w.Code)
	}
}

func TestNoTokenConfiguredAllowsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d want 200", w.Code)
	}
}

func TestForceStartRateLimited(t *testing.T) {
	s, a := newTestServer(t, "")

	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := clientSide.Read(buf); err != nil {
				return
			}
		}
	}()
	a.Accept(wire.New(serverSide))

	body := strings.NewReader(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/start", body)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	first := w.Code

	body2 := strings.NewReader(`{}`)
	req2 := httptest.NewRequest(http.MethodPost, "/start", body2)
	w2 := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w2, req2)
	second := w2.Code

	if first != http.StatusConflict && second != http.StatusConflict {
		t.Fatalf("expected at least one rate-limited/conflict response, got %d then %d", first, second)
	}
}
