// Package admin exposes the headless admin façade over HTTP: GET /status
// and GET /healthz for operator visibility, POST /kick, /start, /reset,
// /config, /lock for lifecycle control. Routing follows Seednode-partybox's
// httprouter.New()+mux.GET/POST wiring; auth follows srv/auth.Auth's
// bcrypt-hashed-token pattern, generalized from a per-user password to a
// single shared operator token.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"skirmish/internal/authority"
)

// Server wires the Authority's admin operations to an HTTP mux.
type Server struct {
	auth       *Authority
	tokenHash  []byte // bcrypt hash of the configured admin token; nil when unauthenticated
	httpServer *http.Server
}

// Authority is the subset of *authority.Authority the façade calls.
type Authority = authority.Authority

// New builds the admin HTTP server. If token is empty, requests are
// accepted unauthenticated (§6: "iff a token is configured").
func New(a *authority.Authority, addr, token string) *Server {
	s := &Server{auth: a}
	if token != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err == nil {
			s.tokenHash = hash
		}
	}

	mux := httprouter.New()
	mux.GET("/healthz", s.handleHealthz)
	mux.GET("/status", s.requireToken(s.handleStatus))
	mux.POST("/kick", s.requireToken(s.handleKick))
	mux.POST("/start", s.requireToken(s.handleStart))
	mux.POST("/reset", s.requireToken(s.handleReset))
	mux.POST("/config", s.requireToken(s.handleConfig))
	mux.POST("/lock", s.requireToken(s.handleLock))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// ListenAndServe blocks serving the admin façade.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the admin façade.
func (s *Server) Shutdown() {
	_ = s.httpServer.Shutdown(context.Background())
}

func (s *Server) requireToken(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if s.tokenHash != nil {
			given := r.Header.Get("X-Admin-Token")
			if given == "" || bcrypt.CompareHashAndPassword(s.tokenHash, []byte(given)) != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r, p)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := s.auth.GetStatus()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"player_count":   status.PlayerCount,
		"match_active":   status.MatchActive,
		"lobby_locked":   status.LobbyLocked,
		"join_locked":    status.JoinLocked,
		"auto_start_in":  status.AutoStartIn,
		"uptime_seconds": status.UptimeSeconds,
		"config": map[string]interface{}{
			"auto_start":     status.Config.AutoStart,
			"min_players":    status.Config.MinPlayers,
			"ready_required": status.Config.ReadyRequired,
			"ready_timeout":  status.Config.ReadyTimeout,
			"start_delay":    status.Config.StartDelay,
			"reset_delay":    status.Config.ResetDelay,
			"map_name":       status.Config.MapName,
		},
	})
}

type kickReq struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req kickReq
	if json.NewDecoder(r.Body).Decode(&req) != nil || req.PlayerID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.auth.Kick(req.PlayerID)
	writeOK(w, true)
}

type startReq struct {
	Seed string `json:"seed,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req startReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	ok := s.auth.ForceStart(req.Seed)
	writeOK(w, ok)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.auth.ResetLobby()
	writeOK(w, true)
}

type lockReq struct {
	Locked bool `json:"locked"`
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req lockReq
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.auth.SetLobbyLock(req.Locked)
	writeOK(w, true)
}

type configReq struct {
	AutoStart     *bool    `json:"auto_start"`
	MinPlayers    *int     `json:"min_players"`
	ReadyRequired *bool    `json:"ready_required"`
	ReadyTimeout  *float64 `json:"ready_timeout"`
	StartDelay    *float64 `json:"start_delay"`
	ResetDelay    *float64 `json:"reset_delay"`
	MapName       *string  `json:"map_name"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req configReq
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	cfg := s.auth.UpdateConfig(authority.ConfigPatch{
		AutoStart:     req.AutoStart,
		MinPlayers:    req.MinPlayers,
		ReadyRequired: req.ReadyRequired,
		ReadyTimeout:  req.ReadyTimeout,
		StartDelay:    req.StartDelay,
		ResetDelay:    req.ResetDelay,
		MapName:       req.MapName,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg)
}

func writeOK(w http.ResponseWriter, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusConflict)
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": ok})
}
