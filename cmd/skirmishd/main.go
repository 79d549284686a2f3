// Command skirmishd runs the authoritative match server: a raw TCP
// transport speaking line-delimited JSON (§4.A) plus an admin HTTP
// façade (§4.I). Wiring follows server/main.go's hub := srv.NewHub(); go
// hub.Run() shape, adapted from one websocket upgrade handler to a plain
// net.Listener accept loop.
package main

import (
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"skirmish/internal/admin"
	"skirmish/internal/authority"
	"skirmish/internal/config"
	"skirmish/internal/minigame"
	"skirmish/internal/protocol"
	"skirmish/internal/wire"
)

func main() {
	log.SetFlags(0)
	cmd := config.NewCommand(run)
	if err := cmd.Execute(); err != nil {
		log.Fatalf("skirmishd: %v", err)
	}
}

func run(cfg *config.Config) error {
	registry := minigame.Load(cfg.MinigamesDir)
	log.Printf("skirmishd: %s v%s — loaded minigames: %v", protocol.GameName, protocol.GameVersion, registry.IDs())

	auth := authority.New(registry, cfg.MapsDir, cfg.AuthorityConfig())

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return err
	}
	defer listener.Close()
	log.Printf("skirmishd: match transport listening on %s", cfg.Addr())

	adminServer := admin.New(auth, cfg.AdminAddr(), cfg.AdminToken)
	cfg.AdminToken = ""
	go func() {
		if err := adminServer.ListenAndServe(); err != nil {
			log.Printf("skirmishd: admin façade stopped: %v", err)
		}
	}()
	log.Printf("skirmishd: admin façade listening on %s", cfg.AdminAddr())

	stop := make(chan struct{})
	go auth.Run(stop)
	go auth.RunAdmin(stop)
	go acceptLoop(listener, auth)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("skirmishd: shutting down")
	close(stop)
	adminServer.Shutdown()
	return nil
}

func acceptLoop(listener net.Listener, auth *authority.Authority) {
	for {
		raw, err := listener.Accept()
		if err != nil {
			return
		}
		go serveConn(raw, auth)
	}
}

func serveConn(raw net.Conn, auth *authority.Authority) {
	conn := wire.New(raw)
	id := auth.Accept(conn)
	if id == "" {
		return
	}
	defer auth.Disconnect(id)

	for {
		line, ok := conn.RecvLine()
		if !ok {
			return
		}
		auth.HandleLine(id, line)
	}
}
