package main

import (
	"fmt"
	"log"
	"net/http"

	"lingua-chat-backend/internal/config"
	"lingua-chat-backend/internal/server"
)

func main() {
	cfg := config.Load()
	s, err := server.New(cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	defer s.Close()
	addr := ":" + cfg.Port
	fmt.Printf("LINGUA chat relay listening on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, s.Router()))
}
