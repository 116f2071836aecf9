// stubserver speaks the subscription and reducer protocols against a
// seeded in-memory dataset, for developing the client without a real
// backend.
package main

import (
	"net/http"
	"os"

	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	addr := os.Getenv("STUBSERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	hub := newFeedHub()
	tables := newStubTables()
	handler := setupRoutes(hub, tables, log)

	log.Info("stubserver listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal("serve failed", zap.Error(err))
	}
}
