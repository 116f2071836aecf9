package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/gateway"
	"github.com/playroom-app/playroom-client/internal/wire"
)

func setupRoutes(h *feedHub, tables *stubTables, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Get("/subscribe", subscribeHandler(h, tables, log))
	r.Post("/call/{reducer}", callHandler(h, tables, log))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func subscribeHandler(h *feedHub, tables *stubTables, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan []byte, 16)
		reply := make(chan int, 1)
		h.Inbox() <- join{Outbox: out, Reply: reply}
		clientID := <-reply
		defer func() { h.Inbox() <- leave{ID: clientID} }()

		// Handshake first: identity matching the seeded demo user.
		handshake, _ := json.Marshal(wire.ServerFrame{IdentityToken: &wire.IdentityToken{
			Identity: json.RawMessage(`{"__identity__":"0xC0FFEE01"}`),
			Token:    "stub-token",
		}})
		if err := write(r.Context(), conn, handshake); err != nil {
			return
		}

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for payload := range out {
				_ = write(writeCtx, conn, payload)
			}
		}()

		// Reader loop: only Subscribe requests come from clients.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
			var cf wire.ClientFrame
			if err := json.Unmarshal(data, &cf); err != nil || cf.Subscribe == nil {
				log.Warn("ignoring unexpected client frame")
				continue
			}
			sub := cf.Subscribe
			var payload []byte
			if categoryOnly(sub.QueryStrings) {
				payload = tables.snapshot(sub.RequestID, wire.CategoryTable)
			} else {
				payload = tables.snapshot(sub.RequestID)
			}
			_ = write(r.Context(), conn, payload)
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, payload []byte) error {
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}

func callHandler(h *feedHub, tables *stubTables, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "reducer")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		var args []json.RawMessage
		if len(body) > 0 {
			if err := json.Unmarshal(body, &args); err != nil {
				http.Error(w, "args must be a JSON array", http.StatusBadRequest)
				return
			}
		}

		// Exercise the client's rotation path on every call.
		w.Header().Set(gateway.HeaderToken, "stub-token")

		frame, err := tables.applyReducer(name, args)
		if err != nil {
			log.Info("reducer rejected", zap.String("reducer", name), zap.Error(err))
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.Inbox() <- broadcast{Payload: frame}
		w.WriteHeader(http.StatusOK)
	}
}
