// roomwatch connects to the server, subscribes, and logs the derived
// views for one room until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/client"
	"github.com/playroom-app/playroom-client/internal/config"
	"github.com/playroom-app/playroom-client/internal/views"
)

func main() {
	code := flag.String("room", "VWXYZ", "room code to watch")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := cfg.Logger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	c, err := client.New(cfg, log)
	if err != nil {
		log.Fatal("client init failed", zap.Error(err))
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.Views.Roster.Subscribe(func(u views.RosterUpdate) {
		for _, e := range u.Entries {
			log.Info("roster",
				zap.Uint64("room", u.RoomID),
				zap.String("player", e.Username),
				zap.String("role", string(e.Member.Role)),
				zap.Int64("xp", e.XP))
		}
	})
	c.Views.Availability.Subscribe(func(u views.AvailabilityUpdate) {
		names := make([]string, 0, len(u.Activities))
		for _, a := range u.Activities {
			names = append(names, a.Activity.Name)
		}
		log.Info("available activities", zap.Uint64("room", u.RoomID), zap.Strings("activities", names))
	})
	c.Views.ActiveActivity.Subscribe(func(u views.ActiveActivityUpdate) {
		if u.Detail == nil {
			log.Info("no active activity", zap.Uint64("room", u.RoomID))
			return
		}
		log.Info("active activity",
			zap.Uint64("room", u.RoomID),
			zap.String("activity", u.Detail.ActivityName),
			zap.String("status", string(u.Detail.RoomActivity.Status)),
			zap.Int("participants", len(u.Detail.Participants)))
	})
	c.Conn.Exhausted.Subscribe(func(attempts int) {
		log.Error("gave up reconnecting", zap.Int("attempts", attempts))
		stop()
	})

	if err := c.Connect(ctx); err != nil {
		log.Warn("initial connect failed, retrying in background", zap.Error(err))
	}

	readyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := c.Conn.WaitReady(readyCtx); err != nil {
		log.Fatal("never became ready", zap.Error(err))
	}

	if ok := c.AwaitSync(ctx, func() bool {
		_, found := c.Mirror.RoomByCode(*code)
		return found
	}); !ok {
		log.Warn("room not mirrored yet, watching anyway", zap.String("code", *code))
	} else {
		room, _ := c.Mirror.RoomByCode(*code)
		log.Info("watching room", zap.String("code", room.Code), zap.String("name", room.Name))
	}

	<-ctx.Done()
	log.Info("shutting down")
}
