package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"maelstrom/domain"
	"maelstrom/game"
	"maelstrom/registry"
	"maelstrom/repository/memory"
	"maelstrom/server"
	"maelstrom/utils"
)

const (
	snapshotSweepInterval = 5 * time.Minute
	defaultSnapshotTTL    = 30 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	snapshotTTL := utils.GetEnvDurationDefault("SNAPSHOT_TTL", defaultSnapshotTTL)

	hub := domain.NewHub()
	snapshots := memory.NewSnapshotStore()
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	reg := registry.NewRegistry(hub, snapshots, rng, game.Config{})
	app := server.NewApp(reg)

	mux := server.Route(hub, app, reg)
	s := server.NewServer(fmt.Sprintf("%s:%s", addr, port), mux)

	// 再接続されないまま放置されたスナップショットを定期的に掃除する
	go func() {
		ticker := time.NewTicker(snapshotSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := snapshots.SweepOlderThan(snapshotTTL); n > 0 {
					slog.InfoContext(ctx, "stale snapshots swept", "count", n)
				}
			}
		}
	}()

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "server listening", "addr", s.Addr())

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	slog.InfoContext(ctx, "shutdown complete")
}
