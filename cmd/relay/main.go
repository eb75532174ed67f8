package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"volley/auth"
	"volley/domain"
	"volley/server"
	"volley/telemetry"
	"volley/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	secret := utils.GetEnvDefault("JOIN_SECRET", "dev-secret")
	tournamentSizeStr := utils.GetEnvDefault("TOURNAMENT_SIZE", "0")
	tournamentSize, err := strconv.Atoi(tournamentSizeStr)
	if err != nil {
		slog.Error("invalid TOURNAMENT_SIZE", "value", tournamentSizeStr)
		os.Exit(1)
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, "volley-relay")
	if err != nil {
		slog.Error("telemetry setup failed", "err", err)
		os.Exit(1)
	}

	pubsub := domain.NewSimplePubSub()
	verifier := auth.NewVerifier([]byte(secret))

	lobby := server.NewLobby(pubsub, verifier, tournamentSize)
	go func() {
		if err := lobby.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "lobby error", "err", err)
		}
	}()

	handler := server.Route(pubsub)
	s := server.NewServer(fmt.Sprintf("%s:%s", addr, port), handler)

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "relay listening", "addr", addr+":"+port, "tournamentSize", tournamentSize)

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
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "telemetry shutdown failed", "error", err)
	}
	slog.InfoContext(ctx, "relay shutdown complete")
}
