package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaminalder/codex-reversi/internal/app"
	"github.com/jaminalder/codex-reversi/internal/config"
	"github.com/jaminalder/codex-reversi/internal/log"
	"github.com/jaminalder/codex-reversi/internal/store"
	"github.com/jaminalder/codex-reversi/internal/web"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	level, _ := log.ParseLogLevel(cfg.LogLevel)
	log.SetLevel(level)

	ctx := context.Background()
	st, err := store.NewSQLiteStore(ctx, cfg.DBPath)
	if err != nil {
		log.Error("failed to open store at %s: %v", cfg.DBPath, err)
		os.Exit(1)
	}
	defer st.Close(ctx)
	log.Info("saved games at %s", cfg.DBPath)

	svc := app.NewService()
	svc.SetStore(st)
	lobby := app.NewLobby(svc, app.NewMatchmaker(cfg.MatchmakingTimeout), false)

	handler := web.NewServer(svc,
		web.WithLobby(lobby),
		web.WithDefaults(cfg.DefaultBoardSize, cfg.DefaultRules),
		web.WithHeartbeat(cfg.HeartbeatInterval),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown: %v", err)
	}
	log.Info("server exited")
}
