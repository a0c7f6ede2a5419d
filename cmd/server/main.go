package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trade-dashboard-go/internal/auth"
	"trade-dashboard-go/internal/config"
	"trade-dashboard-go/internal/database"
	"trade-dashboard-go/internal/logger"
	"trade-dashboard-go/internal/notify"
	"trade-dashboard-go/internal/server"
	"trade-dashboard-go/internal/service"
	"trade-dashboard-go/internal/store"
	"trade-dashboard-go/internal/telegram"
	"trade-dashboard-go/internal/ws"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize the Telegram notification relay. Chat is a side-channel:
	// a misconfigured bot downgrades to a no-op relay instead of aborting.
	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Telegram.Enabled {
		tgClient := telegram.NewClient(&cfg.Telegram, log)
		checkCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if username, err := tgClient.GetMe(checkCtx); err != nil {
			log.Warn("Telegram connectivity check failed, notifications may be dropped", zap.Error(err))
		} else {
			log.Info("Connected to Telegram", zap.String("bot", username))
		}
		cancel()
		timeout := time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second
		notifier = notify.NewRelay(tgClient, timeout, log)
	} else {
		log.Warn("Telegram notifications disabled")
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Wire the core: store -> service -> handlers
	hub := ws.NewHub(log)
	defer hub.Close()

	st := store.NewStore(db)
	svc := service.NewTradeService(log, st, notifier, hub, cfg.Retention)
	sessions := auth.NewSessions(cfg.Auth)
	api := server.NewAPIHandler(log, svc, sessions)

	srv := server.NewServer(cfg.Server.Port, log, api, sessions, hub)
	if err := srv.Run(ctx); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
