package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet/internal/cache"
	"wallet/internal/config"
	"wallet/internal/db"
	"wallet/internal/gateway"
	"wallet/internal/handlers"
	"wallet/internal/logger"
	"wallet/internal/metrics"
	"wallet/internal/services"
	"wallet/internal/store"
	"wallet/internal/websocket"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	accounts := store.NewAccountStore(database)
	transactions := store.NewTransactionStore(database)
	events := store.NewEventStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	gw := gateway.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if !cfg.PaymentsEnabled() {
		zlog.Warn("payment gateway not configured, top-ups disabled")
	}

	var topUpCache services.TopUpCache
	if cfg.RedisAddr != "" {
		redisCache := cache.New(cfg.RedisAddr)
		defer redisCache.Close()
		topUpCache = redisCache
	}

	m := metrics.New()
	service := services.NewWalletService(txRunner, accounts, transactions, events, audit, gw, topUpCache, hub, m, zlog, cfg.Currency, cfg.MinTopUpMinor)

	handler := handlers.New(cfg, service, gw, audit, hub, zlog)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("wallet API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Fatal("shutdown error", zap.Error(err))
	}
}
