package handlers

import (
	"net/http"

	"wallet/internal/config"
	"wallet/internal/gateway"
	"wallet/internal/middleware"
	"wallet/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	cfg     config.Config
	service WalletService
	gateway gateway.Gateway
	audit   AuditStore
	hub     *websocket.Hub
	logger  *zap.Logger
}

func New(cfg config.Config, service WalletService, gw gateway.Gateway, audit AuditStore, hub *websocket.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
		gateway: gw,
		audit:   audit,
		hub:     hub,
		logger:  logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/webhooks/gateway", h.GatewayWebhook)

	router.Route("/wallet", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/balance", h.GetBalance)
		r.Get("/transactions", h.ListTransactions)
		r.Post("/topups", h.CreateTopUp)
		r.Get("/topups/{intentID}", h.GetTopUpStatus)
		r.Post("/purchases", h.CreatePurchase)
	})
	router.Get("/ws/wallet", h.WSWallet)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Use(middleware.RequireAdmin())
		r.Post("/accounts", h.CreateAccount)
		r.Post("/adjustments", h.CreateAdjustment)
		r.Get("/reconcile", h.Reconcile)
		r.Get("/audit", h.ListAuditLogs)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
