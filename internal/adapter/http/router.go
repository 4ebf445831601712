package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/corebank/internal/adapter/http/handler"
	"github.com/iho/corebank/internal/adapter/http/middleware"
	"github.com/iho/corebank/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler  *handler.AccountHandler
	LedgerHandler   *handler.LedgerHandler
	TransferHandler *handler.TransferHandler
	HealthHandler   *handler.HealthHandler
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	// Health and operational endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Post("/{id}/deposit", cfg.LedgerHandler.Deposit)
			r.Post("/{id}/withdraw", cfg.LedgerHandler.Withdraw)
			r.Get("/{id}/balance", cfg.LedgerHandler.GetBalance)
			r.Get("/{id}/transactions", cfg.LedgerHandler.GetHistory)
			r.Get("/{id}/verify", cfg.LedgerHandler.Verify)
			r.Get("/{id}/transfers", cfg.TransferHandler.ListByAccount)
		})

		// Transfers
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", cfg.TransferHandler.Create)
			r.Get("/{id}", cfg.TransferHandler.Get)
			r.Post("/{id}/cancel", cfg.TransferHandler.Cancel)
			r.Post("/{id}/reverse", cfg.TransferHandler.Reverse)
		})

		// Recurring transfers
		r.Route("/recurring-transfers", func(r chi.Router) {
			r.Post("/", cfg.TransferHandler.CreateRecurring)
			r.Post("/{id}/cancel", cfg.TransferHandler.CancelRecurring)
		})

		// Ledger-wide consistency check
		r.Get("/ledger/consistency", cfg.LedgerHandler.Consistency)
	})

	return r
}
