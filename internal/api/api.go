package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"portval/pkg/portval"
)

// Options tunes the router.
type Options struct {
	Logger *slog.Logger
	// TradePriceFallback is applied when a trade request omits
	// fallback_to_previous_price.
	TradePriceFallback bool
}

// NewRouter builds the HTTP API router.
func NewRouter(core *portval.Core) http.Handler {
	return NewRouterWithOptions(core, Options{})
}

// NewRouterWithOptions builds the HTTP API router with explicit options.
func NewRouterWithOptions(core *portval.Core, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil && core != nil {
		logger = core.Logger()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	h := &handler{core: core, logger: logger, tradeFallback: opts.TradePriceFallback}

	r.Get("/api/health", h.health)

	r.Get("/api/portfolios", h.listPortfolios)
	r.Route("/api/portfolios/{id}", func(r chi.Router) {
		r.Get("/initial-units", h.getInitialUnits)
		r.Get("/time-series", h.getTimeSeries)
		r.Get("/chart", h.getChart)
		r.Get("/valuation", h.getValuation)
		r.Post("/trade", h.applyTrade)
	})

	r.Get("/api/operation-logs", h.getOperationLogs)

	return r
}

type handler struct {
	core          *portval.Core
	logger        *slog.Logger
	tradeFallback bool
}
