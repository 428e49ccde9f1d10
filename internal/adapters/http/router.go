package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loadhaul/platform/services/payments-service/internal/application"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

// Handler is the HTTP adapter entrypoint for the marketplace payment use-cases.
// Keeping only application dependencies here preserves clean adapter boundaries.
type Handler struct {
	service            *application.Service
	jwtSecret          []byte
	rateLimits         ports.RateLimitStore
	rateLimitPerMinute int
	readyCheck         func(context.Context) error
}

type HandlerOptions struct {
	JWTSecret          []byte
	RateLimits         ports.RateLimitStore
	RateLimitPerMinute int
	// ReadyCheck pings downstream dependencies for /readyz.
	ReadyCheck func(context.Context) error
}

func NewHandler(service *application.Service, opts HandlerOptions) *Handler {
	perMinute := opts.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 120
	}
	return &Handler{
		service:            service,
		jwtSecret:          opts.JWTSecret,
		rateLimits:         opts.RateLimits,
		rateLimitPerMinute: perMinute,
		readyCheck:         opts.ReadyCheck,
	}
}

// NewRouter registers the HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/payments/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Use(handler.rateLimitMiddleware)

		r.Post("/loads", handler.createLoad)
		r.Get("/loads/{load_id}", handler.getLoad)
		r.Post("/loads/{load_id}/status", handler.transitionLoad)
		r.Post("/loads/{load_id}/bids", handler.placeBid)
		r.Get("/loads/{load_id}/bids", handler.listBids)
		r.Post("/loads/{load_id}/documents", handler.attachDocument)
		r.Get("/loads/{load_id}/payment", handler.getPayment)
		r.Post("/loads/{load_id}/release", handler.releasePayment)
		r.Post("/loads/{load_id}/payout", handler.createPayout)
		r.Post("/loads/{load_id}/disputes/resolve", handler.resolveDispute)

		r.Post("/escrow/holds", handler.createHold)
		r.Post("/escrow/holds/confirm", handler.confirmHold)

		r.Post("/disputes", handler.openDispute)

		r.Post("/documents/{document_id}/review", handler.reviewDocument)
		r.Put("/carriers/{carrier_id}/account", handler.upsertCarrierAccount)
		r.Get("/carriers/{carrier_id}/payouts", handler.listCarrierPayouts)

		r.Post("/sweeps/auto-release", handler.autoReleaseSweep)
		r.Post("/sweeps/expire-bids", handler.expireBidsSweep)
	})

	return r
}
