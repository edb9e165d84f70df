package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkwatch/internal/auth"
	"linkwatch/internal/metrics"
)

// RouterOptions selects the optional surfaces mounted by NewRouter
type RouterOptions struct {
	CORSOrigins []string
	Signer      *auth.Signer // nil disables operator auth
	Events      http.Handler // SSE stream, nil to skip
	WebSocket   http.Handler // websocket stream, nil to skip
	Metrics     bool
	Diagnostics bool
	Logger      *slog.Logger
}

// NewRouter builds the HTTP routing tree
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if opts.Events != nil {
		r.Handle("/events", opts.Events)
	}
	if opts.WebSocket != nil {
		r.Handle("/ws", opts.WebSocket)
	}

	operator := RequireOperator(opts.Signer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/topology", h.GetTopology)
		r.Get("/topology/export", h.ExportTopology)
		r.Get("/store", h.GetStoreInfo)
		r.Get("/edges", h.ListEdges)
		r.Get("/devices/{name}", h.GetDevice)

		r.Route("/monitor", func(r chi.Router) {
			r.Get("/", h.GetMonitor)
			r.With(operator).Post("/run", h.StartRun)
			r.With(operator).Post("/cancel", h.CancelRun)
		})

		if opts.Diagnostics {
			r.Route("/routers/{name}", func(r chi.Router) {
				r.Get("/liveness", h.GetLiveness)
				r.With(operator).Get("/diagnostics", h.GetDiagnostics)
			})
		}
	})

	return r
}
