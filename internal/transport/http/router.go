// Package http assembles the chi router from the feature handlers and the
// shared middleware chain.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditdesk/internal/platform/middleware"
)

// RouteRegistrar is implemented by each feature handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// NewRouter builds the server's routing tree. The middleware chain applies to
// every route; authentication is attached per feature by the handlers.
func NewRouter(logger *slog.Logger, handlers ...RouteRegistrar) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
