/*
blt REST API

This is the REST API for blt, an embeddable copy-on-write B+tree store.

Version: 1.0.0
BasePath: /api/v1

SecurityDefinitions:
  - ApiKeyAuth:
    type: apiKey
    in: header
    name: X-API-Key

swagger:meta
*/
package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ssargent/blt/pkg/vtree"
)

// NewRouter builds the chi router for a server fronting tree, without
// starting a listener — split out from StartServer so tests can drive
// the router directly with httptest.
func NewRouter(tree vtree.Tree, config ServerConfig, metrics *Metrics, extraGatherers ...prometheus.Gatherer) (*Server, chi.Router) {
	server := NewServer(tree, config, metrics)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	gatherers := prometheus.Gatherers(append([]prometheus.Gatherer{metrics.Registry()}, extraGatherers...))
	r.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))

	r.Get("/health", metrics.InstrumentHandler("GET", "/health", server.handleHealth))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(config.APIKey)))

		r.Get("/keys/{key}", metrics.InstrumentHandler("GET", "/api/v1/keys/{key}", server.handleFind))
		r.Get("/keys/{key}/ge", metrics.InstrumentHandler("GET", "/api/v1/keys/{key}/ge", server.handleGe))
		r.Put("/keys/{key}", metrics.InstrumentHandler("PUT", "/api/v1/keys/{key}", server.handleInsert))
		r.Post("/keys/bulk", metrics.InstrumentHandler("POST", "/api/v1/keys/bulk", server.handleBulkInsert))
		r.Delete("/keys/{key}", metrics.InstrumentHandler("DELETE", "/api/v1/keys/{key}", server.handleDelete))
		r.Get("/range", metrics.InstrumentHandler("GET", "/api/v1/range", server.handleRangeQuery))
		r.Post("/checkpoint", metrics.InstrumentHandler("POST", "/api/v1/checkpoint", server.handleCheckpoint))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", config.Port)),
	))

	return server, r
}

// StartServer starts the HTTP server with all routes configured,
// blocking until it exits.
func StartServer(tree vtree.Tree, config ServerConfig, extraGatherers ...prometheus.Gatherer) error {
	metrics := NewMetrics()
	_, r := NewRouter(tree, config, metrics, extraGatherers...)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	log.Printf("starting blt REST API on %s", addr)
	log.Printf("metrics available at http://%s/metrics", addr)
	return http.ListenAndServe(addr, r)
}
