// Package router wires up the matching API routes and applies the middleware
// chain (RequestID → CORS → RateLimit → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/middleware"
)

// Options holds the optional pieces of the chain. Nil fields are skipped.
type Options struct {
	CORS      *middleware.CORSConfig
	Limiter   middleware.Allower
	Metrics   *metrics.Metrics
	Timeout   time.Duration
	Analytics *analytics.Handler
	Health    *health.Checker
}

// New builds the HTTP handler.
//
// Route table:
//
//	POST   /api/v1/skills             → extract resume skills
//	POST   /api/v1/match              → ranked, filtered matches
//	POST   /api/v1/match/export       → CSV of matches above the threshold
//	GET    /api/v1/jobs               → current job collection
//	PUT    /api/v1/jobs               → replace the collection (memory source)
//	GET    /api/v1/jobs/{id}          → one posting
//	GET    /api/v1/cache/stats        → result cache hits/misses
//	POST   /api/v1/cache/invalidate   → drop cached results
//	GET    /api/v1/analytics          → aggregated usage stats
//	GET    /health/live, /health/ready
func New(h *handler.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/skills", h.Skills)
	mux.HandleFunc("POST /api/v1/match", h.Match)
	mux.HandleFunc("POST /api/v1/match/export", h.Export)

	mux.HandleFunc("GET /api/v1/jobs", h.ListJobs)
	mux.HandleFunc("PUT /api/v1/jobs", h.ReplaceJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	if opts.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", opts.Analytics.Stats)
	}
	if opts.Health != nil {
		mux.HandleFunc("GET /health/live", opts.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())
	}

	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if opts.CORS != nil {
		mws = append(mws, middleware.CORS(*opts.CORS))
	}
	if opts.Limiter != nil {
		var onReject func()
		if opts.Metrics != nil {
			onReject = opts.Metrics.RateLimitedTotal.Inc
		}
		mws = append(mws, middleware.RateLimit(opts.Limiter, onReject))
	}
	if opts.Metrics != nil {
		mws = append(mws, middleware.Metrics(opts.Metrics))
	}
	if opts.Timeout > 0 {
		mws = append(mws, middleware.Timeout(opts.Timeout))
	}
	return middleware.Chain(mux, mws...)
}
