package server

import (
	"net/http"
	"strings"
)

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(s Services) http.Handler {
	return newMux(s)
}

func newMux(s Services) http.Handler {
	h := &handler{
		metrics: s.Metrics,
		reports: s.Reports,
		alerts:  s.Alerts,
		store:   s.Store,
		symbol:  strings.ToUpper(s.MetalSymbol),
	}
	if h.symbol == "" {
		h.symbol = "XAU"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/metrics/sources", h.listSources)
	mux.HandleFunc("GET /api/v1/metrics/timeframe", h.timeframe)
	mux.HandleFunc("POST /api/v1/metrics/fetch", h.fetchLatest)
	mux.HandleFunc("GET /api/v1/metrics/report", h.dailyReport)
	mux.HandleFunc("GET /api/v1/metrics/{metal}", h.todayValue)
	mux.HandleFunc("GET /api/v1/metrics/{id}/latest", h.latestValue)
	mux.HandleFunc("GET /api/v1/metrics/{id}/history", h.history)
	mux.HandleFunc("POST /api/v1/alerts", h.createRule)
	mux.HandleFunc("GET /api/v1/alerts/{id}/logs", h.ruleLogs)

	// Apply middleware stack: cors -> requestID -> recovery -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = recovery(handler)
	handler = requestID(handler)
	handler = allowCORS(handler)

	return handler
}
