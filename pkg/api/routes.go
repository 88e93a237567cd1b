package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/input", s.HandleInput)
	mux.HandleFunc("POST /api/sessions/{id}/submit", s.HandleSubmit)
	mux.HandleFunc("POST /api/sessions/{id}/more", s.HandleLoadMore)
	mux.HandleFunc("POST /api/sessions/{id}/retry", s.HandleRetry)
	mux.HandleFunc("PUT /api/sessions/{id}/sort", s.HandleSetSort)
	mux.HandleFunc("GET /api/sessions/{id}/books/{bookID}/details", s.HandleDetails)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.HandleEvents)
	mux.HandleFunc("GET /api/recent", s.HandleListRecent)
	mux.HandleFunc("DELETE /api/recent", s.HandleClearRecent)
	mux.HandleFunc("GET /api/covers/{coverID}", s.HandleCover)
	mux.HandleFunc("GET /api/sort-modes", s.HandleSortModes)
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}
