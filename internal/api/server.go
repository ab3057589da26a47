// Package api exposes the ops HTTP surface: health, metrics, and crawl
// progress.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
)

// Server wires HTTP handlers to the store.
type Server struct {
	router chi.Router
	store  crawl.Store
	logger *zap.Logger
}

// NewServer constructs a Server with its routes.
func NewServer(store crawl.Store, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.status)
	})
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse reports crawl progress for operators.
type statusResponse struct {
	Tasks struct {
		Total      int            `json:"total"`
		Unfinished int            `json:"unfinished"`
		ByType     map[string]int `json:"by_type"`
	} `json:"tasks"`
	Restaurants int64 `json:"restaurants"`
	Reviews     int64 `json:"reviews"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := s.store.ListAll(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	unfinished, err := s.store.ListUnfinished(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	restaurants, err := s.store.CountRestaurants(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	reviews, err := s.store.CountReviews(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var resp statusResponse
	resp.Tasks.Total = len(all)
	resp.Tasks.Unfinished = len(unfinished)
	resp.Tasks.ByType = make(map[string]int)
	for _, t := range all {
		resp.Tasks.ByType[string(t.Type)]++
	}
	resp.Restaurants = restaurants
	resp.Reviews = reviews

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.logger.Error("status query failed", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
