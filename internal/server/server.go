package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
	"github.com/PArns/v4.api.park.fan-sub004/internal/usecase/status"
)

// Server exposes the consolidated-status read surface plus health and
// metrics endpoints.
type Server struct {
	addr     string
	entities ports.EntityRepository
	status   *status.Service
	metrics  *metrics.Metrics

	http *http.Server
}

func New(cfg config.Config, entities ports.EntityRepository, statusSvc *status.Service, m *metrics.Metrics) *Server {
	s := &Server{
		addr:     cfg.Server.Addr,
		entities: entities,
		status:   statusSvc,
		metrics:  m,
	}
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	r.Get("/parks", s.handleListParks)
	r.Get("/parks/{parkID}/status", s.handleParkStatus)
	r.Post("/status/batch", s.handleStatusBatch)

	return r
}

// Start serves until the listener fails. http.ErrServerClosed is the normal
// shutdown outcome and is not reported as an error.
func (s *Server) Start(ctx context.Context) error {
	logging.Info(ctx, "http server listening", slog.String("addr", s.addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errs.Wrap(err, "serve http")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListParks(w http.ResponseWriter, r *http.Request) {
	parks, err := s.entities.ListParks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	type parkView struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Slug        string   `json:"slug"`
		Timezone    string   `json:"timezone,omitempty"`
		CountryCode *string  `json:"countryCode,omitempty"`
		Latitude    *float64 `json:"latitude,omitempty"`
		Longitude   *float64 `json:"longitude,omitempty"`
	}

	views := make([]parkView, 0, len(parks))
	for _, p := range parks {
		views = append(views, parkView{
			ID:          p.ID,
			Name:        p.Name,
			Slug:        p.Slug,
			Timezone:    p.Timezone,
			CountryCode: p.CountryCode,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
		})
	}
	writeJSON(r.Context(), w, http.StatusOK, views)
}

func (s *Server) handleParkStatus(w http.ResponseWriter, r *http.Request) {
	parkID := chi.URLParam(r, "parkID")

	res, err := s.status.Resolve(r.Context(), parkID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, res)
}

func (s *Server) handleStatusBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParkIDs []string `json:"parkIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(r.Context(), w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.ParkIDs) == 0 {
		writeJSON(r.Context(), w, http.StatusBadRequest, map[string]string{"error": "parkIds is required"})
		return
	}

	results, err := s.status.ResolveBatch(r.Context(), req.ParkIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, results)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ports.ErrParkNotFound) || errors.Is(err, ports.ErrChildNotFound) {
		writeJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	logging.Error(r.Context(), "request failed",
		slog.String("path", r.URL.Path), slog.Any("err", errs.Loggable(err)))
	writeJSON(r.Context(), w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn(ctx, "response encode failed", slog.Any("err", errs.Loggable(err)))
	}
}
