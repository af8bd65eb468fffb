// Package api exposes the adapter runtime over HTTP. One POST runs one
// job synchronously and returns the results the callback would have
// received; the caller owns durable delivery.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/adapter"
	"github.com/pevans/newsharvest/fetch"
	"github.com/pevans/newsharvest/profile"
)

// Server routes job requests onto per-site adapters.
type Server struct {
	registry *profile.Registry
	log      *slog.Logger
	opts     []adapter.Option
}

// NewServer builds a server over the loaded site profiles. opts are
// passed through to every adapter it creates.
func NewServer(registry *profile.Registry, log *slog.Logger, opts ...adapter.Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{registry: registry, log: log, opts: opts}
}

// Router wires the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/sites", s.handleSites)
	r.Post("/v1/jobs", s.handleJob)
	return r
}

// JobRequest is the POST /v1/jobs body.
type JobRequest struct {
	Site  string       `json:"site"`
	Type  string       `json:"type"`
	URL   string       `json:"url,omitempty"`
	Since string       `json:"since,omitempty"`
	Until string       `json:"until,omitempty"`
	Proxy *fetch.Proxy `json:"proxy,omitempty"`
}

// JobResponse is the POST /v1/jobs success body.
type JobResponse struct {
	Site    string `json:"site"`
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Results []any  `json:"results"`
}

// ErrorResponse is the error envelope shared by every endpoint.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sites": s.registry.Names()})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	if req.Site == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_parameter", "Missing site parameter")
		return
	}
	prof, ok := s.registry.Get(req.Site)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown_site", "Unknown site: "+req.Site)
		return
	}

	var results []any
	job := adapter.Job{
		Mode:     req.Type,
		URL:      req.URL,
		Since:    req.Since,
		Until:    req.Until,
		Proxy:    req.Proxy,
		Callback: func(r []any) { results = r },
	}

	a := adapter.New(prof, append(s.opts, adapter.WithLogger(s.log))...)
	if err := a.Run(r.Context(), job); err != nil {
		s.writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, JobResponse{
		Site:    req.Site,
		Type:    req.Type,
		Count:   len(results),
		Results: results,
	})
}

// errorCode maps the run's error kind onto a stable wire code.
func errorCode(err error) string {
	var harvestErr *newsharvest.Error
	if errors.As(err, &harvestErr) {
		switch harvestErr.Kind {
		case newsharvest.KindInvalidDate:
			return "invalid_date"
		case newsharvest.KindInvalidArgument:
			return "invalid_parameter"
		case newsharvest.KindInputMissing:
			return "missing_parameter"
		}
	}
	return "invalid_request"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
