// Package handler exposes the points engine over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"task-points/internal/repository"
	"task-points/internal/service"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler wires the HTTP routes to the services.
type Handler struct {
	compute *service.ComputeService
	limits  *service.LimitService
	engine  *service.Engine
	summary *service.SummaryService
	admin   *service.AdminService
}

func New(compute *service.ComputeService, limits *service.LimitService, engine *service.Engine, summary *service.SummaryService, admin *service.AdminService) *Handler {
	return &Handler{compute: compute, limits: limits, engine: engine, summary: summary, admin: admin}
}

// Router builds the chi router with the full API surface.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/points", func(r chi.Router) {
			r.Post("/compute", h.computePoints)
			r.Post("/check", h.checkLimits)
			r.Post("/award", h.award)
			r.Post("/spend", h.spend)
			r.Post("/refund", h.refund)
			r.Get("/summary/{userID}", h.pointsSummary)
			r.Get("/gametime/{userID}", h.gameTime)
		})
		r.Route("/redemptions", func(r chi.Router) {
			r.Post("/", h.requestRedemption)
			r.Post("/{id}/decision", h.decideRedemption)
		})
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.createUser)
			r.Get("/{userID}", h.getUser)
			r.Put("/{userID}/medals", h.setMedals)
			r.Get("/{userID}/ledger", h.listLedger)
			r.Get("/{userID}/redemptions", h.listRedemptions)
			r.Delete("/{userID}/daily/{date}", h.resetDaily)
		})
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.listRules)
			r.Post("/", h.createRule)
		})
		r.Route("/configs", func(r chi.Router) {
			r.Get("/active", h.activeConfig)
			r.Post("/", h.activateConfig)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: data})
}

// writeError maps service errors onto HTTP statuses. Unrecognized
// errors are logged and reported as a plain 500 to avoid leaking
// internals.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPoints),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidGameType),
		errors.Is(err, service.ErrExchangeTooSmall),
		errors.Is(err, service.ErrInvalidRule),
		errors.Is(err, service.ErrInvalidConfig):
		writeJSON(w, http.StatusBadRequest, APIResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrRuleNotFound),
		errors.Is(err, repository.ErrConfigNotFound),
		errors.Is(err, repository.ErrRedemptionNotFound):
		writeJSON(w, http.StatusNotFound, APIResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrRedemptionProcessed):
		writeJSON(w, http.StatusConflict, APIResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, APIResponse{Error: "internal error"})
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, APIResponse{Error: msg})
}

func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

// dateOrToday returns the date query parameter, defaulting to today.
func dateOrToday(r *http.Request) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return service.Today()
}

func limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
