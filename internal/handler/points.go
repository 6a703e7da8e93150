package handler

import (
	"net/http"

	"task-points/internal/rules"
	"task-points/internal/service"
)

type computeRequest struct {
	UserID     int64   `json:"userId"`
	Category   string  `json:"category"`
	Activity   string  `json:"activity"`
	Duration   *int64  `json:"duration,omitempty"`
	WordCount  *int64  `json:"wordCount,omitempty"`
	Quality    *string `json:"quality,omitempty"`
	Difficulty *string `json:"difficulty,omitempty"`
}

func (h *Handler) computePoints(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Activity == "" {
		badRequest(w, "activity is required")
		return
	}
	result, err := h.compute.Compute(r.Context(), service.ComputeRequest{
		UserID:   req.UserID,
		Category: req.Category,
		Activity: req.Activity,
		Attrs: rules.Attributes{
			Duration:   req.Duration,
			WordCount:  req.WordCount,
			Quality:    req.Quality,
			Difficulty: req.Difficulty,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, result)
}

type checkRequest struct {
	UserID   int64  `json:"userId"`
	Points   int64  `json:"points"`
	Date     string `json:"date"`
	Activity string `json:"activity,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

func (h *Handler) checkLimits(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Points <= 0 {
		badRequest(w, service.ErrInvalidPoints.Error())
		return
	}
	if req.Date == "" {
		req.Date = service.Today()
	}

	switch req.Scope {
	case "daily":
		writeSuccess(w, h.limits.CheckDaily(r.Context(), req.UserID, req.Date, req.Points, req.Activity))
	case "weekly":
		writeSuccess(w, h.limits.CheckWeekly(r.Context(), req.UserID, req.Date, req.Points))
	case "", "all":
		writeSuccess(w, h.limits.CheckAll(r.Context(), req.UserID, req.Date, req.Points, req.Activity))
	default:
		badRequest(w, "scope must be daily, weekly or all")
	}
}

type awardRequest struct {
	UserID   int64  `json:"userId"`
	Points   int64  `json:"points"`
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Reason   string `json:"reason"`
	RefID    string `json:"refId,omitempty"`
}

func (h *Handler) award(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Date == "" {
		req.Date = service.Today()
	}
	result, err := h.engine.Award(r.Context(), service.AwardRequest{
		UserID:   req.UserID,
		Points:   req.Points,
		Date:     req.Date,
		Activity: req.Activity,
		Reason:   req.Reason,
		RefID:    req.RefID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, result)
}

type spendRequest struct {
	UserID   int64  `json:"userId"`
	Points   int64  `json:"points"`
	Date     string `json:"date"`
	GameType string `json:"gameType"`
	RefID    string `json:"refId,omitempty"`
}

func (h *Handler) spend(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Date == "" {
		req.Date = service.Today()
	}
	result, err := h.engine.Spend(r.Context(), service.SpendRequest{
		UserID:   req.UserID,
		Points:   req.Points,
		Date:     req.Date,
		GameType: req.GameType,
		RefID:    req.RefID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, result)
}

type refundRequest struct {
	UserID int64  `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
	RefID  string `json:"refId,omitempty"`
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	result, err := h.engine.Refund(r.Context(), service.RefundRequest{
		UserID: req.UserID,
		Amount: req.Amount,
		Reason: req.Reason,
		RefID:  req.RefID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, result)
}

func (h *Handler) pointsSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}
	summary, err := h.summary.PointsSummary(r.Context(), userID, dateOrToday(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, summary)
}

func (h *Handler) gameTime(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}
	stats, err := h.summary.GameTime(r.Context(), userID, dateOrToday(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, stats)
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}
	entries, err := h.summary.Ledger(r.Context(), userID, limitParam(r, 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, entries)
}
