package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type redemptionRequest struct {
	UserID      int64  `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PointsCost  int64  `json:"pointsCost"`
}

func (h *Handler) requestRedemption(w http.ResponseWriter, r *http.Request) {
	var req redemptionRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Title == "" {
		badRequest(w, "title is required")
		return
	}
	red, err := h.engine.RequestRedemption(r.Context(), req.UserID, req.Title, req.Description, req.PointsCost)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, red)
}

type decisionRequest struct {
	Approve     bool   `json:"approve"`
	ProcessedBy int64  `json:"processedBy"`
	Notes       string `json:"notes,omitempty"`
}

func (h *Handler) decideRedemption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid redemption id")
		return
	}
	var req decisionRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	red, err := h.engine.DecideRedemption(r.Context(), id, req.Approve, req.ProcessedBy, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, red)
}

func (h *Handler) listRedemptions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}
	reds, err := h.summary.Redemptions(r.Context(), userID, limitParam(r, 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, reds)
}
