package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"task-points/internal/model"
)

type createRuleRequest struct {
	Category    string             `json:"category"`
	Activity    string             `json:"activity"`
	BasePoints  int64              `json:"basePoints"`
	BonusRules  []model.BonusRule  `json:"bonusRules,omitempty"`
	DailyLimit  *int64             `json:"dailyLimit,omitempty"`
	Multipliers *model.Multipliers `json:"multipliers,omitempty"`
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	rule, err := h.admin.CreateRule(r.Context(), &model.PointsRule{
		Category:    req.Category,
		Activity:    req.Activity,
		BasePoints:  req.BasePoints,
		BonusRules:  req.BonusRules,
		DailyLimit:  req.DailyLimit,
		Multipliers: req.Multipliers,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, rule)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.admin.ListRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, rules)
}

type activateConfigRequest struct {
	WeeklyAccumulationLimit int64 `json:"weeklyAccumulationLimit"`
	BaseGameTimeMinutes     int64 `json:"baseGameTimeMinutes"`
	PointsToMinutesRatio    int64 `json:"pointsToMinutesRatio"`
}

func (h *Handler) activateConfig(w http.ResponseWriter, r *http.Request) {
	var req activateConfigRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	cfg, err := h.admin.ActivateConfig(r.Context(), &model.BalanceConfig{
		WeeklyAccumulationLimit: req.WeeklyAccumulationLimit,
		BaseGameTimeMinutes:     req.BaseGameTimeMinutes,
		PointsToMinutesRatio:    req.PointsToMinutesRatio,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, cfg)
}

func (h *Handler) activeConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.admin.ActiveConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, cfg)
}

type createUserRequest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ID <= 0 {
		badRequest(w, "id must be positive")
		return
	}
	user, err := h.admin.CreateUser(r.Context(), req.ID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}
	user, err := h.admin.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, user)
}

type medalsRequest struct {
	Bronze  bool `json:"bronze"`
	Silver  bool `json:"silver"`
	Gold    bool `json:"gold"`
	Diamond bool `json:"diamond"`
}

func (h *Handler) setMedals(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}
	var req medalsRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	medals := model.MedalSet{
		Bronze:  req.Bronze,
		Silver:  req.Silver,
		Gold:    req.Gold,
		Diamond: req.Diamond,
	}
	if err := h.admin.SetMedals(r.Context(), userID, medals); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, medals)
}

func (h *Handler) resetDaily(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		badRequest(w, "invalid user id")
		return
	}
	date := chi.URLParam(r, "date")
	if err := h.admin.ResetDaily(r.Context(), userID, date); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"reset": date})
}
