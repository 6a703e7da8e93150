package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-points/internal/repository"
	"task-points/internal/service"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrInvalidPoints, http.StatusBadRequest},
		{service.ErrInvalidDate, http.StatusBadRequest},
		{service.ErrInvalidGameType, http.StatusBadRequest},
		{service.ErrExchangeTooSmall, http.StatusBadRequest},
		{repository.ErrUserNotFound, http.StatusNotFound},
		{repository.ErrRuleNotFound, http.StatusNotFound},
		{service.ErrInsufficientPoints, http.StatusConflict},
		{service.ErrRedemptionProcessed, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeError(w, tt.err)
		assert.Equal(t, tt.status, w.Code, "status for %v", tt.err)

		var resp APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errors.New("pq: secret table missing"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal error", resp.Error)
}

func TestWriteErrorWrappedErrorsMatch(t *testing.T) {
	wrapped := errors.Join(service.ErrInsufficientPoints, errors.New("have 3, need 50"))
	w := httptest.NewRecorder()
	writeError(w, wrapped)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWriteSuccessEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	writeSuccess(w, map[string]int{"points": 9})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
}

func TestLimitParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ledger?limit=25", nil)
	assert.Equal(t, 25, limitParam(req, 50))

	req = httptest.NewRequest(http.MethodGet, "/ledger", nil)
	assert.Equal(t, 50, limitParam(req, 50))

	req = httptest.NewRequest(http.MethodGet, "/ledger?limit=-3", nil)
	assert.Equal(t, 50, limitParam(req, 50))

	req = httptest.NewRequest(http.MethodGet, "/ledger?limit=abc", nil)
	assert.Equal(t, 50, limitParam(req, 50))
}

func TestDateOrToday(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/summary?date=2026-08-26", nil)
	assert.Equal(t, "2026-08-26", dateOrToday(req))

	req = httptest.NewRequest(http.MethodGet, "/summary", nil)
	assert.Equal(t, service.Today(), dateOrToday(req))
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/award", strings.NewReader(`{"userId":1,"bogus":true}`))
	var body awardRequest
	assert.Error(t, decode(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/award", strings.NewReader(`{"userId":1,"points":5}`))
	require.NoError(t, decode(req, &body))
	assert.Equal(t, int64(5), body.Points)
}
