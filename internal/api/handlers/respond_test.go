package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "team-match-backend/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "10", formatSeconds(10*time.Second))
	// Partial seconds round up so clients never retry early.
	assert.Equal(t, "11", formatSeconds(10*time.Second+time.Millisecond))
	assert.Equal(t, "1", formatSeconds(time.Millisecond))
	assert.Equal(t, "0", formatSeconds(0))
}

func TestPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 20, 0},
		{"limit=50&offset=10", 50, 10},
		{"limit=0", 20, 0},
		{"limit=500", 20, 0},
		{"limit=-5&offset=-1", 20, 0},
		{"limit=abc&offset=xyz", 20, 0},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		limit, offset := pagination(c)
		assert.Equal(t, tc.limit, limit, "query %q", tc.query)
		assert.Equal(t, tc.offset, offset, "query %q", tc.query)
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperrors.ErrTeamNotFound, http.StatusNotFound},
		{"not authorized", apperrors.ErrNotLeader, http.StatusForbidden},
		{"conflict", apperrors.ErrTeamFull, http.StatusConflict},
		{"too frequent", apperrors.NewTooFrequentError("busy", 10*time.Second), http.StatusTooManyRequests},
		{"invalid input", apperrors.NewInvalidInputError("name", "required"), http.StatusBadRequest},
		{"internal", apperrors.NewInternalError("load team", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRespondErrorRetryAfterHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, apperrors.NewTooFrequentError("cooldown", 45*time.Second))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "45", w.Header().Get("Retry-After"))
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, apperrors.NewInternalError("load team", assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}
