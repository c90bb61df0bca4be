package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	apperrors "team-match-backend/internal/errors"

	"github.com/gin-gonic/gin"
)

// formatSeconds renders a duration as whole seconds for the Retry-After
// header, rounding up so clients never retry early.
func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

// pagination reads limit/offset query parameters with sane bounds
func pagination(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// respondError maps a service error to its HTTP status. The mapping is part
// of the API contract: clients key retry behavior off 429 and conflict
// handling off 409.
func respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsNotAuthorized(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsTooFrequent(err):
		retryAfter := apperrors.RetryAfter(err)
		if retryAfter > 0 {
			c.Header("Retry-After", formatSeconds(retryAfter))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case apperrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
