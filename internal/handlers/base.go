package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/moderation"
	"squeakyknees/internal/sanitize"
	"squeakyknees/internal/services"
)

// RespondError maps core errors onto status codes. Anything unrecognised is
// logged with a trace id and reported as a 500 carrying that id.
func RespondError(c *gin.Context, err error) {
	var (
		rl *services.RateLimitedError
		ve *sanitize.ValidationError
		te *moderation.TransitionError
	)

	switch {
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "please try again later"})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Message, "reason": ve.Reason})
	case errors.As(err, &te):
		c.JSON(http.StatusConflict, gin.H{
			"error":            "comment has already been moderated",
			"status":           te.From,
			"already_in_state": te.AlreadyInState(),
		})
	case errors.Is(err, moderation.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, comments.ErrAnonymousAuthor):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, moderation.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
	case errors.Is(err, comments.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
	case errors.Is(err, services.ErrPageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
	case errors.Is(err, services.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	default:
		traceID := uuid.NewString()
		slog.ErrorContext(c.Request.Context(), "request failed", "trace_id", traceID, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "trace_id": traceID})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// paramID parses a positive int64 path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
