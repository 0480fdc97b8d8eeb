package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"acropolis/internal/app/middleware"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
)

const actorHeader = "X-Actor-ID"

// errorStatus maps application errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case domainerr.IsValidation(err):
		return http.StatusBadRequest
	case domainerr.IsNotFound(err):
		return http.StatusNotFound
	case domainerr.IsForbidden(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message}. Internal failures are logged and
// hidden from the caller.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := errorStatus(err)
	message := err.Error()
	var v *domainerr.ValidationError
	if errors.As(err, &v) {
		message = v.Message
	}
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		message = "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

// ActorMiddleware carries the X-Actor-ID header into the request context for
// audited admin commands.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader(actorHeader)); actor != "" {
			c.Request = c.Request.WithContext(middleware.ContextWithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}

// parseDay reads a YYYY-MM-DD value named field.
func parseDay(field, raw string) (time.Time, bool, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, field + " is required."
	}
	day, err := daterange.ParseDay(raw)
	if err != nil {
		return time.Time{}, false, field + " must be a date in YYYY-MM-DD format."
	}
	return day, true, ""
}

// parseOptionalDay is parseDay for PATCH bodies.
func parseOptionalDay(field string, raw *string) (*time.Time, bool, string) {
	if raw == nil {
		return nil, true, ""
	}
	day, ok, msg := parseDay(field, *raw)
	if !ok {
		return nil, false, msg
	}
	return &day, true, ""
}
