package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/repository"
	"github.com/mamadbah2/calftracker/internal/service/admin"
	"github.com/mamadbah2/calftracker/internal/service/reporting"
	"github.com/mamadbah2/calftracker/internal/service/session"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, session.ErrUnknownOperator):
		return http.StatusNotFound
	case errors.Is(err, admin.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidPIN):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrDuplicateNumber),
		errors.Is(err, tracker.ErrNoFeedingThisPeriod),
		errors.Is(err, tracker.ErrAnimalInactive),
		errors.Is(err, admin.ErrLastAdmin):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrInvalidConsumption),
		errors.Is(err, tracker.ErrInvalidAnimal),
		errors.Is(err, admin.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, reporting.ErrSnapshotsDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Server errors are logged and
// their details hidden.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
