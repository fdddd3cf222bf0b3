// internal/handlers/errors.go
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/JudeDesigns/attendance-sub000/internal/attendance"
	"github.com/gin-gonic/gin"
)

// bindOptionalJSON binds the body when there is one. An empty body leaves req untouched.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "detail": err.Error()})
		return false
	}
	return true
}

// writeError maps a service error onto a status code and body.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	var oor *attendance.OutOfRangeError
	switch {
	case errors.As(err, &oor):
		body := gin.H{"error": "outside geofence", "detail": err.Error(), "location": oor.Location, "radius_meters": oor.Radius}
		if !oor.Missing {
			body["distance_meters"] = oor.Distance
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, attendance.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrNotClockedIn),
		errors.Is(err, attendance.ErrAlreadyOnBreak),
		errors.Is(err, attendance.ErrNotOnBreak):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNotScheduled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
