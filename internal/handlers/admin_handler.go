// internal/handlers/admin_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/JudeDesigns/attendance-sub000/internal/attendance"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	Svc *attendance.Service
	Log *slog.Logger
}

func NewAdminHandler(svc *attendance.Service, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{Svc: svc, Log: logger}
}

func (h *AdminHandler) ListStuckSessions(c *gin.Context) {
	stuck, err := h.Svc.FindStuckSessions(c.Request.Context())
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	if stuck == nil {
		stuck = []attendance.StuckSession{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": stuck})
}

// SweepStuckSessions runs the stuck-session sweep now instead of waiting for the schedule.
func (h *AdminHandler) SweepStuckSessions(c *gin.Context) {
	res, err := h.Svc.RunStuckSessionSweep(c.Request.Context())
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"stuck":       res.Stuck,
		"alerts_sent": res.AlertsSent,
		"auto_closed": res.AutoClosed,
	})
}

// SweepBreakReminders runs the break reminder sweep now.
func (h *AdminHandler) SweepBreakReminders(c *gin.Context) {
	sent, err := h.Svc.SendBreakReminders(c.Request.Context())
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reminders_sent": sent})
}
