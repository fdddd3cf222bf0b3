// internal/handlers/attendance.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/attendance"
	"github.com/JudeDesigns/attendance-sub000/internal/middleware"
	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/gin-gonic/gin"
)

type AttendanceHandler struct {
	Svc *attendance.Service
	Log *slog.Logger
	// Loc resolves the calendar date of compliance queries.
	Loc *time.Location
}

type ClockReq struct {
	LocationID *uint    `json:"location_id"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Notes      string   `json:"notes"`
}

type StartBreakReq struct {
	Type models.BreakType `json:"type" binding:"required"`
}

type ReasonReq struct {
	Reason string `json:"reason"`
}

func NewAttendanceHandler(svc *attendance.Service, logger *slog.Logger, loc *time.Location) *AttendanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceHandler{Svc: svc, Log: logger, Loc: loc}
}

func (h *AttendanceHandler) clockRequest(c *gin.Context) (attendance.ClockRequest, bool) {
	var req ClockReq
	if !bindOptionalJSON(c, &req) {
		return attendance.ClockRequest{}, false
	}
	return attendance.ClockRequest{
		EmployeeID: c.GetUint(middleware.KeyUserID),
		LocationID: req.LocationID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Notes:      req.Notes,
	}, true
}

func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	req, ok := h.clockRequest(c)
	if !ok {
		return
	}
	session, err := h.Svc.ClockIn(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": session})
}

func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	req, ok := h.clockRequest(c)
	if !ok {
		return
	}
	summary, err := h.Svc.ClockOut(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": summary})
}

func (h *AttendanceHandler) StartBreak(c *gin.Context) {
	var req StartBreakReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "detail": err.Error()})
		return
	}
	breakType := models.BreakType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	b, err := h.Svc.StartBreak(c.Request.Context(), c.GetUint(middleware.KeyUserID), breakType)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": b})
}

func (h *AttendanceHandler) EndBreak(c *gin.Context) {
	b, err := h.Svc.EndBreak(c.Request.Context(), c.GetUint(middleware.KeyUserID))
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": b})
}

func (h *AttendanceHandler) WaiveBreak(c *gin.Context) {
	var req ReasonReq
	if !bindOptionalJSON(c, &req) {
		return
	}
	b, err := h.Svc.WaiveBreak(c.Request.Context(), c.GetUint(middleware.KeyUserID), req.Reason)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": b})
}

func (h *AttendanceHandler) RejectReminder(c *gin.Context) {
	var req ReasonReq
	if !bindOptionalJSON(c, &req) {
		return
	}
	if err := h.Svc.RejectReminder(c.Request.Context(), c.GetUint(middleware.KeyUserID), req.Reason); err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// BreakStatus evaluates the caller's break requirement and may send a reminder.
func (h *AttendanceHandler) BreakStatus(c *gin.Context) {
	req, err := h.Svc.CheckBreakStatus(c.Request.Context(), c.GetUint(middleware.KeyUserID))
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": req})
}

// Compliance reports the caller's break compliance for ?date=YYYY-MM-DD, today when omitted.
func (h *AttendanceHandler) Compliance(c *gin.Context) {
	var date time.Time
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.Loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}
	out, err := h.Svc.ComplianceStatus(c.Request.Context(), c.GetUint(middleware.KeyUserID), date)
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": out})
}

// CurrentSession returns the open session summary, or null data when clocked out.
func (h *AttendanceHandler) CurrentSession(c *gin.Context) {
	summary, err := h.Svc.CurrentSession(c.Request.Context(), c.GetUint(middleware.KeyUserID))
	if errors.Is(err, attendance.ErrNotClockedIn) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "data": nil})
		return
	}
	if err != nil {
		writeError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": summary})
}
