// internal/attendance/session.go
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
)

// ClockRequest describes a clock-in or clock-out. A zero At means now.
type ClockRequest struct {
	EmployeeID uint
	At         time.Time
	LocationID *uint
	Latitude   *float64
	Longitude  *float64
	Notes      string
}

// SessionSummary is a session together with its derived attendance figures.
type SessionSummary struct {
	Session        *models.WorkSession    `json:"session"`
	Hours          float64                `json:"hours"`
	IsOvertime     bool                   `json:"is_overtime"`
	Status         AttendanceStatus       `json:"attendance_status"`
	ShiftCompliant bool                   `json:"is_shift_compliant"`
	Shift          *models.ScheduledShift `json:"shift,omitempty"`
}

func (s *Service) requestTime(at time.Time) time.Time {
	if at.IsZero() {
		return s.now()
	}
	return at
}

func validateEmployee(id uint) error {
	if id == 0 {
		return &ValidationError{Field: "employee_id", Message: "missing employee context"}
	}
	return nil
}

// verifyLocation loads the location when one is given and applies its geofence.
func (s *Service) verifyLocation(ctx context.Context, req ClockRequest) error {
	if req.LocationID == nil {
		return nil
	}
	loc, err := s.store.GetLocation(ctx, *req.LocationID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("location %d: %w", *req.LocationID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return checkGeofence(req.Latitude, req.Longitude, loc)
}

// findShift returns the published shift matching the session, if any.
func (s *Service) findShift(ctx context.Context, session *models.WorkSession) (*models.ScheduledShift, error) {
	if s.shifts == nil {
		return nil, nil
	}
	from, to := dayBounds(session.ClockIn, s.loc)
	shifts, err := s.shifts.FindShifts(ctx, session.EmployeeID, from, to)
	if err != nil {
		return nil, err
	}
	return MatchShift(session, shifts, s.loc), nil
}

// ClockIn opens a work session. The open-session check and the insert run as one unit per
// employee, so concurrent requests cannot both succeed.
func (s *Service) ClockIn(ctx context.Context, req ClockRequest) (*models.WorkSession, error) {
	if err := validateEmployee(req.EmployeeID); err != nil {
		return nil, err
	}
	at := s.requestTime(req.At)

	unlock := s.locks.lock(req.EmployeeID)
	defer unlock()

	employee, err := s.lookupUser(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindOpenSession(ctx, req.EmployeeID); err == nil {
		return nil, ErrAlreadyClockedIn
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err := s.verifyLocation(ctx, req); err != nil {
		return nil, err
	}

	session := &models.WorkSession{
		EmployeeID:        req.EmployeeID,
		ClockIn:           at,
		ClockInLocationID: req.LocationID,
		ClockInLatitude:   req.Latitude,
		ClockInLongitude:  req.Longitude,
	}
	if s.enforce {
		shift, err := s.findShift(ctx, session)
		if err != nil {
			return nil, err
		}
		if shift == nil {
			return nil, ErrNotScheduled
		}
	}
	if note := strings.TrimSpace(req.Notes); note != "" {
		session.Notes = s.noteLine(at, "Clock-in: %s", note)
	}

	if err := s.store.CreateWorkSession(ctx, session); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyClockedIn
		}
		return nil, err
	}

	s.log.Info("clocked in", "employee_id", session.EmployeeID, "session_id", session.ID)
	s.dispatch(ctx, EventClockIn, *employee, map[string]any{
		"session_id": session.ID.String(),
		"clock_in":   session.ClockIn,
	})
	return session, nil
}

// ClockOut closes the employee's open session. It is never gated on the shift schedule.
// A running break is ended at the clock-out time in the same write.
func (s *Service) ClockOut(ctx context.Context, req ClockRequest) (*SessionSummary, error) {
	if err := validateEmployee(req.EmployeeID); err != nil {
		return nil, err
	}
	at := s.requestTime(req.At)

	unlock := s.locks.lock(req.EmployeeID)
	defer unlock()

	session, err := s.store.FindOpenSession(ctx, req.EmployeeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotClockedIn
	}
	if err != nil {
		return nil, err
	}
	if at.Before(session.ClockIn) {
		return nil, &ValidationError{Field: "clock_out", Message: "clock-out is before clock-in"}
	}
	if err := s.verifyLocation(ctx, req); err != nil {
		return nil, err
	}

	running, err := s.runningBreak(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if running != nil && at.Before(running.StartedAt) {
		return nil, &ValidationError{Field: "clock_out", Message: "clock-out is before the running break started"}
	}

	closure := storage.Closure{
		ClockOut:   at,
		LocationID: req.LocationID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Method:     models.ClockOutManual,
		Break:      breakClosure(running, at),
	}
	if note := strings.TrimSpace(req.Notes); note != "" {
		closure.Note = s.noteLine(at, "Clock-out: %s", note)
	}
	closed, err := s.store.CloseSession(ctx, session.ID, closure)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, ErrNotClockedIn
	}

	session, err = s.store.GetSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	summary, err := s.Summarize(ctx, session)
	if err != nil {
		return nil, err
	}

	s.log.Info("clocked out",
		"employee_id", session.EmployeeID, "session_id", session.ID,
		"hours", summary.Hours, "status", summary.Status)
	if employee, err := s.lookupUser(ctx, session.EmployeeID); err == nil {
		s.dispatch(ctx, EventClockOut, *employee, map[string]any{
			"session_id": session.ID.String(),
			"clock_out":  at,
			"hours":      summary.Hours,
			"status":     string(summary.Status),
		})
	}
	return summary, nil
}

// Summarize derives hours, overtime and shift classification for a session.
func (s *Service) Summarize(ctx context.Context, session *models.WorkSession) (*SessionSummary, error) {
	now := s.now()
	shift, err := s.findShift(ctx, session)
	if err != nil {
		return nil, err
	}
	return &SessionSummary{
		Session:        session,
		Hours:          session.Hours(now),
		IsOvertime:     session.IsOvertime(now),
		Status:         ClassifyAttendance(session, shift, now),
		ShiftCompliant: IsShiftCompliant(session, shift),
		Shift:          shift,
	}, nil
}

// CurrentSession summarises the employee's open session.
func (s *Service) CurrentSession(ctx context.Context, employeeID uint) (*SessionSummary, error) {
	if err := validateEmployee(employeeID); err != nil {
		return nil, err
	}
	session, err := s.store.FindOpenSession(ctx, employeeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotClockedIn
	}
	if err != nil {
		return nil, err
	}
	return s.Summarize(ctx, session)
}
