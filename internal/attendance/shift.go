// internal/attendance/shift.go
package attendance

import (
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
)

type AttendanceStatus string

const (
	StatusInProgress     AttendanceStatus = "IN_PROGRESS"
	StatusUnscheduled    AttendanceStatus = "UNSCHEDULED"
	StatusOvertime       AttendanceStatus = "OVERTIME"
	StatusEarlyDeparture AttendanceStatus = "EARLY_DEPARTURE"
	StatusCompleted      AttendanceStatus = "COMPLETED"
)

const (
	// ShiftMatchWindow is how far a clock-in may be from a shift's start and still match it.
	ShiftMatchWindow = 30 * time.Minute

	// minScheduledRatio is the share of scheduled hours below which a session is an early departure.
	minScheduledRatio = 0.75
)

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// MatchShift returns the first published shift on the session's clock-in date whose start is
// within ShiftMatchWindow of the clock-in. Candidates are taken in the order given.
func MatchShift(session *models.WorkSession, shifts []models.ScheduledShift, loc *time.Location) *models.ScheduledShift {
	for i := range shifts {
		sh := &shifts[i]
		if !sh.Published || sh.EmployeeID != session.EmployeeID {
			continue
		}
		if !sameDay(sh.StartAt, session.ClockIn, loc) {
			continue
		}
		if absDuration(session.ClockIn.Sub(sh.StartAt)) <= ShiftMatchWindow {
			return sh
		}
	}
	return nil
}

// ClassifyAttendance evaluates the attendance status rules in priority order.
func ClassifyAttendance(session *models.WorkSession, shift *models.ScheduledShift, now time.Time) AttendanceStatus {
	if session.ClockOut == nil {
		return StatusInProgress
	}
	worked := session.Duration(now)
	if shift == nil {
		if worked > models.OvertimeThreshold {
			return StatusOvertime
		}
		return StatusUnscheduled
	}
	if session.ClockOut.Before(shift.EndAt) {
		return StatusEarlyDeparture
	}
	if worked > models.OvertimeThreshold {
		return StatusOvertime
	}
	if worked.Hours() < shift.Duration().Hours()*minScheduledRatio {
		return StatusEarlyDeparture
	}
	return StatusCompleted
}

// IsShiftCompliant reports whether the session started on time for its shift and, once closed,
// did not leave before the scheduled end.
func IsShiftCompliant(session *models.WorkSession, shift *models.ScheduledShift) bool {
	if shift == nil {
		return false
	}
	if absDuration(session.ClockIn.Sub(shift.StartAt)) > ShiftMatchWindow {
		return false
	}
	if session.ClockOut != nil && session.ClockOut.Before(shift.EndAt) {
		return false
	}
	return true
}
