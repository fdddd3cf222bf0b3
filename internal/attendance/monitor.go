// internal/attendance/monitor.go
package attendance

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
)

type Severity string

const (
	SeverityWarning   Severity = "WARNING"
	SeverityCritical  Severity = "CRITICAL"
	SeverityAutoClose Severity = "AUTO_CLOSE"
)

const (
	WarningThreshold   = 12 * time.Hour
	CriticalThreshold  = 24 * time.Hour
	AutoCloseThreshold = 48 * time.Hour

	// estimatedWorkday assumes an 8h shift plus a 1h lunch.
	estimatedWorkday   = 9 * time.Hour
	fallbackClockOutAt = 17
	fallbackShift      = 8 * time.Hour
)

// StuckSession is a session left open long enough to need attention.
type StuckSession struct {
	Session            models.WorkSession `json:"session"`
	Employee           *models.User       `json:"employee,omitempty"`
	HoursOpen          float64            `json:"hours_open"`
	Severity           Severity           `json:"severity"`
	NeedsForcedClosure bool               `json:"needs_forced_closure"`

	openFor time.Duration
}

// ClassifyOpenDuration maps how long a session has been open to a severity. ok is false below
// the warning threshold.
func ClassifyOpenDuration(open time.Duration) (sev Severity, forced bool, ok bool) {
	switch {
	case open >= AutoCloseThreshold:
		return SeverityAutoClose, true, true
	case open >= CriticalThreshold:
		return SeverityCritical, false, true
	case open >= WarningThreshold:
		return SeverityWarning, false, true
	}
	return "", false, false
}

// EstimateClockOut guesses when a stuck session really ended. The guess is clock-in plus nine
// hours; past the auto-close ceiling it is 17:00 on the clock-in date, pushed eight hours later
// when that is not after the clock-in. This approximates, it does not reconstruct payroll.
func EstimateClockOut(clockIn time.Time, open time.Duration, loc *time.Location) time.Time {
	if open <= AutoCloseThreshold {
		return clockIn.Add(estimatedWorkday)
	}
	local := clockIn.In(loc)
	y, m, d := local.Date()
	est := time.Date(y, m, d, fallbackClockOutAt, 0, 0, 0, loc)
	if !est.After(clockIn) {
		est = est.Add(fallbackShift)
	}
	return est
}

// FindStuckSessions flags every open session past the warning threshold.
func (s *Service) FindStuckSessions(ctx context.Context) ([]StuckSession, error) {
	sessions, err := s.store.ListOpenSessions(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var stuck []StuckSession
	for _, sess := range sessions {
		open := now.Sub(sess.ClockIn)
		sev, forced, ok := ClassifyOpenDuration(open)
		if !ok {
			continue
		}
		rec := StuckSession{
			Session:            sess,
			HoursOpen:          roundHours(open.Hours()),
			Severity:           sev,
			NeedsForcedClosure: forced,
			openFor:            open,
		}
		if u, err := s.lookupUser(ctx, sess.EmployeeID); err != nil {
			s.log.Error("stuck session employee lookup failed", "session_id", sess.ID, "employee_id", sess.EmployeeID, "error", err)
		} else {
			rec.Employee = u
		}
		stuck = append(stuck, rec)
	}
	return stuck, nil
}

func employeeMessage(rec *StuckSession) string {
	switch rec.Severity {
	case SeverityAutoClose:
		return fmt.Sprintf("Your work session has been open for %.1f hours and will be closed automatically. Please contact an administrator to correct your hours.", rec.HoursOpen)
	case SeverityCritical:
		return fmt.Sprintf("Your work session has been open for %.1f hours. Please clock out immediately or contact an administrator.", rec.HoursOpen)
	default:
		return fmt.Sprintf("Your work session has been open for %.1f hours. Did you forget to clock out?", rec.HoursOpen)
	}
}

func employeeName(rec *StuckSession) string {
	if rec.Employee != nil && rec.Employee.FullName != "" {
		return rec.Employee.FullName
	}
	return fmt.Sprintf("employee %d", rec.Session.EmployeeID)
}

func adminMessage(rec *StuckSession) string {
	name := employeeName(rec)
	switch rec.Severity {
	case SeverityAutoClose:
		return fmt.Sprintf("%s has been clocked in for %.1f hours. The session will be closed automatically with an estimated clock-out.", name, rec.HoursOpen)
	case SeverityCritical:
		return fmt.Sprintf("%s has been clocked in for %.1f hours. Manual review required.", name, rec.HoursOpen)
	default:
		return fmt.Sprintf("%s has been clocked in for %.1f hours and may have missed a clock-out.", name, rec.HoursOpen)
	}
}

// AlertStuckSessions notifies the employee and every admin about each stuck session and
// leaves an audit note. A failed recipient or session is logged and skipped. It returns the
// number of notifications accepted.
func (s *Service) AlertStuckSessions(ctx context.Context, stuck []StuckSession) int {
	admins := s.listAdmins(ctx)
	now := s.now()
	sent := 0
	for i := range stuck {
		rec := &stuck[i]
		base := map[string]any{
			"session_id": rec.Session.ID.String(),
			"severity":   string(rec.Severity),
			"hours_open": rec.HoursOpen,
			"clock_in":   rec.Session.ClockIn,
		}
		if rec.Employee != nil {
			payload := maps.Clone(base)
			payload["message"] = employeeMessage(rec)
			if s.dispatch(ctx, EventStuckSession, *rec.Employee, payload) {
				sent++
			}
		}
		payload := maps.Clone(base)
		payload["message"] = adminMessage(rec)
		payload["employee_id"] = rec.Session.EmployeeID
		payload["employee_name"] = employeeName(rec)
		sent += s.dispatchAdmins(ctx, admins, EventStuckSession, payload)

		note := s.noteLine(now, "Stuck session alert (%s): open %.2f hours", rec.Severity, rec.HoursOpen)
		if _, err := s.store.AppendNote(ctx, rec.Session.ID, note); err != nil {
			s.log.Error("stuck session audit note failed", "session_id", rec.Session.ID, "error", err)
		}
		s.log.Warn("stuck session", "session_id", rec.Session.ID, "employee_id", rec.Session.EmployeeID,
			"severity", rec.Severity, "hours_open", rec.HoursOpen)
	}
	return sent
}

// AutoCloseStuckSessions closes every entry flagged for forced closure at an estimated
// clock-out. Sessions closed by their owner in the meantime are left alone; a failure on one
// session does not stop the rest. It returns the number of sessions closed.
func (s *Service) AutoCloseStuckSessions(ctx context.Context, stuck []StuckSession) int {
	var admins []models.User
	adminsLoaded := false
	closed := 0
	for i := range stuck {
		rec := &stuck[i]
		if !rec.NeedsForcedClosure {
			continue
		}
		ok, est, err := s.autoClose(ctx, rec)
		if err != nil {
			s.log.Error("auto-close failed", "session_id", rec.Session.ID, "employee_id", rec.Session.EmployeeID, "error", err)
			continue
		}
		if !ok {
			s.log.Info("auto-close skipped, session already closed", "session_id", rec.Session.ID)
			continue
		}
		closed++
		s.log.Warn("session auto-closed", "session_id", rec.Session.ID, "employee_id", rec.Session.EmployeeID,
			"estimated_clock_out", est, "hours_open", rec.HoursOpen)

		payload := map[string]any{
			"session_id":          rec.Session.ID.String(),
			"employee_id":         rec.Session.EmployeeID,
			"employee_name":       employeeName(rec),
			"clock_in":            rec.Session.ClockIn,
			"estimated_clock_out": est,
			"hours_open":          rec.HoursOpen,
			"message": fmt.Sprintf("Work session auto-closed after %.1f hours with an estimated clock-out of %s. Please review and correct.",
				rec.HoursOpen, est.In(s.loc).Format("2006-01-02 15:04")),
		}
		if rec.Employee != nil {
			s.dispatch(ctx, EventAutoClockOut, *rec.Employee, payload)
		}
		if !adminsLoaded {
			admins = s.listAdmins(ctx)
			adminsLoaded = true
		}
		s.dispatchAdmins(ctx, admins, EventAutoClockOut, payload)
	}
	return closed
}

// autoClose closes the session at the estimated clock-out. A break still running past the
// estimate moves the estimate to the break's start, so the break stays inside the session.
func (s *Service) autoClose(ctx context.Context, rec *StuckSession) (bool, time.Time, error) {
	open := rec.openFor
	if open == 0 {
		open = s.now().Sub(rec.Session.ClockIn)
	}
	est := EstimateClockOut(rec.Session.ClockIn, open, s.loc)

	unlock := s.locks.lock(rec.Session.EmployeeID)
	defer unlock()

	running, err := s.runningBreak(ctx, rec.Session.ID)
	if err != nil {
		return false, est, err
	}
	if running != nil && running.StartedAt.After(est) {
		est = running.StartedAt
	}
	ok, err := s.store.CloseSession(ctx, rec.Session.ID, storage.Closure{
		ClockOut: est,
		Method:   models.ClockOutAutoAdmin,
		Break:    breakClosure(running, est),
		Note: s.noteLine(s.now(), "Auto-closed by system after %.2f hours open; estimated clock-out %s",
			rec.HoursOpen, est.In(s.loc).Format("2006-01-02 15:04")),
	})
	return ok, est, err
}

// SweepResult counts what one stuck-session sweep did.
type SweepResult struct {
	Stuck      int `json:"stuck"`
	AlertsSent int `json:"alerts_sent"`
	AutoClosed int `json:"auto_closed"`
}

// RunStuckSessionSweep finds stuck sessions, alerts on them and auto-closes those past the
// ceiling.
func (s *Service) RunStuckSessionSweep(ctx context.Context) (SweepResult, error) {
	stuck, err := s.FindStuckSessions(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	res := SweepResult{Stuck: len(stuck)}
	if len(stuck) > 0 {
		res.AlertsSent = s.AlertStuckSessions(ctx, stuck)
		res.AutoClosed = s.AutoCloseStuckSessions(ctx, stuck)
	}
	s.log.Info("stuck session sweep finished", "stuck", res.Stuck, "alerts_sent", res.AlertsSent, "auto_closed", res.AutoClosed)
	return res, nil
}
