// internal/attendance/reminders.go
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/google/uuid"
)

type Urgency string

const (
	UrgencyNormal Urgency = "NORMAL"
	UrgencyHigh   Urgency = "HIGH"
)

const (
	// SweepReminderCooldown spaces out sweep reminders that are not yet overdue.
	SweepReminderCooldown = time.Hour
	// OnDemandReminderCooldown suppresses a status-check reminder when one went out recently.
	OnDemandReminderCooldown = 10 * time.Minute
	// FollowUpDelay is when the escalated follow-up of an on-demand reminder fires.
	FollowUpDelay = 5 * time.Minute

	followUpTimeout = 30 * time.Second
)

func remindedWithin(session *models.WorkSession, now time.Time, window time.Duration) bool {
	return session.LastReminderAt != nil && now.Sub(*session.LastReminderAt) < window
}

// sendReminder stamps the reminder on the session and notifies the employee. A session that
// closed in the meantime is skipped silently.
func (s *Service) sendReminder(ctx context.Context, session *models.WorkSession, req ComplianceRequirement, urgency Urgency) (bool, error) {
	now := s.now()
	employee, err := s.lookupUser(ctx, session.EmployeeID)
	if err != nil {
		return false, err
	}
	note := s.noteLine(now, "Break reminder sent (%s, %s): %s", req.BreakType, urgency, req.Reason)
	stamped, err := s.store.RecordReminder(ctx, session.ID, now, note)
	if err != nil {
		return false, err
	}
	if !stamped {
		s.log.Debug("reminder skipped, session closed", "session_id", session.ID)
		return false, nil
	}
	s.dispatch(ctx, EventBreakReminder, *employee, map[string]any{
		"session_id":   session.ID.String(),
		"break_type":   string(req.BreakType),
		"hours_worked": req.HoursWorked,
		"is_overdue":   req.IsOverdue,
		"urgency":      string(urgency),
		"reason":       req.Reason,
	})
	return true, nil
}

// SendBreakReminders is the periodic sweep. Every open session not on break that needs a break
// is reminded, at most once per SweepReminderCooldown unless the break is overdue. Failures on
// one session are logged and the sweep continues.
func (s *Service) SendBreakReminders(ctx context.Context) (int, error) {
	sessions, err := s.store.ListOpenSessions(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range sessions {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		session := &sessions[i]
		ok, err := s.remindIfDue(ctx, session)
		if err != nil {
			s.log.Error("break reminder failed", "session_id", session.ID, "employee_id", session.EmployeeID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	s.log.Info("break reminder sweep finished", "open_sessions", len(sessions), "reminders_sent", sent)
	return sent, nil
}

func (s *Service) remindIfDue(ctx context.Context, session *models.WorkSession) (bool, error) {
	breaks, err := s.store.ListBreaks(ctx, session.ID)
	if err != nil {
		return false, err
	}
	if hasOpenBreak(breaks) {
		return false, nil
	}
	now := s.now()
	req := EvaluateRequirement(session, breaks, now)
	if !req.RequiresBreak {
		return false, nil
	}
	if !req.IsOverdue && remindedWithin(session, now, SweepReminderCooldown) {
		return false, nil
	}
	return s.sendReminder(ctx, session, req, UrgencyNormal)
}

// CheckBreakStatus evaluates the employee's requirement on demand. When a break is due and no
// reminder went out in the last OnDemandReminderCooldown, it reminds immediately and schedules
// one escalated follow-up after FollowUpDelay.
func (s *Service) CheckBreakStatus(ctx context.Context, employeeID uint) (ComplianceRequirement, error) {
	if err := validateEmployee(employeeID); err != nil {
		return ComplianceRequirement{}, err
	}
	session, err := s.openSession(ctx, employeeID)
	if errors.Is(err, ErrNotClockedIn) {
		return notApplicable(), nil
	}
	if err != nil {
		return ComplianceRequirement{}, err
	}
	breaks, err := s.store.ListBreaks(ctx, session.ID)
	if err != nil {
		return ComplianceRequirement{}, err
	}
	now := s.now()
	req := EvaluateRequirement(session, breaks, now)
	if !req.RequiresBreak || hasOpenBreak(breaks) || remindedWithin(session, now, OnDemandReminderCooldown) {
		return req, nil
	}

	sent, err := s.sendReminder(ctx, session, req, UrgencyNormal)
	if err != nil {
		s.log.Error("on-demand reminder failed", "session_id", session.ID, "error", err)
		return req, nil
	}
	if sent && s.scheduler != nil {
		sessionID := session.ID
		s.scheduler.ScheduleOnce(FollowUpDelay, func() {
			ctx, cancel := context.WithTimeout(context.Background(), followUpTimeout)
			defer cancel()
			s.followUpReminder(ctx, employeeID, sessionID)
		})
	}
	return req, nil
}

// followUpReminder re-checks the session and sends a HIGH urgency reminder if the employee is
// still clocked in on the same session, not on break, and still owes a break.
func (s *Service) followUpReminder(ctx context.Context, employeeID uint, sessionID uuid.UUID) {
	session, err := s.openSession(ctx, employeeID)
	if err != nil {
		if !errors.Is(err, ErrNotClockedIn) {
			s.log.Error("follow-up reminder lookup failed", "employee_id", employeeID, "error", err)
		}
		return
	}
	if session.ID != sessionID {
		return
	}
	breaks, err := s.store.ListBreaks(ctx, session.ID)
	if err != nil {
		s.log.Error("follow-up reminder lookup failed", "session_id", sessionID, "error", err)
		return
	}
	if hasOpenBreak(breaks) {
		return
	}
	req := EvaluateRequirement(session, breaks, s.now())
	if !req.RequiresBreak {
		return
	}
	if _, err := s.sendReminder(ctx, session, req, UrgencyHigh); err != nil {
		s.log.Error("follow-up reminder failed", "session_id", sessionID, "error", err)
	}
}
