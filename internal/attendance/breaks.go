// internal/attendance/breaks.go
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
	"github.com/google/uuid"
)

// Break thresholds, in hours worked on the open session.
const (
	ManualBreakAfterHours  = 1.0
	ShortBreakDueHours     = 2.0
	ShortBreakOverdueHours = 2.5
	LunchBreakDueHours     = 4.0
	LunchBreakOverdueHours = 5.0

	// BreakRequiredSessionHours is the completed-session length that requires a lunch break.
	BreakRequiredSessionHours = 6.0
)

// Minimum durations for a taken break to count as compliant.
const (
	minShortBreak = 10 * time.Minute
	minLunchBreak = 30 * time.Minute
)

// ComplianceRequirement answers whether a break is due right now and how urgently.
type ComplianceRequirement struct {
	Applicable         bool             `json:"applicable"`
	RequiresBreak      bool             `json:"requires_break"`
	BreakType          models.BreakType `json:"break_type,omitempty"`
	HoursWorked        float64          `json:"hours_worked"`
	IsOverdue          bool             `json:"is_overdue"`
	CanTakeManualBreak bool             `json:"can_take_manual_break"`
	Reason             string           `json:"reason"`
}

func notApplicable() ComplianceRequirement {
	return ComplianceRequirement{Reason: "not clocked in"}
}

func countBreaks(breaks []models.BreakSession, t models.BreakType) int {
	n := 0
	for _, b := range breaks {
		if b.Type == t {
			n++
		}
	}
	return n
}

func hasOpenBreak(breaks []models.BreakSession) bool {
	for _, b := range breaks {
		if b.IsOpen() {
			return true
		}
	}
	return false
}

// EvaluateRequirement computes the break requirement for an open session.
//
// The short-break and lunch branches are exclusive: once two hours have passed and no short
// break was taken, only the short break is ever requested, even past four hours. The lunch
// branch is reached only after a short break exists.
func EvaluateRequirement(session *models.WorkSession, breaks []models.BreakSession, now time.Time) ComplianceRequirement {
	if session == nil || !session.IsOpen() {
		return notApplicable()
	}
	hours := now.Sub(session.ClockIn).Seconds() / 3600
	req := ComplianceRequirement{
		Applicable:         true,
		HoursWorked:        roundHours(hours),
		CanTakeManualBreak: hours >= ManualBreakAfterHours,
		Reason:             "no break required",
	}

	if hours >= ShortBreakDueHours && countBreaks(breaks, models.BreakShort) == 0 {
		req.RequiresBreak = true
		req.BreakType = models.BreakShort
		req.IsOverdue = hours >= ShortBreakOverdueHours
		req.Reason = fmt.Sprintf("short break due after %.0f hours of work", ShortBreakDueHours)
	} else if hours >= LunchBreakDueHours && countBreaks(breaks, models.BreakLunch) == 0 {
		req.RequiresBreak = true
		req.BreakType = models.BreakLunch
		req.IsOverdue = hours >= LunchBreakOverdueHours
		req.Reason = fmt.Sprintf("lunch break due after %.0f hours of work", LunchBreakDueHours)
	}
	if req.IsOverdue {
		req.Reason += " (overdue)"
	}
	return req
}

// breakCompliant reports whether a finished break met its minimum length.
func breakCompliant(b *models.BreakSession, end time.Time) bool {
	d := end.Sub(b.StartedAt)
	switch b.Type {
	case models.BreakShort:
		return d >= minShortBreak
	case models.BreakLunch:
		return d >= minLunchBreak
	default:
		return true
	}
}

func validBreakType(t models.BreakType) bool {
	switch t {
	case models.BreakShort, models.BreakLunch, models.BreakPersonal:
		return true
	}
	return false
}

func (s *Service) openSession(ctx context.Context, employeeID uint) (*models.WorkSession, error) {
	session, err := s.store.FindOpenSession(ctx, employeeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotClockedIn
	}
	return session, err
}

// EvaluateBreakCompliance returns the current requirement for the employee's open session.
func (s *Service) EvaluateBreakCompliance(ctx context.Context, employeeID uint) (ComplianceRequirement, error) {
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
	return EvaluateRequirement(session, breaks, s.now()), nil
}

// StartBreak opens a break on the employee's session.
func (s *Service) StartBreak(ctx context.Context, employeeID uint, breakType models.BreakType) (*models.BreakSession, error) {
	if err := validateEmployee(employeeID); err != nil {
		return nil, err
	}
	if !validBreakType(breakType) {
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown break type %q", breakType)}
	}
	now := s.now()

	unlock := s.locks.lock(employeeID)
	defer unlock()

	session, err := s.openSession(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindOpenBreak(ctx, session.ID); err == nil {
		return nil, ErrAlreadyOnBreak
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if now.Sub(session.ClockIn).Hours() < ManualBreakAfterHours {
		return nil, &ValidationError{Field: "type", Message: "breaks are available after one hour of work"}
	}

	b := &models.BreakSession{
		WorkSessionID: session.ID,
		Type:          breakType,
		StartedAt:     now,
	}
	if err := s.store.CreateBreak(ctx, b); err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			return nil, ErrAlreadyOnBreak
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrNotClockedIn
		}
		return nil, err
	}
	s.log.Info("break started", "employee_id", employeeID, "session_id", session.ID, "type", breakType)
	return b, nil
}

// EndBreak finishes the running break and records whether it was long enough.
func (s *Service) EndBreak(ctx context.Context, employeeID uint) (*models.BreakSession, error) {
	if err := validateEmployee(employeeID); err != nil {
		return nil, err
	}
	now := s.now()

	unlock := s.locks.lock(employeeID)
	defer unlock()

	session, err := s.openSession(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	b, err := s.store.FindOpenBreak(ctx, session.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotOnBreak
	}
	if err != nil {
		return nil, err
	}
	compliant := breakCompliant(b, now)
	ended, err := s.store.EndBreak(ctx, b.ID, now, compliant)
	if err != nil {
		return nil, err
	}
	if !ended {
		return nil, ErrNotOnBreak
	}
	b.EndedAt = &now
	b.Compliant = compliant
	s.log.Info("break ended", "employee_id", employeeID, "session_id", session.ID,
		"type", b.Type, "compliant", compliant)
	return b, nil
}

// runningBreak returns the break still open on the session, or nil when there is none.
func (s *Service) runningBreak(ctx context.Context, sessionID uuid.UUID) (*models.BreakSession, error) {
	b, err := s.store.FindOpenBreak(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// breakClosure ends b at the given time as part of a session closure.
func breakClosure(b *models.BreakSession, at time.Time) *storage.BreakClosure {
	if b == nil {
		return nil
	}
	return &storage.BreakClosure{ID: b.ID, EndedAt: at, Compliant: breakCompliant(b, at)}
}

// WaiveBreak records a waived lunch break: zero length, already closed, and compliant.
func (s *Service) WaiveBreak(ctx context.Context, employeeID uint, reason string) (*models.BreakSession, error) {
	if err := validateEmployee(employeeID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "a reason is required to waive a break"}
	}
	now := s.now()

	unlock := s.locks.lock(employeeID)
	defer unlock()

	session, err := s.openSession(ctx, employeeID)
	if errors.Is(err, ErrNotClockedIn) {
		return nil, &ValidationError{Field: "session", Message: "no open work session", Err: ErrNotClockedIn}
	}
	if err != nil {
		return nil, err
	}

	b := &models.BreakSession{
		WorkSessionID: session.ID,
		Type:          models.BreakLunch,
		StartedAt:     now,
		EndedAt:       &now,
		Waived:        true,
		WaiverReason:  reason,
		Compliant:     true,
	}
	if err := s.store.CreateBreak(ctx, b); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &ValidationError{Field: "session", Message: "no open work session", Err: ErrNotClockedIn}
		}
		return nil, err
	}
	if _, err := s.store.AppendNote(ctx, session.ID, s.noteLine(now, "Break waived: %s", reason)); err != nil {
		s.log.Error("append waiver note failed", "session_id", session.ID, "error", err)
	}

	s.log.Info("break waived", "employee_id", employeeID, "session_id", session.ID)
	payload := map[string]any{
		"session_id":  session.ID.String(),
		"employee_id": employeeID,
		"reason":      reason,
	}
	s.dispatchAdmins(ctx, s.listAdmins(ctx), EventBreakWaived, payload)
	return b, nil
}

// RejectReminder notes on the session that the employee declined a break reminder.
func (s *Service) RejectReminder(ctx context.Context, employeeID uint, reason string) error {
	if err := validateEmployee(employeeID); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	session, err := s.openSession(ctx, employeeID)
	if err != nil {
		return err
	}
	ok, err := s.store.AppendNote(ctx, session.ID, s.noteLine(s.now(), "Break reminder rejected: %s", reason))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotClockedIn
	}
	return nil
}

// SessionCompliance is the break verdict for one completed session.
type SessionCompliance struct {
	SessionID      uuid.UUID  `json:"session_id"`
	ClockIn        time.Time  `json:"clock_in"`
	ClockOut       *time.Time `json:"clock_out,omitempty"`
	Hours          float64    `json:"hours"`
	BreaksRequired bool       `json:"breaks_required"`
	LunchTaken     bool       `json:"lunch_taken"`
	Waived         bool       `json:"waived"`
	Compliant      bool       `json:"is_compliant"`
}

// DailyCompliance aggregates break compliance for one employee and calendar date.
type DailyCompliance struct {
	EmployeeID   uint                `json:"employee_id"`
	Date         string              `json:"date"`
	Sessions     []SessionCompliance `json:"sessions"`
	BreaksTaken  int                 `json:"breaks_taken"`
	BreaksWaived int                 `json:"breaks_waived"`
	Violations   int                 `json:"violations"`
	IsCompliant  bool                `json:"is_compliant"`
}

// ComplianceStatus reports break compliance for the sessions clocked in on date. A zero date
// means today. Break counts cover every session that day; the verdict covers completed sessions
// only.
func (s *Service) ComplianceStatus(ctx context.Context, employeeID uint, date time.Time) (*DailyCompliance, error) {
	if err := validateEmployee(employeeID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.now()
	}
	from, to := dayBounds(date, s.loc)
	sessions, err := s.store.ListSessionsBetween(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}

	out := &DailyCompliance{
		EmployeeID:  employeeID,
		Date:        from.Format("2006-01-02"),
		Sessions:    []SessionCompliance{},
		IsCompliant: true,
	}
	now := s.now()
	for i := range sessions {
		sess := &sessions[i]
		var lunch, waived bool
		for _, b := range sess.Breaks {
			if b.Waived {
				out.BreaksWaived++
				waived = true
				continue
			}
			out.BreaksTaken++
			if b.Type == models.BreakLunch {
				lunch = true
			}
		}
		if sess.IsOpen() {
			continue
		}
		hours := sess.Duration(now).Hours()
		sc := SessionCompliance{
			SessionID:      sess.ID,
			ClockIn:        sess.ClockIn,
			ClockOut:       sess.ClockOut,
			Hours:          roundHours(hours),
			BreaksRequired: hours >= BreakRequiredSessionHours,
			LunchTaken:     lunch,
			Waived:         waived,
		}
		sc.Compliant = !sc.BreaksRequired || lunch || waived
		if !sc.Compliant {
			out.Violations++
			out.IsCompliant = false
		}
		out.Sessions = append(out.Sessions, sc)
	}
	return out, nil
}
