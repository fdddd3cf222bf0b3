// Package attendance implements the work-session lifecycle: clock-in and clock-out, break
// compliance with reminders, and detection and recovery of sessions left open.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
)

type Options struct {
	Logger *slog.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
	// Location is the business time zone used for calendar dates and the 17:00 estimate.
	Location *time.Location
	// Scheduler runs the delayed reminder follow-up. Without one no follow-up is sent.
	Scheduler Scheduler
	// EnforceSchedule gates clock-in on a matching published shift. Clock-out is never gated.
	EnforceSchedule bool
}

type Service struct {
	store     Store
	shifts    ShiftLookup
	admins    AdminRoster
	notifier  Dispatcher
	scheduler Scheduler
	log       *slog.Logger
	now       func() time.Time
	loc       *time.Location
	enforce   bool
	locks     *employeeLocks
}

func NewService(store Store, shifts ShiftLookup, admins AdminRoster, notifier Dispatcher, opts Options) *Service {
	s := &Service{
		store:     store,
		shifts:    shifts,
		admins:    admins,
		notifier:  notifier,
		scheduler: opts.Scheduler,
		log:       opts.Logger,
		now:       opts.Now,
		loc:       opts.Location,
		enforce:   opts.EnforceSchedule,
		locks:     newEmployeeLocks(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// noteLine formats a timestamped line for a session's notes.
func (s *Service) noteLine(at time.Time, format string, args ...any) string {
	return fmt.Sprintf("[%s] %s\n", at.In(s.loc).Format("2006-01-02 15:04"), fmt.Sprintf(format, args...))
}

func (s *Service) lookupUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("employee %d: %w", id, ErrNotFound)
	}
	return u, err
}

// dispatch sends one notification and logs a failure. The session change it reports on has
// already committed, so failures never propagate.
func (s *Service) dispatch(ctx context.Context, event EventType, recipient models.User, payload map[string]any) bool {
	if s.notifier == nil {
		return false
	}
	if err := s.notifier.Send(ctx, event, recipient, payload); err != nil {
		s.log.Error("notification failed",
			"event", event, "recipient_id", recipient.ID, "error", err)
		return false
	}
	return true
}

// dispatchAdmins fans a notification out to every admin and returns how many were accepted.
func (s *Service) dispatchAdmins(ctx context.Context, admins []models.User, event EventType, payload map[string]any) int {
	sent := 0
	for _, a := range admins {
		if s.dispatch(ctx, event, a, payload) {
			sent++
		}
	}
	return sent
}

func (s *Service) listAdmins(ctx context.Context) []models.User {
	if s.admins == nil {
		return nil
	}
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		s.log.Error("list admins failed", "error", err)
		return nil
	}
	return admins
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
