package attendance

import (
	"context"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
	"github.com/google/uuid"
)

// Store is the persistence the service needs. storage.Repository satisfies it.
type Store interface {
	CreateWorkSession(ctx context.Context, s *models.WorkSession) error
	FindOpenSession(ctx context.Context, employeeID uint) (*models.WorkSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.WorkSession, error)
	ListOpenSessions(ctx context.Context) ([]models.WorkSession, error)
	ListSessionsBetween(ctx context.Context, employeeID uint, from, to time.Time) ([]models.WorkSession, error)
	CloseSession(ctx context.Context, id uuid.UUID, c storage.Closure) (bool, error)
	RecordReminder(ctx context.Context, id uuid.UUID, at time.Time, note string) (bool, error)
	AppendNote(ctx context.Context, id uuid.UUID, note string) (bool, error)

	CreateBreak(ctx context.Context, b *models.BreakSession) error
	FindOpenBreak(ctx context.Context, sessionID uuid.UUID) (*models.BreakSession, error)
	EndBreak(ctx context.Context, id uuid.UUID, endedAt time.Time, compliant bool) (bool, error)
	ListBreaks(ctx context.Context, sessionID uuid.UUID) ([]models.BreakSession, error)

	GetLocation(ctx context.Context, id uint) (*models.Location, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// ShiftLookup returns published shifts for an employee starting within [from, to).
type ShiftLookup interface {
	FindShifts(ctx context.Context, employeeID uint, from, to time.Time) ([]models.ScheduledShift, error)
}

// AdminRoster lists the accounts that receive escalations.
type AdminRoster interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type EventType string

const (
	EventClockIn       EventType = "clock_in"
	EventClockOut      EventType = "clock_out"
	EventBreakReminder EventType = "break_reminder"
	EventBreakWaived   EventType = "break_waived"
	EventStuckSession  EventType = "stuck_session"
	EventAutoClockOut  EventType = "auto_clock_out"
)

// Dispatcher delivers a notification. Implementations must not block the caller on delivery.
type Dispatcher interface {
	Send(ctx context.Context, event EventType, recipient models.User, payload map[string]any) error
}

// Scheduler runs a one-shot delayed call.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func())
}

var _ Store = (*storage.Repository)(nil)
var _ ShiftLookup = (*storage.Repository)(nil)
var _ AdminRoster = (*storage.Repository)(nil)
