package attendance

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
	"github.com/JudeDesigns/attendance-sub000/internal/testutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// base is a Monday morning in UTC.
var base = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type sentNotification struct {
	Event       EventType
	RecipientID uint
	Payload     map[string]any
}

type recordingDispatcher struct {
	mu      sync.Mutex
	sent    []sentNotification
	failFor map[uint]error
}

func (r *recordingDispatcher) Send(ctx context.Context, event EventType, recipient models.User, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[recipient.ID]; err != nil {
		return err
	}
	r.sent = append(r.sent, sentNotification{Event: event, RecipientID: recipient.ID, Payload: payload})
	return nil
}

func (r *recordingDispatcher) events(event EventType) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.sent {
		if n.Event == event {
			out = append(out, n)
		}
	}
	return out
}

func (r *recordingDispatcher) to(recipientID uint, event EventType) []sentNotification {
	var out []sentNotification
	for _, n := range r.events(event) {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

type scheduledCall struct {
	delay time.Duration
	fn    func()
}

// manualScheduler records one-shot calls so tests decide when they fire.
type manualScheduler struct {
	mu    sync.Mutex
	calls []scheduledCall
}

func (m *manualScheduler) ScheduleOnce(delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, scheduledCall{delay: delay, fn: fn})
}

func (m *manualScheduler) pending() []scheduledCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scheduledCall(nil), m.calls...)
}

func (m *manualScheduler) runAll() {
	m.mu.Lock()
	calls := m.calls
	m.calls = nil
	m.mu.Unlock()
	for _, c := range calls {
		c.fn()
	}
}

type fixture struct {
	db       *gorm.DB
	repo     *storage.Repository
	svc      *Service
	clock    *testutil.Clock
	notifier *recordingDispatcher
	sched    *manualScheduler
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		repo:     storage.NewRepository(db),
		clock:    testutil.NewClock(base),
		notifier: &recordingDispatcher{},
		sched:    &manualScheduler{},
		logs:     &bytes.Buffer{},
	}
	o := Options{
		Logger:    slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Now:       f.clock.Now,
		Location:  time.UTC,
		Scheduler: f.sched,
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.svc = NewService(f.repo, f.repo, f.repo, f.notifier, o)
	return f
}

func (f *fixture) clockIn(t *testing.T, employeeID uint) *models.WorkSession {
	t.Helper()
	s, err := f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: employeeID})
	if err != nil {
		t.Fatalf("ClockIn failed: %v", err)
	}
	return s
}

func (f *fixture) session(t *testing.T, id uuid.UUID) *models.WorkSession {
	t.Helper()
	s, err := f.repo.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	return s
}

func (f *fixture) breaks(t *testing.T, id uuid.UUID) []models.BreakSession {
	t.Helper()
	b, err := f.repo.ListBreaks(context.Background(), id)
	if err != nil {
		t.Fatalf("ListBreaks failed: %v", err)
	}
	return b
}
