package attendance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"github.com/JudeDesigns/attendance-sub000/internal/testutil"
)

func TestClockInCreatesOpenSession(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")

	s, err := f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: emp.ID, Notes: "early start"})
	if err != nil {
		t.Fatalf("ClockIn failed: %v", err)
	}
	if s.State != models.SessionOpen {
		t.Fatalf("expected OPEN, got %s", s.State)
	}
	got := f.session(t, s.ID)
	if !got.ClockIn.Equal(base) {
		t.Fatalf("expected clock-in %v, got %v", base, got.ClockIn)
	}
	if !strings.Contains(got.Notes, "Clock-in: early start") {
		t.Fatalf("expected clock-in note, got %q", got.Notes)
	}
	if n := len(f.notifier.to(emp.ID, EventClockIn)); n != 1 {
		t.Fatalf("expected 1 clock_in notification, got %d", n)
	}
}

func TestClockInTwiceFails(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	f.clockIn(t, emp.ID)

	_, err := f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: emp.ID})
	if !errors.Is(err, ErrAlreadyClockedIn) {
		t.Fatalf("expected ErrAlreadyClockedIn, got %v", err)
	}
}

func TestClockInValidatesEmployee(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ClockIn(context.Background(), ClockRequest{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	_, err = f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: 999})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentClockInExactlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	employees := []*models.User{
		testutil.CreateEmployee(t, f.db, "ana"),
		testutil.CreateEmployee(t, f.db, "budi"),
		testutil.CreateEmployee(t, f.db, "citra"),
	}

	const attempts = 8
	var mu sync.Mutex
	wins := map[uint]int{}
	var wg sync.WaitGroup
	for _, emp := range employees {
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(id uint) {
				defer wg.Done()
				_, err := f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: id})
				switch {
				case err == nil:
					mu.Lock()
					wins[id]++
					mu.Unlock()
				case !errors.Is(err, ErrAlreadyClockedIn):
					t.Errorf("unexpected error: %v", err)
				}
			}(emp.ID)
		}
	}
	wg.Wait()

	for _, emp := range employees {
		if wins[emp.ID] != 1 {
			t.Fatalf("employee %d: expected exactly one successful clock-in, got %d", emp.ID, wins[emp.ID])
		}
	}
	open, err := f.repo.ListOpenSessions(context.Background())
	if err != nil {
		t.Fatalf("ListOpenSessions failed: %v", err)
	}
	if len(open) != len(employees) {
		t.Fatalf("expected %d open sessions, got %d", len(employees), len(open))
	}
}

func TestStoreRejectsSecondOpenSession(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	testutil.OpenSession(t, f.db, emp.ID, base)

	// Bypass the service lock and the pre-check: the partial unique index still holds.
	err := f.db.Create(&models.WorkSession{EmployeeID: emp.ID, State: models.SessionOpen, ClockIn: base}).Error
	if err == nil {
		t.Fatalf("expected unique index violation")
	}
}

func TestClockOutWithoutSessionFails(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")

	_, err := f.svc.ClockOut(context.Background(), ClockRequest{EmployeeID: emp.ID})
	if !errors.Is(err, ErrNotClockedIn) {
		t.Fatalf("expected ErrNotClockedIn, got %v", err)
	}
}

func TestClockOutBeforeClockInRejected(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	f.clockIn(t, emp.ID)

	_, err := f.svc.ClockOut(context.Background(), ClockRequest{EmployeeID: emp.ID, At: base.Add(-time.Minute)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestClockOutUnscheduledSession(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	s := f.clockIn(t, emp.ID)

	f.clock.Advance(6 * time.Hour)
	summary, err := f.svc.ClockOut(context.Background(), ClockRequest{EmployeeID: emp.ID})
	if err != nil {
		t.Fatalf("ClockOut failed: %v", err)
	}
	if summary.Status != StatusUnscheduled {
		t.Fatalf("expected UNSCHEDULED, got %s", summary.Status)
	}
	if summary.Hours != 6 {
		t.Fatalf("expected 6 hours, got %v", summary.Hours)
	}
	if summary.IsOvertime || summary.ShiftCompliant {
		t.Fatalf("unexpected flags: %+v", summary)
	}
	got := f.session(t, s.ID)
	if got.State != models.SessionClosed || got.ClockOutMethod != models.ClockOutManual {
		t.Fatalf("expected manually closed session, got %s/%s", got.State, got.ClockOutMethod)
	}
	if n := len(f.notifier.to(emp.ID, EventClockOut)); n != 1 {
		t.Fatalf("expected 1 clock_out notification, got %d", n)
	}
}

func TestClockOutCompletedShift(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	testutil.CreateShift(t, f.db, emp.ID, base, base.Add(8*time.Hour))

	f.clock.Set(base.Add(10 * time.Minute))
	f.clockIn(t, emp.ID)
	f.clock.Set(base.Add(8*time.Hour + 5*time.Minute))

	summary, err := f.svc.ClockOut(context.Background(), ClockRequest{EmployeeID: emp.ID})
	if err != nil {
		t.Fatalf("ClockOut failed: %v", err)
	}
	if summary.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", summary.Status)
	}
	if !summary.ShiftCompliant || summary.Shift == nil {
		t.Fatalf("expected shift compliance, got %+v", summary)
	}
	if summary.Hours != 7.92 {
		t.Fatalf("expected 7.92 hours, got %v", summary.Hours)
	}
}

func TestClockOutBeforeShiftEndIsEarlyDeparture(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	testutil.CreateShift(t, f.db, emp.ID, base, base.Add(8*time.Hour))
	f.clockIn(t, emp.ID)

	f.clock.Advance(7 * time.Hour)
	summary, err := f.svc.ClockOut(context.Background(), ClockRequest{EmployeeID: emp.ID})
	if err != nil {
		t.Fatalf("ClockOut failed: %v", err)
	}
	if summary.Status != StatusEarlyDeparture {
		t.Fatalf("expected EARLY_DEPARTURE, got %s", summary.Status)
	}
}

func TestClockOutEndsRunningBreak(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	s := f.clockIn(t, emp.ID)

	f.clock.Advance(3 * time.Hour)
	if _, err := f.svc.StartBreak(context.Background(), emp.ID, models.BreakLunch); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	f.clock.Advance(40 * time.Minute)
	if _, err := f.svc.ClockOut(context.Background(), ClockRequest{EmployeeID: emp.ID}); err != nil {
		t.Fatalf("ClockOut failed: %v", err)
	}

	breaks := f.breaks(t, s.ID)
	if len(breaks) != 1 || breaks[0].IsOpen() {
		t.Fatalf("expected the lunch break to be closed, got %+v", breaks)
	}
	if !breaks[0].Compliant {
		t.Fatalf("expected 40 minute lunch to be compliant")
	}
}

func TestClockOutBeforeRunningBreakRejected(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	ctx := context.Background()
	s := f.clockIn(t, emp.ID)

	f.clock.Advance(3 * time.Hour)
	if _, err := f.svc.StartBreak(ctx, emp.ID, models.BreakLunch); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	_, err := f.svc.ClockOut(ctx, ClockRequest{EmployeeID: emp.ID, At: base.Add(2 * time.Hour)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := f.session(t, s.ID); got.State != models.SessionOpen {
		t.Fatalf("session must stay open, got %s", got.State)
	}
	if breaks := f.breaks(t, s.ID); len(breaks) != 1 || !breaks[0].IsOpen() {
		t.Fatalf("break must keep running, got %+v", breaks)
	}
}

func TestClockInGeofence(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")
	office := testutil.CreateLocation(t, f.db, "Head Office", -6.2, 106.8, 100, true)

	_, err := f.svc.ClockIn(context.Background(), ClockRequest{
		EmployeeID: emp.ID,
		LocationID: testutil.Uint(office.ID),
		Latitude:   testutil.Float(-6.21),
		Longitude:  testutil.Float(106.8),
	})
	var oor *OutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected OutOfRangeError, got %v", err)
	}
	if oor.Location != "Head Office" || oor.Distance < 1000 {
		t.Fatalf("unexpected out-of-range detail: %+v", oor)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("geofence failure must not be a generic validation error")
	}

	_, err = f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: emp.ID, LocationID: testutil.Uint(office.ID)})
	if !errors.As(err, &oor) || !oor.Missing {
		t.Fatalf("expected missing-coordinates OutOfRangeError, got %v", err)
	}

	s, err := f.svc.ClockIn(context.Background(), ClockRequest{
		EmployeeID: emp.ID,
		LocationID: testutil.Uint(office.ID),
		Latitude:   testutil.Float(-6.2),
		Longitude:  testutil.Float(106.8),
	})
	if err != nil {
		t.Fatalf("ClockIn at the office failed: %v", err)
	}
	if s.ClockInLocationID == nil || *s.ClockInLocationID != office.ID {
		t.Fatalf("expected clock-in location to be recorded")
	}
}

func TestClockInUnknownLocation(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")

	_, err := f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: emp.ID, LocationID: testutil.Uint(42)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduleGateAppliesToClockInOnly(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.EnforceSchedule = true })
	emp := testutil.CreateEmployee(t, f.db, "ana")

	_, err := f.svc.ClockIn(context.Background(), ClockRequest{EmployeeID: emp.ID})
	if !errors.Is(err, ErrNotScheduled) {
		t.Fatalf("expected ErrNotScheduled, got %v", err)
	}

	shift := testutil.CreateShift(t, f.db, emp.ID, base.Add(20*time.Minute), base.Add(8*time.Hour))
	f.clockIn(t, emp.ID)

	// Unpublishing the shift must not strand the employee.
	if err := f.db.Model(shift).Update("published", false).Error; err != nil {
		t.Fatalf("unpublish failed: %v", err)
	}
	f.clock.Advance(time.Hour)
	if _, err := f.svc.ClockOut(context.Background(), ClockRequest{EmployeeID: emp.ID}); err != nil {
		t.Fatalf("ClockOut must never be gated by the schedule: %v", err)
	}
}

func TestCurrentSession(t *testing.T) {
	f := newFixture(t)
	emp := testutil.CreateEmployee(t, f.db, "ana")

	if _, err := f.svc.CurrentSession(context.Background(), emp.ID); !errors.Is(err, ErrNotClockedIn) {
		t.Fatalf("expected ErrNotClockedIn, got %v", err)
	}
	f.clockIn(t, emp.ID)
	f.clock.Advance(9 * time.Hour)

	summary, err := f.svc.CurrentSession(context.Background(), emp.ID)
	if err != nil {
		t.Fatalf("CurrentSession failed: %v", err)
	}
	if summary.Status != StatusInProgress || !summary.IsOvertime || summary.Hours != 9 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
